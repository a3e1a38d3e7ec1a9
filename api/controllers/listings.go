package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/brandinbox/api/middleware"
	"github.com/angelmondragon/brandinbox/api/responses"
	"github.com/angelmondragon/brandinbox/api/validators"
	"github.com/angelmondragon/brandinbox/internal/listings"
	"github.com/angelmondragon/brandinbox/pkg/enums"
	pkgerrors "github.com/angelmondragon/brandinbox/pkg/errors"
	"github.com/angelmondragon/brandinbox/pkg/logger"
	"github.com/angelmondragon/brandinbox/pkg/types"
)

func listingID(r *http.Request) string {
	return strings.TrimSpace(chi.URLParam(r, "id"))
}

func listingCtx(r *http.Request, logg *logger.Logger) *http.Request {
	if logg == nil {
		return r
	}
	return r.WithContext(logg.WithListingID(r.Context(), listingID(r)))
}

// ListingCreate stores a new draft.
func ListingCreate(svc listings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body types.ListingCreate
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		listing, err := svc.Create(r.Context(), middleware.UserIDFromContext(r.Context()), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, listing)
	}
}

// ListingList returns the caller's listings, newest first, optionally filtered by ?status=.
func ListingList(svc listings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var filter *enums.ListingStatus
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseListingStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "status must be a valid listing status"))
				return
			}
			filter = &status
		}

		rows, err := svc.List(r.Context(), middleware.UserIDFromContext(r.Context()), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if rows == nil {
			rows = []types.Listing{}
		}
		responses.WriteSuccess(w, rows)
	}
}

func ListingGet(svc listings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r = listingCtx(r, logg)
		listing, err := svc.Get(r.Context(), middleware.UserIDFromContext(r.Context()), listingID(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, listing)
	}
}

// ListingUpdate applies a partial update. Status is not an accepted field.
func ListingUpdate(svc listings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r = listingCtx(r, logg)
		var body types.ListingUpdate
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		listing, err := svc.Update(r.Context(), middleware.UserIDFromContext(r.Context()), listingID(r), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, listing)
	}
}

func ListingDelete(svc listings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r = listingCtx(r, logg)
		if err := svc.Delete(r.Context(), middleware.UserIDFromContext(r.Context()), listingID(r)); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

// ListingGenerateMedia starts (or regenerates) media; the body is optional.
func ListingGenerateMedia(svc listings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r = listingCtx(r, logg)
		var body struct {
			MediaType string `json:"media_type,omitempty"`
		}
		if err := validators.DecodeOptionalJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		mediaType, err := enums.ParseMediaType(strings.TrimSpace(body.MediaType))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "media_type must be one of all, images, video"))
			return
		}

		listing, err := svc.GenerateMedia(r.Context(), middleware.UserIDFromContext(r.Context()), listingID(r), mediaType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, listing)
	}
}

func ListingApproveMedia(svc listings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r = listingCtx(r, logg)
		var body types.ApproveMediaRequest
		if err := validators.DecodeOptionalJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		listing, err := svc.ApproveMedia(r.Context(), middleware.UserIDFromContext(r.Context()), listingID(r), body.SelectedImageIndices)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, listing)
	}
}

func ListingPublish(svc listings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r = listingCtx(r, logg)
		listing, err := svc.Publish(r.Context(), middleware.UserIDFromContext(r.Context()), listingID(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, listing)
	}
}
