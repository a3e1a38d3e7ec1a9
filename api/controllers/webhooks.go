package controllers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/angelmondragon/brandinbox/api/responses"
	"github.com/angelmondragon/brandinbox/internal/webhooks"
	pkgerrors "github.com/angelmondragon/brandinbox/pkg/errors"
	"github.com/angelmondragon/brandinbox/pkg/logger"
)

// Callbacks come from an external workflow, so unknown fields are tolerated.
func decodeCallback(r *http.Request, dest any) error {
	defer func() {
		_, _ = io.Copy(io.Discard, r.Body)
	}()
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid callback body")
	}
	return nil
}

func WebhookMediaComplete(svc *webhooks.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload webhooks.MediaCompletePayload
		if err := decodeCallback(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ack, err := svc.HandleMediaComplete(r.Context(), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, ack)
	}
}

func WebhookEbayComplete(svc *webhooks.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload webhooks.EbayCompletePayload
		if err := decodeCallback(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ack, err := svc.HandleEbayComplete(r.Context(), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, ack)
	}
}
