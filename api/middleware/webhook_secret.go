package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/angelmondragon/brandinbox/api/responses"
	pkgerrors "github.com/angelmondragon/brandinbox/pkg/errors"
	"github.com/angelmondragon/brandinbox/pkg/logger"
)

const webhookSecretHeader = "X-Webhook-Secret"

// WebhookSecret rejects callbacks without the shared secret. An empty secret disables the check.
func WebhookSecret(secret string, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if secret == "" {
			return next
		}
		expected := []byte(secret)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			provided := []byte(r.Header.Get(webhookSecretHeader))
			if subtle.ConstantTimeCompare(provided, expected) != 1 {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook secret"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
