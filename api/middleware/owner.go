package middleware

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/inventory-backend/api/responses"
	pkgerrors "github.com/angelmondragon/inventory-backend/pkg/errors"
	"github.com/angelmondragon/inventory-backend/pkg/logger"
)

const (
	ownerIDHeader    = "X-Owner-Id"
	maxOwnerIDLength = 128
	ownerIDForbidden = "#"
)

// Owner resolves the partition owner from X-Owner-Id, falling back to
// defaultOwnerID when the header is absent.
func Owner(defaultOwnerID string, logg *logger.Logger) func(http.Handler) http.Handler {
	fallback := strings.TrimSpace(defaultOwnerID)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ownerID := strings.TrimSpace(r.Header.Get(ownerIDHeader))
			if ownerID == "" {
				ownerID = fallback
			}
			if ownerID == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "X-Owner-Id header required"))
				return
			}
			if len(ownerID) > maxOwnerIDLength || strings.ContainsAny(ownerID, ownerIDForbidden) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid owner id"))
				return
			}

			ctx := WithOwnerID(r.Context(), ownerID)
			if logg != nil {
				ctx = logg.WithOwnerID(ctx, ownerID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
