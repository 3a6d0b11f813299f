package controllers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/inventory-backend/api/responses"
	"github.com/angelmondragon/inventory-backend/api/validators"
	"github.com/angelmondragon/inventory-backend/internal/exports"
	"github.com/angelmondragon/inventory-backend/pkg/logger"
)

type exportRequest struct {
	Email     string `json:"email" validate:"required,email"`
	ProjectID string `json:"project_id" validate:"required,max=128,keysegment"`
}

// ExportRooms mails the project's rooms as a spreadsheet. timeout bounds the
// whole scan, enrich and send pipeline; zero leaves the request context as is.
func ExportRooms(svc exports.Service, timeout time.Duration, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("export"))
			return
		}

		ownerID, ok := requireOwner(w, r, logg)
		if !ok {
			return
		}

		var payload exportRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		result, err := svc.Export(ctx, ownerID, exports.Input{
			Email:     strings.TrimSpace(payload.Email),
			ProjectID: strings.TrimSpace(payload.ProjectID),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
