package controllers

import (
	"net/http"

	"github.com/angelmondragon/inventory-backend/api/middleware"
	"github.com/angelmondragon/inventory-backend/api/responses"
)

func PublicPing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"scope": "public", "status": "ok"})
	}
}

// OwnerPing echoes the owner and request id the middleware chain resolved.
func OwnerPing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		payload := map[string]string{"scope": "owner", "status": "ok"}
		for key, value := range map[string]string{
			"owner_id":   middleware.OwnerIDFromContext(ctx),
			"request_id": middleware.RequestIDFromContext(ctx),
		} {
			if value != "" {
				payload[key] = value
			}
		}
		responses.WriteSuccess(w, payload)
	}
}
