package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/inventory-backend/api/middleware"
	"github.com/angelmondragon/inventory-backend/api/responses"
	"github.com/angelmondragon/inventory-backend/api/validators"
	"github.com/angelmondragon/inventory-backend/internal/projects"
	pkgerrors "github.com/angelmondragon/inventory-backend/pkg/errors"
	"github.com/angelmondragon/inventory-backend/pkg/logger"
)

const (
	maxNameLength        = 128
	maxDescriptionLength = 2000
)

type projectCreateRequest struct {
	Name        string `json:"name" validate:"required,max=128"`
	Description string `json:"description" validate:"max=2000"`
}

func (r projectCreateRequest) toInput() projects.CreateInput {
	return projects.CreateInput{
		Name:        validators.SanitizeString(r.Name, maxNameLength),
		Description: validators.SanitizeString(r.Description, maxDescriptionLength),
	}
}

// ProjectCreate registers a project under the request owner.
func ProjectCreate(svc projects.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("project"))
			return
		}

		ownerID, ok := requireOwner(w, r, logg)
		if !ok {
			return
		}

		var payload projectCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.CreateProject(r.Context(), ownerID, payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

func ProjectGet(svc projects.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("project"))
			return
		}

		ownerID, ok := requireOwner(w, r, logg)
		if !ok {
			return
		}

		project, err := svc.GetProject(r.Context(), ownerID, strings.TrimSpace(chi.URLParam(r, "projectId")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, project)
	}
}

func requireOwner(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (string, bool) {
	ownerID := middleware.OwnerIDFromContext(r.Context())
	if ownerID == "" {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "owner context missing"))
		return "", false
	}
	return ownerID, true
}
