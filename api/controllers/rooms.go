package controllers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/inventory-backend/api/responses"
	"github.com/angelmondragon/inventory-backend/api/validators"
	"github.com/angelmondragon/inventory-backend/internal/rooms"
	pkgerrors "github.com/angelmondragon/inventory-backend/pkg/errors"
	"github.com/angelmondragon/inventory-backend/pkg/logger"
	"github.com/angelmondragon/inventory-backend/pkg/types"
)

type roomCreateRequest struct {
	Name        string `json:"name" validate:"max=128"`
	Description string `json:"description" validate:"max=2000"`
	VideoURL    string `json:"video_url" validate:"required,http_url"`
	JobID       string `json:"job_id" validate:"required,max=128,keysegment"`
	Thumbnail   string `json:"thumbnail" validate:"omitempty,http_url"`
}

func (r roomCreateRequest) toInput(projectID string) rooms.CreateInput {
	return rooms.CreateInput{
		ProjectID:   projectID,
		Name:        validators.SanitizeString(r.Name, maxNameLength),
		Description: validators.SanitizeString(r.Description, maxDescriptionLength),
		VideoURL:    strings.TrimSpace(r.VideoURL),
		JobID:       strings.TrimSpace(r.JobID),
		Thumbnail:   strings.TrimSpace(r.Thumbnail),
	}
}

// roomUpdateRequest distinguishes a missing field from an explicit value, so
// falsy accessories such as false or {} are still applied.
type roomUpdateRequest struct {
	Name        types.Optional[string]          `json:"name"`
	Description types.Optional[string]          `json:"description"`
	VideoURL    types.Optional[string]          `json:"video_url"`
	Accessories types.Optional[json.RawMessage] `json:"accessories"`
}

func (r roomUpdateRequest) toInput() rooms.UpdateInput {
	in := rooms.UpdateInput{Accessories: r.Accessories}
	if v, ok := r.Name.Get(); ok {
		in.Name = types.Some(validators.SanitizeString(v, maxNameLength))
	}
	if v, ok := r.Description.Get(); ok {
		in.Description = types.Some(validators.SanitizeString(v, maxDescriptionLength))
	}
	if v, ok := r.VideoURL.Get(); ok {
		in.VideoURL = types.Some(strings.TrimSpace(v))
	}
	return in
}

// RoomCreate stores a room under the project in the path.
func RoomCreate(svc rooms.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("room"))
			return
		}

		ownerID, ok := requireOwner(w, r, logg)
		if !ok {
			return
		}

		var payload roomCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.CreateRoom(r.Context(), ownerID, payload.toInput(projectParam(r)))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

// RoomList returns every room of a project, enriched and newest first.
func RoomList(svc rooms.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("room"))
			return
		}

		ownerID, ok := requireOwner(w, r, logg)
		if !ok {
			return
		}

		list, err := svc.ListRooms(r.Context(), ownerID, projectParam(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, list)
	}
}

func RoomGet(svc rooms.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("room"))
			return
		}

		ownerID, ok := requireOwner(w, r, logg)
		if !ok {
			return
		}

		room, err := svc.GetRoom(r.Context(), ownerID, projectParam(r), roomParam(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, room)
	}
}

func RoomUpdate(svc rooms.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("room"))
			return
		}

		ownerID, ok := requireOwner(w, r, logg)
		if !ok {
			return
		}

		var payload roomUpdateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if video, ok := payload.VideoURL.Get(); ok && !validators.IsHTTPURL(video) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "video_url must be an http or https URL").
				WithDetails(map[string]any{"field": "video_url"}))
			return
		}

		updated, err := svc.UpdateRoom(r.Context(), ownerID, projectParam(r), roomParam(r), payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, updated)
	}
}

func RoomDelete(svc rooms.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("room"))
			return
		}

		ownerID, ok := requireOwner(w, r, logg)
		if !ok {
			return
		}

		if err := svc.DeleteRoom(r.Context(), ownerID, projectParam(r), roomParam(r)); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteNoContent(w)
	}
}

func projectParam(r *http.Request) string {
	return strings.TrimSpace(chi.URLParam(r, "projectId"))
}

func roomParam(r *http.Request) string {
	return strings.TrimSpace(chi.URLParam(r, "roomId"))
}
