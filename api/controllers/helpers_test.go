package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/inventory-backend/api/middleware"
	"github.com/angelmondragon/inventory-backend/internal/exports"
	"github.com/angelmondragon/inventory-backend/internal/projects"
	"github.com/angelmondragon/inventory-backend/internal/rooms"
	"github.com/angelmondragon/inventory-backend/internal/upload"
)

const testOwner = "123"

func ownerRequest(method, target string, body io.Reader, params map[string]string) *http.Request {
	req := httptest.NewRequest(method, target, body)
	rc := chi.NewRouteContext()
	for k, v := range params {
		rc.URLParams.Add(k, v)
	}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rc)
	return req.WithContext(middleware.WithOwnerID(ctx, testOwner))
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()
	envelope := struct {
		Data any `json:"data"`
	}{Data: dest}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func decodeErrorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	return envelope.Error.Code
}

type stubProjectService struct {
	project *projects.Project
	err     error
	owner   string
	input   projects.CreateInput
	getID   string
}

func (s *stubProjectService) CreateProject(_ context.Context, ownerID string, input projects.CreateInput) (*projects.Project, error) {
	s.owner = ownerID
	s.input = input
	return s.project, s.err
}

func (s *stubProjectService) GetProject(_ context.Context, ownerID, projectID string) (*projects.Project, error) {
	s.owner = ownerID
	s.getID = projectID
	return s.project, s.err
}

func (s *stubProjectService) Exists(context.Context, string, string) error {
	return s.err
}

type stubRoomService struct {
	room    *rooms.Room
	list    []rooms.Room
	err     error
	owner   string
	project string
	roomID  string
	create  rooms.CreateInput
	update  rooms.UpdateInput
	deleted bool
}

func (s *stubRoomService) CreateRoom(_ context.Context, ownerID string, input rooms.CreateInput) (*rooms.Room, error) {
	s.owner = ownerID
	s.create = input
	return s.room, s.err
}

func (s *stubRoomService) GetRoom(_ context.Context, ownerID, projectID, roomID string) (*rooms.Room, error) {
	s.owner, s.project, s.roomID = ownerID, projectID, roomID
	return s.room, s.err
}

func (s *stubRoomService) ListRooms(_ context.Context, ownerID, projectID string) ([]rooms.Room, error) {
	s.owner, s.project = ownerID, projectID
	return s.list, s.err
}

func (s *stubRoomService) UpdateRoom(_ context.Context, ownerID, projectID, roomID string, input rooms.UpdateInput) (*rooms.Room, error) {
	s.owner, s.project, s.roomID = ownerID, projectID, roomID
	s.update = input
	return s.room, s.err
}

func (s *stubRoomService) DeleteRoom(_ context.Context, ownerID, projectID, roomID string) error {
	s.owner, s.project, s.roomID = ownerID, projectID, roomID
	s.deleted = s.err == nil
	return s.err
}

type stubUploadService struct {
	out   *upload.VideoOutput
	err   error
	input upload.VideoInput
}

func (s *stubUploadService) UploadVideo(_ context.Context, input upload.VideoInput) (*upload.VideoOutput, error) {
	s.input = input
	return s.out, s.err
}

type stubExportService struct {
	result      *exports.Result
	err         error
	owner       string
	input       exports.Input
	hasDeadline bool
}

func (s *stubExportService) Export(ctx context.Context, ownerID string, input exports.Input) (*exports.Result, error) {
	s.owner = ownerID
	s.input = input
	_, s.hasDeadline = ctx.Deadline()
	return s.result, s.err
}

type stubPinger struct {
	err error
}

func (p stubPinger) Ping(context.Context) error {
	return p.err
}
