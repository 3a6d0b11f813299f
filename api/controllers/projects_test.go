package controllers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/inventory-backend/internal/projects"
	pkgerrors "github.com/angelmondragon/inventory-backend/pkg/errors"
)

func TestProjectCreateSuccess(t *testing.T) {
	svc := &stubProjectService{project: &projects.Project{ProjectID: "p1", Name: "Home", CreatedAt: time.Now()}}
	req := ownerRequest(http.MethodPost, "/api/v1/projects", strings.NewReader(`{"name":"  Home  ","description":"main house"}`), nil)
	rec := httptest.NewRecorder()

	ProjectCreate(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.owner != testOwner {
		t.Fatalf("expected owner %s got %s", testOwner, svc.owner)
	}
	if svc.input.Name != "Home" || svc.input.Description != "main house" {
		t.Fatalf("unexpected input %+v", svc.input)
	}

	var body projects.Project
	decodeData(t, rec, &body)
	if body.ProjectID != "p1" {
		t.Fatalf("unexpected project %+v", body)
	}
}

func TestProjectCreateRequiresName(t *testing.T) {
	svc := &stubProjectService{}
	req := ownerRequest(http.MethodPost, "/api/v1/projects", strings.NewReader(`{"description":"x"}`), nil)
	rec := httptest.NewRecorder()

	ProjectCreate(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
	if svc.owner != "" {
		t.Fatal("service should not be called")
	}
}

func TestProjectCreateRequiresOwner(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/projects", strings.NewReader(`{"name":"Home"}`))
	rec := httptest.NewRecorder()

	ProjectCreate(&stubProjectService{}, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestProjectGetNotFound(t *testing.T) {
	svc := &stubProjectService{err: pkgerrors.New(pkgerrors.CodeNotFound, "invalid project id")}
	req := ownerRequest(http.MethodGet, "/api/v1/projects/missing", nil, map[string]string{"projectId": "missing"})
	rec := httptest.NewRecorder()

	ProjectGet(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rec.Code)
	}
	if svc.getID != "missing" {
		t.Fatalf("expected path id forwarded, got %q", svc.getID)
	}
}

func TestProjectServiceUnavailable(t *testing.T) {
	rec := httptest.NewRecorder()
	ProjectGet(nil, nil).ServeHTTP(rec, ownerRequest(http.MethodGet, "/api/v1/projects/p1", nil, nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", rec.Code)
	}
}
