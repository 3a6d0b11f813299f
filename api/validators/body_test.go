package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	pkgerrors "github.com/angelmondragon/inventory-backend/pkg/errors"
)

type exportPayload struct {
	Email     string `json:"email" validate:"required,email"`
	ProjectID string `json:"project_id" validate:"required,max=64"`
}

func TestDecodeJSONBodyValid(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@b.co","project_id":"p1"}`))

	var payload exportPayload
	if err := DecodeJSONBody(req, &payload); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payload.ProjectID != "p1" {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@b.co","project_id":"p1","extra":1}`))

	var payload exportPayload
	err := DecodeJSONBody(req, &payload)
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDecodeJSONBodyReportsFieldErrors(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"nope"}`))

	var payload exportPayload
	err := DecodeJSONBody(req, &payload)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, ok := typed.Details().(map[string]string)
	if !ok {
		t.Fatalf("expected field details, got %T", typed.Details())
	}
	if details["email"] != "must be a valid email" {
		t.Fatalf("unexpected email message %q", details["email"])
	}
	if details["project_id"] != "is required" {
		t.Fatalf("unexpected project_id message %q", details["project_id"])
	}
}

func TestSanitizeString(t *testing.T) {
	tests := []struct {
		in     string
		maxLen int
		want   string
	}{
		{"  kitchen  ", 0, "kitchen"},
		{"living room", 6, "living"},
		{"été chambre", 3, "été"},
		{"", 10, ""},
	}
	for _, tt := range tests {
		if got := SanitizeString(tt.in, tt.maxLen); got != tt.want {
			t.Fatalf("SanitizeString(%q, %d) = %q, want %q", tt.in, tt.maxLen, got, tt.want)
		}
	}
}

func TestDecodeJSONBodyRejectsEmptyAndTrailingData(t *testing.T) {
	tests := []struct {
		name string
		body string
		msg  string
	}{
		{"empty", ``, "request body required"},
		{"two objects", `{"email":"a@b.co","project_id":"p1"}{"email":"c@d.co"}`, "request body must contain a single JSON object"},
		{"malformed", `{"email":`, "invalid request body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var payload exportPayload
			typed := pkgerrors.As(DecodeJSONBody(req, &payload))
			if typed == nil || typed.Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation error, got %v", typed)
			}
			if typed.Message() != tt.msg {
				t.Fatalf("expected %q, got %q", tt.msg, typed.Message())
			}
		})
	}
}

func TestDecodeJSONBodyTooLarge(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"`+strings.Repeat("a", 256)+`@b.co"}`))
	req.Body = http.MaxBytesReader(rec, req.Body, 32)

	var payload exportPayload
	typed := pkgerrors.As(DecodeJSONBody(req, &payload))
	if typed == nil || typed.Message() != "request body too large" {
		t.Fatalf("expected body too large, got %v", typed)
	}
	if details, _ := typed.Details().(map[string]any); details["limit_bytes"] != int64(32) {
		t.Fatalf("expected limit detail, got %v", typed.Details())
	}
}

func TestKeySegmentTag(t *testing.T) {
	type roomPayload struct {
		JobID string `json:"job_id" validate:"required,keysegment"`
	}
	for value, ok := range map[string]bool{
		"job-1":   true,
		" job-1 ": true,
		"a/b":     false,
		"ROOM#1":  false,
		"   ":     false,
	} {
		err := validate.Struct(roomPayload{JobID: value})
		if (err == nil) != ok {
			t.Fatalf("keysegment(%q): expected ok=%v, got %v", value, ok, err)
		}
		if !ok && value != "   " {
			details, _ := formatValidationErrors(err).Details().(map[string]string)
			if details["job_id"] != `must not be blank or contain "#" or "/"` {
				t.Fatalf("unexpected message %v", details)
			}
		}
	}
}

func TestIsHTTPURL(t *testing.T) {
	cases := map[string]bool{
		"https://cdn.example.com/v.mp4": true,
		" http://cdn.example.com/v.mp4 ": true,
		"file:///etc/passwd":            false,
		"concat:a.mp4|b.mp4":            false,
		"ftp://cdn.example.com/v.mp4":   false,
		"/local/v.mp4":                  false,
		"":                              false,
	}
	for value, want := range cases {
		if got := IsHTTPURL(value); got != want {
			t.Errorf("IsHTTPURL(%q) = %v, want %v", value, got, want)
		}
	}
}
