package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/aws/smithy-go"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/minio/minio-go/v7"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed", detailsOK: true},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found"},
		{code: CodeConflict, status: http.StatusConflict, publicMsg: "conflict detected"},
		{code: CodeIdempotency, status: http.StatusConflict, publicMsg: "idempotency key reused", detailsOK: true},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
		{code: CodeUpstream, status: http.StatusBadGateway, publicMsg: "upstream store failed", retryable: true},
		{code: CodePartialUpload, status: http.StatusBadGateway, publicMsg: "upload aborted after part failure", retryable: true, detailsOK: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "missing foo")
	if base.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", base.Code())
	}
	if base.Message() != "missing foo" {
		t.Fatalf("unexpected message %q", base.Message())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}

	base.WithDetails(map[string]any{"field": "foo"})
	if base.Details() == nil {
		t.Fatalf("details should be preserved")
	}

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeUpstream, cause, "begin multipart")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Code() != CodeUpstream {
		t.Fatalf("unexpected code %s", wrapped.Code())
	}
	if Wrap(CodeInternal, nil, "plain").Unwrap() != nil {
		t.Fatalf("Wrap(nil) should not carry a cause")
	}
}

func TestAsAndHasCode(t *testing.T) {
	err := fmt.Errorf("outer: %w", New(CodePartialUpload, "part 2 failed"))
	if got := As(err); got == nil || got.Code() != CodePartialUpload {
		t.Fatalf("As failed to return typed error through wrapping")
	}
	if !HasCode(err, CodePartialUpload) {
		t.Fatalf("expected HasCode to match")
	}
	if HasCode(err, CodeUpstream) {
		t.Fatalf("HasCode matched the wrong code")
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should return nil")
	}
}

func TestDumpCollectsChain(t *testing.T) {
	err := Wrap(CodeUpstream, stdErrors.New("connection reset"), "upload part")
	dump := Dump(err)
	if dump.Code != CodeUpstream {
		t.Fatalf("expected code in dump, got %s", dump.Code)
	}
	if len(dump.Chain) != 2 {
		t.Fatalf("expected chain of 2, got %v", dump.Chain)
	}
	if dump.PGCode != "" {
		t.Fatalf("unexpected pg code %q", dump.PGCode)
	}
}

func TestDumpCapturesStoreErrors(t *testing.T) {
	s3Err := Wrap(CodeUpstream, &smithy.GenericAPIError{Code: "SlowDown", Message: "reduce request rate"}, "upload part 3")
	dump := Dump(fmt.Errorf("coordinator: %w", s3Err))
	if dump.StoreCode != "SlowDown" || dump.StoreMessage != "reduce request rate" {
		t.Fatalf("unexpected s3 fields %+v", dump)
	}

	minioErr := Wrap(CodeUpstream, minio.ErrorResponse{Code: "NoSuchUpload", Message: "gone", RequestID: "r-1"}, "complete")
	dump = Dump(minioErr)
	if dump.StoreCode != "NoSuchUpload" || dump.StoreRequestID != "r-1" {
		t.Fatalf("unexpected minio fields %+v", dump)
	}
}

func TestDumpPrefersPostgresDetails(t *testing.T) {
	err := Wrap(CodeConflict, &pgconn.PgError{Code: "23505", ConstraintName: "inventory_items_pkey"}, "insert item")
	dump := Dump(err)
	if dump.PGCode != "23505" || dump.PGConstraint != "inventory_items_pkey" {
		t.Fatalf("unexpected pg fields %+v", dump)
	}
	if dump.StoreCode != "" {
		t.Fatalf("store fields should stay empty, got %q", dump.StoreCode)
	}
}

func TestNewfFormatsMessage(t *testing.T) {
	err := Newf(CodeInternal, "%s service unavailable", "room")
	if err.Message() != "room service unavailable" {
		t.Fatalf("unexpected message %q", err.Message())
	}
	if err.Unwrap() != nil {
		t.Fatal("Newf must not carry a cause")
	}
}
