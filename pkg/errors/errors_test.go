package errors

import (
	stdErrors "errors"
	"net/http"
	"strings"
	"testing"
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
		{code: CodeUnauthorized, status: http.StatusUnauthorized, publicMsg: "authentication required"},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found"},
		{code: CodeDuplicate, status: http.StatusConflict, publicMsg: "resource already exists"},
		{code: CodeInsufficientData, status: http.StatusUnprocessableEntity, publicMsg: "not enough data to complete the request", detailsOK: true},
		{code: CodeExternalService, status: http.StatusBadGateway, publicMsg: "upstream service failed", retryable: true, detailsOK: true},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
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

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeDuplicate, cause, "ctx")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Code() != CodeDuplicate {
		t.Fatalf("unexpected code %s", wrapped.Code())
	}
}

func TestExternalKeepsUpstreamMessage(t *testing.T) {
	err := External("narrative engine", stdErrors.New("model overloaded"))
	if err.Code() != CodeExternalService {
		t.Fatalf("unexpected code %s", err.Code())
	}
	if !strings.Contains(err.Message(), "model overloaded") {
		t.Fatalf("expected upstream message in %q", err.Message())
	}
	details, ok := err.Details().(map[string]any)
	if !ok || details["service"] != "narrative engine" {
		t.Fatalf("unexpected details %#v", err.Details())
	}
}

func TestAsAndIsCode(t *testing.T) {
	inner := New(CodeValidation, "bad payload")
	outer := Wrap(CodeExternalService, inner, "analysis failed")

	if got := As(outer); got == nil || got.Code() != CodeExternalService {
		t.Fatalf("As should return outermost typed error")
	}
	if !IsCode(outer, CodeExternalService) {
		t.Fatalf("expected IsCode to match outer code")
	}
	if IsCode(outer, CodeValidation) {
		t.Fatalf("IsCode should only inspect outermost typed error")
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should return nil")
	}
}
