package validators

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/storyframe-backend/pkg/errors"
)

type storyBody struct {
	Style  string `json:"style" validate:"omitempty,max=32"`
	Length string `json:"length" validate:"omitempty,oneof=short medium long"`
}

func TestDecodeJSONBodyAcceptsEmptyBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	var body storyBody
	if err := DecodeJSONBody(req, &body); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"tone":"sad"}`))
	var body storyBody
	err := DecodeJSONBody(req, &body)
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDecodeJSONBodyRejectsTrailingData(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"style":"poem"}{"style":"epic"}`))
	var body storyBody
	if err := DecodeJSONBody(req, &body); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for concatenated objects, got %v", err)
	}
}

func TestDecodeJSONBodyReportsFieldErrors(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"length":"epic"}`))
	var body storyBody
	err := DecodeJSONBody(req, &body)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, ok := typed.Details().(map[string]string)
	if !ok || !strings.HasPrefix(details["length"], "must be one of") {
		t.Fatalf("unexpected details %#v", typed.Details())
	}
}

func multipartRequest(t *testing.T, fields map[string]string, file []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if file != nil {
		part, err := mw.CreateFormFile("file", "photo.png")
		if err != nil {
			t.Fatalf("create file: %v", err)
		}
		_, _ = part.Write(file)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestMultipartHelpers(t *testing.T) {
	albumID := uuid.New()
	req := multipartRequest(t, map[string]string{"album_id": albumID.String(), "is_private": "true"}, []byte("png-bytes"))
	if err := ParseMultipart(httptest.NewRecorder(), req, 1<<20, 1<<20); err != nil {
		t.Fatalf("parse: %v", err)
	}

	part, err := FormFile(req, "file", true)
	if err != nil || part == nil {
		t.Fatalf("expected file, got %v", err)
	}
	if part.FileName != "photo.png" || string(part.Data) != "png-bytes" {
		t.Fatalf("unexpected part %+v", part)
	}

	missing, err := FormFile(req, "audio", false)
	if err != nil || missing != nil {
		t.Fatalf("expected optional file to be absent, got %v %v", missing, err)
	}

	got, err := FormUUID(req, "album_id")
	if err != nil || got == nil || *got != albumID {
		t.Fatalf("unexpected album id %v %v", got, err)
	}

	private, err := FormBool(req, "is_private")
	if err != nil || !private {
		t.Fatalf("expected is_private true, got %v %v", private, err)
	}
}

func TestParseMultipartTooLarge(t *testing.T) {
	req := multipartRequest(t, nil, bytes.Repeat([]byte("a"), 4096))
	err := ParseMultipart(httptest.NewRecorder(), req, 512, 256)
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestURLParamUUID(t *testing.T) {
	id := uuid.New()
	rc := chi.NewRouteContext()
	rc.URLParams.Add("mediaId", id.String())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))

	got, err := URLParamUUID(req, "mediaId")
	if err != nil || got != id {
		t.Fatalf("unexpected %v %v", got, err)
	}

	rc.URLParams = chi.RouteParams{}
	rc.URLParams.Add("mediaId", "nope")
	if _, err := URLParamUUID(req, "mediaId"); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
