package validators

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/storyframe-backend/pkg/errors"
)

// FilePart is an uploaded multipart file read into memory.
type FilePart struct {
	FileName    string
	ContentType string
	Size        int64
	Data        []byte
}

// ParseMultipart bounds the request body to maxBytes and parses the form.
func ParseMultipart(w http.ResponseWriter, r *http.Request, maxBytes, maxMemory int64) error {
	if maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	}
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return pkgerrors.New(pkgerrors.CodeValidation, "request body too large").WithDetails(map[string]any{"max_bytes": maxBytes})
		}
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart form")
	}
	return nil
}

// FormFile reads a file field. It returns nil without error when the field
// is absent and required is false.
func FormFile(r *http.Request, field string, required bool) (*FilePart, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) && !required {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "file is required").WithDetails(map[string]any{"field": field})
	}
	defer func(f multipart.File) { _ = f.Close() }(file)

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read uploaded file").WithDetails(map[string]any{"field": field})
	}
	return &FilePart{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Data:        data,
	}, nil
}

// FormUUID parses an optional uuid form value.
func FormUUID(r *http.Request, field string) (*uuid.UUID, error) {
	raw := strings.TrimSpace(r.FormValue(field))
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid uuid").WithDetails(map[string]any{"field": field})
	}
	return &id, nil
}

// FormBool parses an optional boolean form value. Blank means false.
func FormBool(r *http.Request, field string) (bool, error) {
	raw := strings.TrimSpace(r.FormValue(field))
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "must be a boolean").WithDetails(map[string]any{"field": field})
	}
	return v, nil
}
