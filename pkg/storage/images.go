// Package storage validates and stores uploaded photos on an object store.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"path"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/storyframe-backend/pkg/errors"
)

// DefaultMaxImageBytes is the upload ceiling applied when none is configured.
const DefaultMaxImageBytes int64 = 10 * 1024 * 1024

// allowed declared types mapped to the canonical type the sniffer reports.
var allowedImageTypes = map[string]string{
	"image/jpeg": "image/jpeg",
	"image/jpg":  "image/jpeg",
	"image/png":  "image/png",
	"image/gif":  "image/gif",
}

var unsafeNameRe = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// ObjectStore is the transport an ImageStore writes through.
type ObjectStore interface {
	Upload(ctx context.Context, object, contentType string, body io.Reader) (string, error)
	Delete(ctx context.Context, object string) error
	ObjectFromURL(raw string) (string, bool)
}

// ImageStore accepts photos up to a size ceiling in a small set of formats.
type ImageStore struct {
	objects  ObjectStore
	maxBytes int64
}

func NewImageStore(objects ObjectStore, maxBytes int64) (*ImageStore, error) {
	if objects == nil {
		return nil, fmt.Errorf("object store required")
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxImageBytes
	}
	return &ImageStore{objects: objects, maxBytes: maxBytes}, nil
}

// Put validates data and uploads it under objectPath, returning the public URL.
func (s *ImageStore) Put(ctx context.Context, data []byte, contentType, objectPath string) (string, error) {
	declared, err := s.Validate(data, contentType)
	if err != nil {
		return "", err
	}

	url, err := s.objects.Upload(ctx, objectPath, declared, bytes.NewReader(data))
	if err != nil {
		return "", pkgerrors.External("blob store", err)
	}
	return url, nil
}

// Delete removes the object behind a URL previously returned by Put.
func (s *ImageStore) Delete(ctx context.Context, url string) error {
	object, ok := s.objects.ObjectFromURL(url)
	if !ok {
		return pkgerrors.New(pkgerrors.CodeValidation, "url does not belong to this store")
	}
	if err := s.objects.Delete(ctx, object); err != nil {
		return pkgerrors.External("blob store", err)
	}
	return nil
}

// Validate checks size, declared type and sniffed content, returning the
// normalized declared type.
func (s *ImageStore) Validate(data []byte, contentType string) (string, error) {
	if len(data) == 0 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "file is empty")
	}
	if int64(len(data)) > s.maxBytes {
		return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("file exceeds %dMB limit", s.maxBytes/(1024*1024))).
			WithDetails(map[string]any{"size": len(data), "max_bytes": s.maxBytes})
	}

	declared := normalizeContentType(contentType)
	canonical, ok := allowedImageTypes[declared]
	if !ok {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "unsupported file type").
			WithDetails(map[string]any{"content_type": contentType, "allowed": "image/jpeg, image/jpg, image/png, image/gif"})
	}

	sniffed := mimetype.Detect(data)
	if !sniffed.Is(canonical) {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "file content does not match declared type").
			WithDetails(map[string]any{"declared": declared, "detected": sniffed.String()})
	}
	return declared, nil
}

// MediaObjectPath builds the object key for a media upload.
func MediaObjectPath(mediaID uuid.UUID, fileName string) string {
	name := unsafeNameRe.ReplaceAllString(path.Base(strings.TrimSpace(fileName)), "_")
	name = strings.Trim(name, "._")
	if name == "" {
		name = "upload"
	}
	return fmt.Sprintf("media/%s/%s", mediaID, name)
}

func normalizeContentType(value string) string {
	value = strings.TrimSpace(value)
	if parsed, _, err := mime.ParseMediaType(value); err == nil {
		value = parsed
	}
	return strings.ToLower(value)
}
