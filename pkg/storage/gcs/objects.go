package gcs

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// ErrObjectNotFound is returned by Delete when the object does not exist.
var ErrObjectNotFound = errors.New("gcs object not found")

var errNoObject = errors.New("object name is required")

// Upload streams body into the bucket under object and returns its public URL.
func (c *Client) Upload(ctx context.Context, object, contentType string, body io.Reader) (string, error) {
	object = strings.TrimLeft(object, "/")
	if object == "" {
		return "", errNoObject
	}

	_, err := c.call(ctx, request{
		method:      http.MethodPost,
		path:        "/upload/storage/v1/b/" + url.PathEscape(c.bucket) + "/o",
		query:       url.Values{"uploadType": {"media"}, "name": {object}},
		contentType: contentType,
		body:        body,
		ok:          []int{http.StatusOK},
		op:          "gcs upload " + object,
	})
	if err != nil {
		return "", err
	}
	return c.PublicURL(object), nil
}

func (c *Client) Delete(ctx context.Context, object string) error {
	object = strings.TrimLeft(object, "/")
	if object == "" {
		return errNoObject
	}

	status, err := c.call(ctx, request{
		method: http.MethodDelete,
		path:   "/storage/v1/b/" + url.PathEscape(c.bucket) + "/o/" + url.PathEscape(object),
		ok:     []int{http.StatusOK, http.StatusNoContent},
		op:     "gcs delete " + object,
	})
	if status == http.StatusNotFound {
		return ErrObjectNotFound
	}
	return err
}

// PublicURL is the address clients and the analysis engine fetch object from.
func (c *Client) PublicURL(object string) string {
	return c.publicPrefix() + strings.TrimLeft(object, "/")
}

// ObjectFromURL reverses PublicURL.
func (c *Client) ObjectFromURL(raw string) (string, bool) {
	object, ok := strings.CutPrefix(raw, c.publicPrefix())
	return object, ok && object != ""
}

func (c *Client) publicPrefix() string {
	return c.publicBase + "/" + c.bucket + "/"
}
