package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/storyframe-backend/api/middleware"
	"github.com/angelmondragon/storyframe-backend/api/responses"
	"github.com/angelmondragon/storyframe-backend/api/validators"
	"github.com/angelmondragon/storyframe-backend/internal/media"
	pkgerrors "github.com/angelmondragon/storyframe-backend/pkg/errors"
	"github.com/angelmondragon/storyframe-backend/pkg/logger"
)

// UploadLimits bounds multipart request sizes.
type UploadLimits struct {
	MaxBytes  int64
	MaxMemory int64
}

// multipart framing overhead allowed on top of the file ceiling; the store
// enforces the exact file size.
const formOverheadBytes = 1 << 20

func (l UploadLimits) requestCeiling() int64 {
	if l.MaxBytes <= 0 {
		return 0
	}
	return l.MaxBytes + formOverheadBytes
}

// MediaUpload ingests a photo and returns the generated questions. Analysis
// failures still yield 201 with analysis_pending set.
func MediaUpload(svc media.Service, limits UploadLimits, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "media service unavailable"))
			return
		}

		ownerID := middleware.UserUUIDFromContext(r.Context())
		if ownerID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}

		if err := validators.ParseMultipart(w, r, limits.requestCeiling(), limits.MaxMemory); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		file, err := validators.FormFile(r, "file", true)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		albumID, err := validators.FormUUID(r, "album_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Ingest(r.Context(), media.IngestInput{
			OwnerID:     &ownerID,
			AlbumID:     albumID,
			FileName:    file.FileName,
			ContentType: file.ContentType,
			Data:        file.Data,
			Size:        file.Size,
			AuthToken:   middleware.AuthTokenFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// MediaReanalyze re-runs analysis for stored media.
func MediaReanalyze(svc media.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mediaID, err := validators.URLParamUUID(r, "mediaId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Reanalyze(r.Context(), mediaID, middleware.AuthTokenFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
