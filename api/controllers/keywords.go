package controllers

import (
	"net/http"

	"github.com/angelmondragon/storyframe-backend/api/responses"
	"github.com/angelmondragon/storyframe-backend/api/validators"
	"github.com/angelmondragon/storyframe-backend/internal/keywords"
	"github.com/angelmondragon/storyframe-backend/pkg/logger"
)

// ListMediaKeywords returns the keywords derived for a media item with their confidence.
func ListMediaKeywords(svc keywords.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mediaID, err := validators.URLParamUUID(r, "mediaId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, err := svc.ListByMedia(r.Context(), mediaID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}
