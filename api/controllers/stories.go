package controllers

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/storyframe-backend/api/responses"
	"github.com/angelmondragon/storyframe-backend/api/validators"
	"github.com/angelmondragon/storyframe-backend/internal/stories"
	"github.com/angelmondragon/storyframe-backend/pkg/logger"
)

type generateStoryRequest struct {
	Style  string `json:"style" validate:"omitempty,max=64"`
	Length string `json:"length" validate:"omitempty,max=32"`
}

// GenerateStory synthesizes the single story for a media item.
func GenerateStory(svc stories.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mediaID, err := validators.URLParamUUID(r, "mediaId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload generateStoryRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		story, err := svc.Generate(r.Context(), stories.GenerateInput{
			MediaID: mediaID,
			Style:   strings.TrimSpace(payload.Style),
			Length:  strings.TrimSpace(payload.Length),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, story)
	}
}

func GetStory(svc stories.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mediaID, err := validators.URLParamUUID(r, "mediaId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		story, err := svc.Get(r.Context(), mediaID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, story)
	}
}
