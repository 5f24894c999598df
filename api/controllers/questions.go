package controllers

import (
	"net/http"

	"github.com/angelmondragon/storyframe-backend/api/middleware"
	"github.com/angelmondragon/storyframe-backend/api/responses"
	"github.com/angelmondragon/storyframe-backend/api/validators"
	"github.com/angelmondragon/storyframe-backend/internal/questions"
	"github.com/angelmondragon/storyframe-backend/pkg/logger"
)

type createQuestionRequest struct {
	Content   string `json:"content" validate:"required,max=2000"`
	Theme     string `json:"theme" validate:"omitempty,max=32"`
	Category  string `json:"category" validate:"omitempty,max=64"`
	Level     int    `json:"level" validate:"omitempty,min=1"`
	IsPrivate bool   `json:"is_private"`
}

// ListMediaQuestions returns the questions attached to a media item in
// creation order.
func ListMediaQuestions(svc questions.Service, logg *logger.Logger) http.HandlerFunc {
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

func CreateMediaQuestion(svc questions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mediaID, err := validators.URLParamUUID(r, "mediaId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createQuestionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		question, err := svc.Create(r.Context(), questions.CreateInput{
			MediaID:   mediaID,
			AuthorID:  middleware.UserUUIDFromContext(r.Context()),
			Content:   payload.Content,
			Theme:     payload.Theme,
			Category:  payload.Category,
			Level:     payload.Level,
			IsPrivate: payload.IsPrivate,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, question)
	}
}
