package controllers

import (
	"net/http"

	"github.com/angelmondragon/storyframe-backend/api/middleware"
	"github.com/angelmondragon/storyframe-backend/api/responses"
	"github.com/angelmondragon/storyframe-backend/api/validators"
	"github.com/angelmondragon/storyframe-backend/internal/answers"
	"github.com/angelmondragon/storyframe-backend/pkg/logger"
)

// SubmitAnswer accepts a multipart answer with a text field, an audio file,
// or both.
func SubmitAnswer(svc answers.Service, limits UploadLimits, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		questionID, err := validators.URLParamUUID(r, "questionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := validators.ParseMultipart(w, r, limits.requestCeiling(), limits.MaxMemory); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		audio, err := validators.FormFile(r, "audio", false)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		isPrivate, err := validators.FormBool(r, "is_private")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := answers.SubmitInput{
			QuestionID: questionID,
			AuthorID:   middleware.UserUUIDFromContext(r.Context()),
			Text:       r.FormValue("text"),
			IsPrivate:  isPrivate,
		}
		if audio != nil {
			input.Audio = &answers.AudioClip{
				FileName:    audio.FileName,
				ContentType: audio.ContentType,
				Data:        audio.Data,
			}
		}

		answer, err := svc.Submit(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, answer)
	}
}

func ListAnswers(svc answers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		questionID, err := validators.URLParamUUID(r, "questionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, err := svc.ListByQuestion(r.Context(), questionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}
