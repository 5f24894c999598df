package answers

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storyframe-backend/internal/audio"
	"github.com/angelmondragon/storyframe-backend/internal/deps"
	"github.com/angelmondragon/storyframe-backend/internal/questions"
	"github.com/angelmondragon/storyframe-backend/internal/speech"
	"github.com/angelmondragon/storyframe-backend/pkg/config"
	"github.com/angelmondragon/storyframe-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storyframe-backend/pkg/db/models"
	"github.com/angelmondragon/storyframe-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storyframe-backend/pkg/errors"
)

type stubCodec struct {
	err   error
	calls int
}

func (c *stubCodec) ToFLAC(_ context.Context, src, dst string) error {
	c.calls++
	if c.err != nil {
		return c.err
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o600)
}

func (c *stubCodec) Requirement() deps.Requirement {
	return deps.Requirement{Name: "ffmpeg", Command: "ffmpeg"}
}

type stubTranscriber struct {
	text     string
	err      error
	calls    int
	got      speech.Audio
	existed  bool
	encoding string
}

func (s *stubTranscriber) Transcribe(_ context.Context, a speech.Audio) (string, error) {
	s.calls++
	s.got = a
	_, statErr := os.Stat(a.Path)
	s.existed = statErr == nil
	s.encoding = speech.EncodingFor(a.ContentType, a.FileName)
	return s.text, s.err
}

type fixture struct {
	svc         Service
	conn        *gorm.DB
	codec       *stubCodec
	transcriber *stubTranscriber
	scratch     string
	question    *models.Question
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	conn := dbtest.OpenMigrated(t)

	m := &models.Media{FileURL: "https://storage.test/bucket/media/a/photo.jpg", FileType: "image/jpeg"}
	require.NoError(t, conn.Create(m).Error)
	q := &models.Question{MediaID: m.ID, Content: "Where was this?", Theme: enums.QuestionThemeSeniorCare, Level: 1}
	require.NoError(t, conn.Create(q).Error)

	scratch := t.TempDir()
	codec := &stubCodec{}
	normalizer, err := audio.NewNormalizer(config.CodecConfig{ScratchDir: scratch, Timeout: time.Second}, codec)
	require.NoError(t, err)

	tr := &stubTranscriber{text: "we drove to the coast"}
	svc, err := NewService(ServiceParams{
		Repo:        NewRepository(conn),
		Questions:   questions.NewRepository(conn),
		Normalizer:  normalizer,
		Transcriber: tr,
	})
	require.NoError(t, err)

	return fixture{svc: svc, conn: conn, codec: codec, transcriber: tr, scratch: scratch, question: q}
}

func (f fixture) answerCount(t *testing.T) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.conn.Model(&models.Answer{}).Count(&count).Error)
	return count
}

func requireScratchEmpty(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries, "scratch dir should be cleaned up")
}

func TestSubmitText(t *testing.T) {
	f := newFixture(t)
	author := uuid.New()

	answer, err := f.svc.Submit(context.Background(), SubmitInput{
		QuestionID: f.question.ID,
		AuthorID:   author,
		Text:       "At grandma's house",
		IsPrivate:  true,
	})
	require.NoError(t, err)
	require.Equal(t, "At grandma's house", answer.Content)
	require.Equal(t, enums.AnswerSourceText, answer.Source)
	require.True(t, answer.IsPrivate)
	require.Zero(t, f.transcriber.calls)

	list, err := f.svc.ListByQuestion(context.Background(), f.question.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, author, list[0].AuthorID)
}

func TestSubmitRequiresTextOrAudio(t *testing.T) {
	f := newFixture(t)

	cases := []SubmitInput{
		{QuestionID: f.question.ID, AuthorID: uuid.New()},
		{QuestionID: f.question.ID, AuthorID: uuid.New(), Text: "   "},
		{QuestionID: f.question.ID, AuthorID: uuid.New(), Audio: &AudioClip{FileName: "a.wav"}},
		{QuestionID: f.question.ID, Text: "no author"},
	}
	for i, input := range cases {
		_, err := f.svc.Submit(context.Background(), input)
		require.Truef(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "case %d: got %v", i, err)
	}
	require.Zero(t, f.answerCount(t))
}

func TestSubmitUnknownQuestionSkipsTranscription(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Submit(context.Background(), SubmitInput{
		QuestionID: uuid.New(),
		AuthorID:   uuid.New(),
		Audio:      &AudioClip{FileName: "a.wav", ContentType: "audio/wav", Data: []byte("RIFF")},
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)
	require.Zero(t, f.transcriber.calls)
	require.Zero(t, f.codec.calls)
}

func TestSubmitWavPassthrough(t *testing.T) {
	f := newFixture(t)

	answer, err := f.svc.Submit(context.Background(), SubmitInput{
		QuestionID: f.question.ID,
		AuthorID:   uuid.New(),
		Text:       "ignored when audio is present",
		Audio:      &AudioClip{FileName: "answer.wav", ContentType: "audio/wav", Data: []byte("RIFF....WAVE")},
	})
	require.NoError(t, err)
	require.Equal(t, "we drove to the coast", answer.Content)
	require.Equal(t, enums.AnswerSourceAudio, answer.Source)

	require.Zero(t, f.codec.calls, "wav should not be converted")
	require.True(t, f.transcriber.existed)
	require.Equal(t, speech.EncodingLinear16, f.transcriber.encoding)
	require.Equal(t, "input.wav", filepath.Base(f.transcriber.got.Path))
	requireScratchEmpty(t, f.scratch)
}

func TestSubmitM4AConvertsToFLAC(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Submit(context.Background(), SubmitInput{
		QuestionID: f.question.ID,
		AuthorID:   uuid.New(),
		Audio:      &AudioClip{FileName: "answer.m4a", ContentType: "audio/mp4", Data: []byte("ftypM4A")},
	})
	require.NoError(t, err)
	require.Equal(t, 1, f.codec.calls)
	require.Equal(t, speech.EncodingFLAC, f.transcriber.encoding)
	requireScratchEmpty(t, f.scratch)
}

func TestSubmitCodecMissingIsExternal(t *testing.T) {
	f := newFixture(t)
	f.codec.err = audio.ErrCodecMissing

	_, err := f.svc.Submit(context.Background(), SubmitInput{
		QuestionID: f.question.ID,
		AuthorID:   uuid.New(),
		Audio:      &AudioClip{FileName: "answer.m4a", ContentType: "audio/mp4", Data: []byte("ftypM4A")},
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeExternalService), "got %v", err)
	require.Zero(t, f.transcriber.calls)
	require.Zero(t, f.answerCount(t))
	requireScratchEmpty(t, f.scratch)
}

func TestSubmitTranscriptionFailureSavesNothing(t *testing.T) {
	f := newFixture(t)
	f.transcriber.err = errors.New("speech recognize: quota")

	_, err := f.svc.Submit(context.Background(), SubmitInput{
		QuestionID: f.question.ID,
		AuthorID:   uuid.New(),
		Audio:      &AudioClip{FileName: "answer.flac", ContentType: "audio/flac", Data: []byte("fLaC")},
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeExternalService), "got %v", err)
	require.Zero(t, f.answerCount(t))
	requireScratchEmpty(t, f.scratch)
}

func TestSubmitAppendsNewRows(t *testing.T) {
	f := newFixture(t)
	author := uuid.New()

	for _, text := range []string{"first", "second"} {
		_, err := f.svc.Submit(context.Background(), SubmitInput{QuestionID: f.question.ID, AuthorID: author, Text: text})
		require.NoError(t, err)
	}
	require.EqualValues(t, 2, f.answerCount(t))
}
