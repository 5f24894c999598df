// Package events publishes pipeline domain events to the Pub/Sub events topic.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storyframe-backend/pkg/logger"
)

const envelopeVersion = 1

// Type names a domain event.
type Type string

const (
	TypeMediaAnalyzed  Type = "media.analyzed"
	TypeAnswerRecorded Type = "answer.recorded"
	TypeStoryGenerated Type = "story.generated"
)

// Event is a domain event ready to be enveloped and published.
type Event struct {
	Type        Type
	AggregateID uuid.UUID
	ActorID     *uuid.UUID
	Data        any
}

// Envelope is the stable message body published for every event.
type Envelope struct {
	Version     int             `json:"version"`
	EventID     string          `json:"eventId"`
	EventType   Type            `json:"eventType"`
	AggregateID string          `json:"aggregateId"`
	OccurredAt  time.Time       `json:"occurredAt"`
	ActorID     *uuid.UUID      `json:"actorId,omitempty"`
	Data        json.RawMessage `json:"data"`
}

type MediaAnalyzed struct {
	MediaID       uuid.UUID `json:"mediaId"`
	QuestionCount int       `json:"questionCount"`
}

type AnswerRecorded struct {
	AnswerID   uuid.UUID `json:"answerId"`
	QuestionID uuid.UUID `json:"questionId"`
	Source     string    `json:"source"`
}

type StoryGenerated struct {
	StoryID uuid.UUID `json:"storyId"`
	MediaID uuid.UUID `json:"mediaId"`
	Style   string    `json:"style"`
	Length  string    `json:"length"`
}

type transport interface {
	Publish(ctx context.Context, data []byte, attrs map[string]string) (string, error)
}

// Publisher sends events best-effort. Failures are logged and never reach
// the caller. A Publisher without a transport drops every event.
type Publisher struct {
	transport transport
	logg      *logger.Logger
	now       func() time.Time
}

func NewPublisher(t transport, logg *logger.Logger) *Publisher {
	return &Publisher{transport: t, logg: logg, now: time.Now}
}

// Noop returns a publisher that drops every event.
func Noop() *Publisher {
	return &Publisher{now: time.Now}
}

func (p *Publisher) Publish(ctx context.Context, event Event) {
	if p == nil || p.transport == nil {
		return
	}

	body, err := p.encode(event)
	if err != nil {
		p.logError(ctx, event, "events.encode_failed", err)
		return
	}

	attrs := map[string]string{
		"event_type":   string(event.Type),
		"aggregate_id": event.AggregateID.String(),
	}
	if _, err := p.transport.Publish(ctx, body, attrs); err != nil {
		p.logError(ctx, event, "events.publish_failed", err)
		return
	}
	if p.logg != nil {
		p.logg.Debug(p.logg.WithField(ctx, "event_type", string(event.Type)), "events.published")
	}
}

func (p *Publisher) encode(event Event) ([]byte, error) {
	data, err := json.Marshal(event.Data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{
		Version:     envelopeVersion,
		EventID:     uuid.NewString(),
		EventType:   event.Type,
		AggregateID: event.AggregateID.String(),
		OccurredAt:  p.now().UTC(),
		ActorID:     event.ActorID,
		Data:        data,
	})
}

func (p *Publisher) logError(ctx context.Context, event Event, msg string, err error) {
	if p.logg == nil {
		return
	}
	p.logg.Error(p.logg.WithField(ctx, "event_type", string(event.Type)), msg, err)
}
