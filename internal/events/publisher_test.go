package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

type stubTransport struct {
	data  []byte
	attrs map[string]string
	calls int
	err   error
}

func (s *stubTransport) Publish(_ context.Context, data []byte, attrs map[string]string) (string, error) {
	s.calls++
	s.data = data
	s.attrs = attrs
	return "msg-1", s.err
}

func TestPublishWrapsEventInEnvelope(t *testing.T) {
	transport := &stubTransport{}
	pub := NewPublisher(transport, nil)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	pub.now = func() time.Time { return fixed }

	mediaID := uuid.New()
	storyID := uuid.New()
	pub.Publish(context.Background(), Event{
		Type:        TypeStoryGenerated,
		AggregateID: mediaID,
		Data:        StoryGenerated{StoryID: storyID, MediaID: mediaID, Style: "narrative", Length: "short"},
	})

	if transport.calls != 1 {
		t.Fatalf("expected one publish, got %d", transport.calls)
	}
	if transport.attrs["event_type"] != "story.generated" || transport.attrs["aggregate_id"] != mediaID.String() {
		t.Fatalf("unexpected attrs %v", transport.attrs)
	}

	var env Envelope
	if err := json.Unmarshal(transport.data, &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if env.Version != 1 || env.EventType != TypeStoryGenerated || !env.OccurredAt.Equal(fixed) || env.EventID == "" {
		t.Fatalf("unexpected envelope %+v", env)
	}
	var data StoryGenerated
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if data.StoryID != storyID || data.Length != "short" {
		t.Fatalf("unexpected data %+v", data)
	}
}

func TestPublishSwallowsTransportErrors(t *testing.T) {
	transport := &stubTransport{err: errors.New("topic gone")}
	NewPublisher(transport, nil).Publish(context.Background(), Event{Type: TypeAnswerRecorded, AggregateID: uuid.New()})
	if transport.calls != 1 {
		t.Fatalf("expected publish attempt")
	}
}

func TestNoopAndNilPublisher(t *testing.T) {
	Noop().Publish(context.Background(), Event{Type: TypeMediaAnalyzed})
	var p *Publisher
	p.Publish(context.Background(), Event{Type: TypeMediaAnalyzed})
}
