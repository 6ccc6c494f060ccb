package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/nikhil/clashforge/internal/logger"
	"github.com/nikhil/clashforge/internal/models"
)

type fakeRegistry struct {
	mu      sync.Mutex
	conns   []*models.Connection
	deleted []string
}

func (r *fakeRegistry) ListConnections(context.Context) ([]*models.Connection, error) {
	return r.conns, nil
}

func (r *fakeRegistry) DeleteConnection(_ context.Context, connectionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted = append(r.deleted, connectionID)
	return nil
}

type fakeSender struct {
	mu       sync.Mutex
	failures map[string]error
	sent     map[string][]byte
}

func (s *fakeSender) Send(_ context.Context, connectionID string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.failures[connectionID]; ok {
		return err
	}
	if s.sent == nil {
		s.sent = make(map[string][]byte)
	}
	s.sent[connectionID] = payload
	return nil
}

type fakeRecorder struct {
	mu      sync.Mutex
	records []*models.EventRecord
}

func (r *fakeRecorder) Append(_ context.Context, rec *models.EventRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	return nil
}

func connections(ids ...string) []*models.Connection {
	out := make([]*models.Connection, 0, len(ids))
	for _, id := range ids {
		out = append(out, &models.Connection{ConnectionID: id})
	}
	return out
}

func TestBroadcastFanOut(t *testing.T) {
	registry := &fakeRegistry{conns: connections("c-1", "c-2", "c-3")}
	sender := &fakeSender{}
	recorder := &fakeRecorder{}
	b := NewBroadcaster(registry, sender, recorder, logger.NewLogger("broadcast-test"))

	summary := b.Broadcast(context.Background(), Event{
		Type:         "teams.locked",
		Data:         map[string]string{"teamId": "team-1"},
		TournamentID: "t-1",
		CausedBy:     "u-1",
	})

	if summary.Attempted != 3 || summary.Pruned != 0 || summary.Failed != 0 {
		t.Errorf("summary = %+v", summary)
	}
	if len(sender.sent) != 3 {
		t.Errorf("sent to %d connections, want 3", len(sender.sent))
	}

	var envelope models.Envelope
	if err := json.Unmarshal(sender.sent["c-1"], &envelope); err != nil {
		t.Fatalf("payload not an envelope: %v", err)
	}
	if envelope.Type != "teams.locked" || envelope.TournamentID != "t-1" {
		t.Errorf("envelope = %+v", envelope)
	}
	if envelope.Timestamp == "" {
		t.Error("envelope missing timestamp")
	}

	if len(recorder.records) != 1 {
		t.Fatalf("recorded %d events, want 1", len(recorder.records))
	}
	if recorder.records[0].CausedBy != "u-1" {
		t.Errorf("record causedBy = %q", recorder.records[0].CausedBy)
	}
}

func TestBroadcastPrunesGoneConnections(t *testing.T) {
	registry := &fakeRegistry{conns: connections("c-1", "c-2", "c-3")}
	sender := &fakeSender{failures: map[string]error{"c-2": ErrConnectionGone}}
	b := NewBroadcaster(registry, sender, nil, logger.NewLogger("broadcast-test"))

	summary := b.Broadcast(context.Background(), Event{Type: "team.created", TournamentID: "t-1"})

	if summary.Attempted != 3 || summary.Pruned != 1 || summary.Failed != 0 {
		t.Errorf("summary = %+v", summary)
	}
	if len(registry.deleted) != 1 || registry.deleted[0] != "c-2" {
		t.Errorf("deleted = %v, want [c-2]", registry.deleted)
	}
	if len(sender.sent) != 2 {
		t.Errorf("sent to %d connections, want 2", len(sender.sent))
	}
}

func TestBroadcastTransientFailuresDoNotPrune(t *testing.T) {
	registry := &fakeRegistry{conns: connections("c-1", "c-2")}
	sender := &fakeSender{failures: map[string]error{"c-1": errors.New("write timeout")}}
	b := NewBroadcaster(registry, sender, nil, logger.NewLogger("broadcast-test"))

	summary := b.Broadcast(context.Background(), Event{Type: "role.claimed", TournamentID: "t-1"})

	if summary.Failed != 1 || summary.Pruned != 0 {
		t.Errorf("summary = %+v", summary)
	}
	if len(registry.deleted) != 0 {
		t.Errorf("deleted = %v, want none", registry.deleted)
	}
}

func TestBroadcastNoSenderIsNoOp(t *testing.T) {
	registry := &fakeRegistry{conns: connections("c-1")}
	b := NewBroadcaster(registry, nil, nil, logger.NewLogger("broadcast-test"))

	summary := b.Broadcast(context.Background(), Event{Type: "team.created"})
	if summary.Attempted != 0 {
		t.Errorf("summary = %+v, want nothing attempted", summary)
	}
}
