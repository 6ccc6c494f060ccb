package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/nikhil/clashforge/internal/logger"
	"github.com/nikhil/clashforge/internal/models"
)

// ErrConnectionGone is the permanent-failure signal a Sender returns when
// the remote endpoint is gone for good. It is the trigger for registry
// pruning; any other delivery error is transient and only logged.
var ErrConnectionGone = errors.New("connection gone")

// Registry is the connection store the broadcaster scans and self-heals.
type Registry interface {
	ListConnections(ctx context.Context) ([]*models.Connection, error)
	DeleteConnection(ctx context.Context, connectionID string) error
}

// Sender delivers one payload to one connection.
type Sender interface {
	Send(ctx context.Context, connectionID string, payload []byte) error
}

// Recorder appends immutable audit rows for delivered events.
type Recorder interface {
	Append(ctx context.Context, rec *models.EventRecord) error
}

// Event is a state-change notification to fan out.
type Event struct {
	Type         string
	Data         any
	TournamentID string
	CausedBy     string
}

// Summary describes one broadcast attempt. Delivery is at-least-once,
// best-effort: the summary reports what was tried, never a guarantee.
type Summary struct {
	EventType string
	Attempted int
	Pruned    int
	Failed    int
}

// Broadcaster fans an event out to every registered connection. A nil
// sender means no delivery endpoint is configured for this environment;
// broadcasts then no-op with a log line. A nil recorder disables the audit
// log.
type Broadcaster struct {
	registry Registry
	sender   Sender
	recorder Recorder
	log      *logger.Logger
}

func NewBroadcaster(registry Registry, sender Sender, recorder Recorder, log *logger.Logger) *Broadcaster {
	return &Broadcaster{registry: registry, sender: sender, recorder: recorder, log: log}
}

// Broadcast delivers the event envelope to all connections concurrently.
// Per-connection failures never abort the batch; connections reporting
// ErrConnectionGone are deleted from the registry on the spot.
func (b *Broadcaster) Broadcast(ctx context.Context, event Event) Summary {
	summary := Summary{EventType: event.Type}

	if b.sender == nil {
		b.log.Warn("no delivery endpoint configured, dropping event", "eventType", event.Type)
		return summary
	}

	conns, err := b.registry.ListConnections(ctx)
	if err != nil {
		b.log.Error("failed to list connections", "eventType", event.Type, "error", err)
		return summary
	}

	envelope := models.Envelope{
		Type:         event.Type,
		Data:         event.Data,
		TournamentID: event.TournamentID,
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		b.log.Error("failed to encode event", "eventType", event.Type, "error", err)
		return summary
	}

	summary.Attempted = len(conns)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		delivery error
		pruned   int
	)
	for _, conn := range conns {
		wg.Add(1)
		go func(connectionID string) {
			defer wg.Done()
			err := b.sender.Send(ctx, connectionID, payload)
			if err == nil {
				return
			}
			if errors.Is(err, ErrConnectionGone) {
				if delErr := b.registry.DeleteConnection(ctx, connectionID); delErr != nil {
					b.log.Warn("failed to prune stale connection",
						"connectionId", connectionID, "error", delErr)
				}
				mu.Lock()
				pruned++
				mu.Unlock()
				return
			}
			mu.Lock()
			delivery = multierr.Append(delivery, fmt.Errorf("connection %s: %w", connectionID, err))
			mu.Unlock()
		}(conn.ConnectionID)
	}
	wg.Wait()

	summary.Pruned = pruned
	summary.Failed = len(multierr.Errors(delivery))

	if b.recorder != nil {
		rec := &models.EventRecord{
			Type:         event.Type,
			TournamentID: event.TournamentID,
			CausedBy:     event.CausedBy,
			Payload:      payload,
			CreatedAt:    time.Now().UTC(),
		}
		if err := b.recorder.Append(ctx, rec); err != nil {
			b.log.Warn("event log append failed", "eventType", event.Type, "error", err)
		}
	}

	if delivery != nil {
		b.log.Warn("some deliveries failed",
			"eventType", event.Type, "failed", summary.Failed, "error", delivery)
	}
	b.log.Audit("broadcast completed",
		"eventType", event.Type,
		"connectionCount", summary.Attempted,
		"pruned", summary.Pruned,
		"tournamentId", event.TournamentID,
		"causedBy", event.CausedBy)
	return summary
}
