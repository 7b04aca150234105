// Package events announces progression changes to other services. Events are
// published after the transaction that caused them commits; a lost event never
// rolls back the change itself.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

type Kind string

const (
	TournamentStarted   Kind = "started"
	MatchConcluded      Kind = "match.concluded"
	TournamentCompleted Kind = "completed"
	TournamentReset     Kind = "reset"
)

type Event struct {
	Kind         Kind       `json:"kind"`
	TournamentID uuid.UUID  `json:"tournament_id"`
	MatchID      *uuid.UUID `json:"match_id,omitempty"`
	WinnerID     *uuid.UUID `json:"winner_id,omitempty"`
	At           time.Time  `json:"at"`
}

// Subject is tournament.<id>.<kind>.
func (e Event) Subject() string {
	return fmt.Sprintf("tournament.%s.%s", e.TournamentID, e.Kind)
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

type NATSPublisher struct {
	conn *nats.Conn
}

type Options struct {
	URL   string
	Token string
}

func Connect(opts Options) (*NATSPublisher, error) {
	natsOpts := []nats.Option{
		nats.Name("op-tourney"),
	}

	// if token provided
	if opts.Token != "" {
		natsOpts = append(natsOpts, nats.Token(opts.Token))
	}

	conn, err := nats.Connect(opts.URL, natsOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", opts.URL, err)
	}
	return &NATSPublisher{conn: conn}, nil
}

func (p *NATSPublisher) Publish(_ context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.conn.Publish(event.Subject(), data)
}

// Close flushes pending messages before closing the connection.
func (p *NATSPublisher) Close() {
	if err := p.conn.Drain(); err != nil {
		slog.Warn("failed to drain NATS connection", "error", err)
	}
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Count returns how many events of a kind were published.
func (r *Recorder) Count(kind Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, e := range r.events {
		if e.Kind == kind {
			count++
		}
	}
	return count
}
