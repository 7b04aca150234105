// Package scheduler starts tournaments at their announced start time. It owns
// one timer per tournament and is started and stopped with the process.
// Start times written by other processes, such as the admin tool, are picked
// up by a periodic resync.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/AdamBeresnev/op-tourney/internal/bracket"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// Tournaments is the part of the tournament service the scheduler drives.
type Tournaments interface {
	GetScheduledTournaments(ctx context.Context) ([]bracket.Tournament, error)
	StartScheduled(ctx context.Context, id uuid.UUID) error
}

// ResyncInterval is how often the scheduler re-reads upcoming start times.
const ResyncInterval = time.Minute

type job struct {
	id    uuid.UUID
	at    time.Time
	timer clockwork.Timer
}

type Service struct {
	clock       clockwork.Clock
	tournaments Tournaments

	mu      sync.Mutex
	jobs    map[uuid.UUID]*job
	ctx     context.Context
	cancel  context.CancelFunc
	stopped bool
	running sync.WaitGroup
}

func New(clock clockwork.Clock, tournaments Tournaments) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		clock:       clock,
		tournaments: tournaments,
		jobs:        make(map[uuid.UUID]*job),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start schedules every open tournament that has a start time. Tournaments
// whose time passed while the process was down start right away. It then
// keeps resyncing upcoming start times until Stop.
func (s *Service) Start(ctx context.Context) error {
	tournaments, err := s.tournaments.GetScheduledTournaments(ctx)
	if err != nil {
		return err
	}
	for _, t := range tournaments {
		s.Schedule(t.ID, *t.StartTime)
	}

	s.mu.Lock()
	if !s.stopped {
		s.running.Add(1)
		go s.resyncLoop()
	}
	s.mu.Unlock()

	slog.Info("scheduler started", "jobs", len(tournaments))
	return nil
}

func (s *Service) resyncLoop() {
	defer s.running.Done()
	ticker := s.clock.NewTicker(ResyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.Chan():
			if err := s.resync(s.ctx); err != nil {
				slog.Error("scheduler resync failed", "error", err)
			}
		}
	}
}

// resync arms jobs for future start times this process does not know about
// yet. Past start times are left alone so a tournament that could not start
// is not retried on every pass.
func (s *Service) resync(ctx context.Context) error {
	tournaments, err := s.tournaments.GetScheduledTournaments(ctx)
	if err != nil {
		return err
	}
	now := s.clock.Now()
	for _, t := range tournaments {
		if !t.StartTime.After(now) {
			continue
		}
		if at, ok := s.Pending(t.ID); ok && at.Equal(*t.StartTime) {
			continue
		}
		s.Schedule(t.ID, *t.StartTime)
	}
	return nil
}

// Stop cancels every pending job and waits for running ones to return.
func (s *Service) Stop() {
	s.mu.Lock()
	s.stopped = true
	for id, j := range s.jobs {
		j.timer.Stop()
		delete(s.jobs, id)
	}
	s.mu.Unlock()

	s.cancel()
	s.running.Wait()
	slog.Info("scheduler stopped")
}

// Schedule registers the start of a tournament, replacing any earlier job for
// the same tournament.
func (s *Service) Schedule(id uuid.UUID, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}

	if old, ok := s.jobs[id]; ok {
		old.timer.Stop()
	}
	j := &job{id: id, at: at}
	// fire takes s.mu, which is held here while the timer is armed.
	j.timer = s.clock.AfterFunc(max(at.Sub(s.clock.Now()), 0), func() { go s.fire(j) })
	s.jobs[id] = j

	slog.Debug("tournament start scheduled", "tournament", id, "at", at)
}

func (s *Service) Cancel(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j, ok := s.jobs[id]; ok {
		j.timer.Stop()
		delete(s.jobs, id)
	}
}

// Pending returns the start time of a tournament's job, if any.
func (s *Service) Pending(id uuid.UUID) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return time.Time{}, false
	}
	return j.at, true
}

func (s *Service) fire(j *job) {
	s.mu.Lock()
	if s.stopped || s.jobs[j.id] != j {
		s.mu.Unlock()
		return
	}
	delete(s.jobs, j.id)
	s.running.Add(1)
	s.mu.Unlock()
	defer s.running.Done()

	slog.Info("scheduled start firing", "tournament", j.id, "at", j.at)
	if err := s.tournaments.StartScheduled(s.ctx, j.id); err != nil {
		slog.Error("scheduled start failed", "tournament", j.id, "error", err)
	}
}
