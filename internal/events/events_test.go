package events

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubject(t *testing.T) {
	id := uuid.MustParse("7b0a3b7e-3f3e-4a39-9a3b-6c1f3a8d2e10")
	e := Event{Kind: MatchConcluded, TournamentID: id}
	assert.Equal(t, "tournament.7b0a3b7e-3f3e-4a39-9a3b-6c1f3a8d2e10.match.concluded", e.Subject())
}

func TestRecorder(t *testing.T) {
	r := &Recorder{}
	ctx := context.Background()
	id := uuid.New()

	require.NoError(t, r.Publish(ctx, Event{Kind: TournamentStarted, TournamentID: id, At: time.Now()}))
	require.NoError(t, r.Publish(ctx, Event{Kind: MatchConcluded, TournamentID: id, At: time.Now()}))
	require.NoError(t, r.Publish(ctx, Event{Kind: MatchConcluded, TournamentID: id, At: time.Now()}))

	assert.Len(t, r.Events(), 3)
	assert.Equal(t, 2, r.Count(MatchConcluded))
	assert.Equal(t, 0, r.Count(TournamentReset))

	var nop Publisher = NopPublisher{}
	assert.NoError(t, nop.Publish(ctx, Event{}))
}
