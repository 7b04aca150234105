package bracket

import (
	"errors"
	"testing"

	"github.com/AdamBeresnev/op-tourney/internal/apperr"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTallyMaps(t *testing.T) {
	a, b := uuid.New(), uuid.New()

	testCases := []struct {
		name    string
		bestOf  int
		winners []uuid.UUID
		score1  int
		score2  int
		winner  *uuid.UUID
		wantErr error
	}{
		{name: "A A concludes 2-0", bestOf: 3, winners: []uuid.UUID{a, a}, score1: 2, score2: 0, winner: &a},
		{name: "A B A concludes 2-1", bestOf: 3, winners: []uuid.UUID{a, b, a}, score1: 2, score2: 1, winner: &a},
		{name: "A B stays open at 1-1", bestOf: 3, winners: []uuid.UUID{a, b}, score1: 1, score2: 1},
		{name: "best of one", bestOf: 1, winners: []uuid.UUID{b}, score1: 0, score2: 1, winner: &b},
		{name: "even series tie is rejected", bestOf: 2, winners: []uuid.UUID{a, b}, wantErr: apperr.ErrInvalidState},
		{name: "outsider winner is rejected", bestOf: 3, winners: []uuid.UUID{uuid.New()}, wantErr: apperr.ErrInvalidState},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m := &Match{ID: uuid.New(), BestOf: tc.bestOf, Participant1ID: &a, Participant2ID: &b}
			maps := make([]Map, tc.bestOf)
			for i := range maps {
				maps[i] = Map{ID: uuid.New(), MatchID: m.ID, Number: i + 1}
			}
			for i, w := range tc.winners {
				maps[i].WinnerID = &w
			}

			tally, err := TallyMaps(m, maps)
			if tc.wantErr != nil {
				assert.True(t, errors.Is(err, tc.wantErr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.score1, tally.Score1)
			assert.Equal(t, tc.score2, tally.Score2)
			if tc.winner == nil {
				assert.Nil(t, tally.WinnerID)
			} else {
				require.NotNil(t, tally.WinnerID)
				assert.Equal(t, *tc.winner, *tally.WinnerID)
			}
		})
	}
}
