package bracket

import (
	"github.com/AdamBeresnev/op-tourney/internal/apperr"
	"github.com/google/uuid"
)

// Tally is the per-participant map count of a best-of-N series.
type Tally struct {
	Score1   int
	Score2   int
	Played   int
	WinnerID *uuid.UUID
}

// MapsToWin is the smallest tally exceeding half the series.
func MapsToWin(bestOf int) int {
	return bestOf/2 + 1
}

// TallyMaps recomputes the series score from the recorded map winners. The
// series is decided once a participant holds more than floor(bestOf/2) maps.
// A fully played series without a decision is a tie, which is rejected.
func TallyMaps(m *Match, maps []Map) (Tally, error) {
	var t Tally
	for _, mp := range maps {
		if mp.WinnerID == nil {
			continue
		}
		t.Played++
		switch m.Slot(*mp.WinnerID) {
		case 1:
			t.Score1++
		case 2:
			t.Score2++
		default:
			return t, apperr.InvalidState("map %d winner %s is not a participant of match %s", mp.Number, mp.WinnerID, m.ID)
		}
	}

	need := MapsToWin(m.BestOf)
	switch {
	case t.Score1 >= need:
		t.WinnerID = m.Participant1ID
	case t.Score2 >= need:
		t.WinnerID = m.Participant2ID
	case t.Played >= m.BestOf:
		return t, apperr.InvalidState("match %s is tied %d-%d after %d maps", m.ID, t.Score1, t.Score2, t.Played)
	}
	return t, nil
}
