package bracket

import (
	"time"

	"github.com/google/uuid"
)

type MatchStatus string

const (
	MatchScheduled MatchStatus = "scheduled"
	MatchOngoing   MatchStatus = "ongoing"
	MatchConcluded MatchStatus = "concluded"
)

type Stage string

const (
	GroupStageMatch Stage = "group"
	PlayoffMatch    Stage = "playoff"
)

type Match struct {
	ID           uuid.UUID   `db:"id" json:"id"`
	TournamentID uuid.UUID   `db:"tournament_id" json:"tournament_id"`
	Stage        Stage       `db:"stage" json:"stage"`
	GroupID      *uuid.UUID  `db:"group_id" json:"group_id,omitempty"`
	BestOf       int         `db:"best_of" json:"best_of"`
	Status       MatchStatus `db:"status" json:"status"`

	Participant1ID *uuid.UUID `db:"participant_1_id" json:"participant_1_id"`
	Participant2ID *uuid.UUID `db:"participant_2_id" json:"participant_2_id"`

	Score1   int        `db:"score_1" json:"score_1"`
	Score2   int        `db:"score_2" json:"score_2"`
	WinnerID *uuid.UUID `db:"winner_id" json:"winner_id"`
	IsBye    bool       `db:"is_bye" json:"is_bye"`

	// Version is bumped on every write; writers compare it to serialize reporters.
	Version   int       `db:"version" json:"version"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`

	Maps []Map `db:"-" json:"maps,omitempty"`
}

// Slot returns 1 or 2 for a participant of the match, 0 otherwise.
func (m *Match) Slot(participantID uuid.UUID) int {
	switch {
	case m.Participant1ID != nil && *m.Participant1ID == participantID:
		return 1
	case m.Participant2ID != nil && *m.Participant2ID == participantID:
		return 2
	}
	return 0
}

// Opponent returns the other participant, nil when the slot is empty.
func (m *Match) Opponent(participantID uuid.UUID) *uuid.UUID {
	switch m.Slot(participantID) {
	case 1:
		return m.Participant2ID
	case 2:
		return m.Participant1ID
	}
	return nil
}

func (m *Match) HasBothParticipants() bool {
	return m.Participant1ID != nil && m.Participant2ID != nil
}

// LoserID is only meaningful for a concluded, played match.
func (m *Match) LoserID() *uuid.UUID {
	if m.Status != MatchConcluded || m.WinnerID == nil {
		return nil
	}
	return m.Opponent(*m.WinnerID)
}

type Map struct {
	ID       uuid.UUID  `db:"id" json:"id"`
	MatchID  uuid.UUID  `db:"match_id" json:"match_id"`
	Number   int        `db:"number" json:"number"`
	WinnerID *uuid.UUID `db:"winner_id" json:"winner_id"`
}
