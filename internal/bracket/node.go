package bracket

import (
	"fmt"

	"github.com/google/uuid"
)

type BracketSide string

const (
	WinnersSide BracketSide = "winners"
	LosersSide  BracketSide = "losers"
	FinalsSide  BracketSide = "finals"
)

// DependencyKind says which result of the upstream match fills a slot.
type DependencyKind string

const (
	DependsOnWinner DependencyKind = "winner"
	DependsOnLoser  DependencyKind = "loser"
)

// Node is the knockout position backed by a playoff match. Nodes are keyed by
// their match id, and every edge of the bracket graph is stored twice: as the
// upstream dependencies of a slot and as the downstream target of a result.
type Node struct {
	MatchID      uuid.UUID   `db:"match_id" json:"match_id"`
	TournamentID uuid.UUID   `db:"tournament_id" json:"tournament_id"`
	Side         BracketSide `db:"side" json:"side"`
	RoundNumber  int         `db:"round_number" json:"round_number"`
	MatchOrder   int         `db:"match_order" json:"match_order"`
	RoundLabel   string      `db:"round_label" json:"round_label"`

	DependsOn1ID   *uuid.UUID      `db:"depends_on_1_id" json:"depends_on_1_id,omitempty"`
	DependsOn1Kind *DependencyKind `db:"depends_on_1_kind" json:"depends_on_1_kind,omitempty"`
	DependsOn2ID   *uuid.UUID      `db:"depends_on_2_id" json:"depends_on_2_id,omitempty"`
	DependsOn2Kind *DependencyKind `db:"depends_on_2_kind" json:"depends_on_2_kind,omitempty"`

	WinnerToID   *uuid.UUID `db:"winner_to_id" json:"winner_to_id,omitempty"`
	WinnerToSlot *int       `db:"winner_to_slot" json:"winner_to_slot,omitempty"`
	LoserToID    *uuid.UUID `db:"loser_to_id" json:"loser_to_id,omitempty"`
	LoserToSlot  *int       `db:"loser_to_slot" json:"loser_to_slot,omitempty"`

	// A bye slot will never receive a participant.
	Slot1Bye bool `db:"slot_1_bye" json:"slot_1_bye"`
	Slot2Bye bool `db:"slot_2_bye" json:"slot_2_bye"`
}

func (n *Node) SlotBye(slot int) bool {
	if slot == 1 {
		return n.Slot1Bye
	}
	return n.Slot2Bye
}

func (n *Node) SetSlotBye(slot int) {
	if slot == 1 {
		n.Slot1Bye = true
	} else {
		n.Slot2Bye = true
	}
}

// Dependencies returns the number of upstream matches feeding this node.
func (n *Node) Dependencies() int {
	count := 0
	if n.DependsOn1ID != nil {
		count++
	}
	if n.DependsOn2ID != nil {
		count++
	}
	return count
}

func RoundLabel(side BracketSide, round int) string {
	switch side {
	case LosersSide:
		return fmt.Sprintf("L%d", round)
	case FinalsSide:
		return "GF"
	default:
		return fmt.Sprintf("W%d", round)
	}
}
