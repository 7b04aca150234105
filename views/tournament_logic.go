package views

import (
	"sort"

	"github.com/AdamBeresnev/op-tourney/internal/bracket"
	"github.com/google/uuid"
)

// BracketData is the playoff stage laid out for display: one column per
// round, each side of the bracket on its own. It is derived from the bracket
// graph on every read and never stored.
type BracketData struct {
	Winners []Round `json:"winners"`
	Losers  []Round `json:"losers,omitempty"`
	Finals  []Round `json:"finals,omitempty"`
}

type Round struct {
	Number  int         `json:"number"`
	Label   string      `json:"label"`
	Matches []MatchCard `json:"matches"`
}

type MatchCard struct {
	ID       uuid.UUID           `json:"id"`
	Order    int                 `json:"order"`
	Status   bracket.MatchStatus `json:"status"`
	BestOf   int                 `json:"best_of"`
	IsBye    bool                `json:"is_bye"`
	Slot1    *Slot               `json:"slot_1"`
	Slot2    *Slot               `json:"slot_2"`
	Score1   int                 `json:"score_1"`
	Score2   int                 `json:"score_2"`
	WinnerID *uuid.UUID          `json:"winner_id,omitempty"`
}

// Slot is a filled or settled participant position. A nil Slot is still
// waiting for its upstream match.
type Slot struct {
	ID   *uuid.UUID `json:"id,omitempty"`
	Name string     `json:"name"`
	Seed int        `json:"seed,omitempty"`
	Bye  bool       `json:"bye,omitempty"`
}

func PrepareBracketData(g *bracket.Graph, entries []bracket.Entry) BracketData {
	entryMap := make(map[uuid.UUID]bracket.Entry, len(entries))
	for _, e := range entries {
		entryMap[e.EntityID] = e
	}

	sides := map[bracket.BracketSide]map[int]*Round{
		bracket.WinnersSide: {},
		bracket.LosersSide:  {},
		bracket.FinalsSide:  {},
	}
	for i, m := range g.Matches {
		n := g.Nodes[i]
		rounds := sides[n.Side]
		round, ok := rounds[n.RoundNumber]
		if !ok {
			round = &Round{Number: n.RoundNumber, Label: n.RoundLabel}
			rounds[n.RoundNumber] = round
		}
		round.Matches = append(round.Matches, MatchCard{
			ID:       m.ID,
			Order:    n.MatchOrder,
			Status:   m.Status,
			BestOf:   m.BestOf,
			IsBye:    m.IsBye,
			Slot1:    slotOf(entryMap, m.Participant1ID, n.Slot1Bye),
			Slot2:    slotOf(entryMap, m.Participant2ID, n.Slot2Bye),
			Score1:   m.Score1,
			Score2:   m.Score2,
			WinnerID: m.WinnerID,
		})
	}

	return BracketData{
		Winners: sortRounds(sides[bracket.WinnersSide]),
		Losers:  sortRounds(sides[bracket.LosersSide]),
		Finals:  sortRounds(sides[bracket.FinalsSide]),
	}
}

func sortRounds(rounds map[int]*Round) []Round {
	out := make([]Round, 0, len(rounds))
	for _, r := range rounds {
		sort.Slice(r.Matches, func(i, j int) bool {
			return r.Matches[i].Order < r.Matches[j].Order
		})
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Number < out[j].Number
	})
	if len(out) == 0 {
		return nil
	}
	return out
}
