package bracket

import (
	"github.com/AdamBeresnev/op-tourney/internal/apperr"
	"github.com/google/uuid"
)

// Graph is an arena of playoff matches and the nodes backing them. Edges are
// match ids resolved through an index, so propagation is a lookup rather than
// a tree walk. Matches are held in dependency order: every upstream match
// comes before the matches it feeds.
//
// A Graph is mutated in memory and remembers which positions changed so the
// caller can persist exactly those rows.
type Graph struct {
	Matches []*Match
	Nodes   []*Node

	index map[uuid.UUID]int
	dirty map[int]bool
}

// NewGraph indexes persisted matches and nodes. Nodes are expected in
// dependency order; matches are paired to nodes by id.
func NewGraph(matches []Match, nodes []Node) (*Graph, error) {
	byID := make(map[uuid.UUID]*Match, len(matches))
	for i := range matches {
		byID[matches[i].ID] = &matches[i]
	}

	g := &Graph{
		index: make(map[uuid.UUID]int, len(nodes)),
		dirty: make(map[int]bool),
	}
	for i := range nodes {
		m, ok := byID[nodes[i].MatchID]
		if !ok {
			return nil, apperr.InvalidState("bracket node %s has no match", nodes[i].MatchID)
		}
		g.add(m, &nodes[i])
	}
	return g, nil
}

func (g *Graph) add(m *Match, n *Node) int {
	if g.index == nil {
		g.index = make(map[uuid.UUID]int)
		g.dirty = make(map[int]bool)
	}
	g.Matches = append(g.Matches, m)
	g.Nodes = append(g.Nodes, n)
	g.index[m.ID] = len(g.Matches) - 1
	return len(g.Matches) - 1
}

func (g *Graph) Lookup(matchID uuid.UUID) (*Match, *Node, bool) {
	i, ok := g.index[matchID]
	if !ok {
		return nil, nil, false
	}
	return g.Matches[i], g.Nodes[i], true
}

// Final is the match without a downstream winner target.
func (g *Graph) Final() (*Match, *Node) {
	for i := len(g.Nodes) - 1; i >= 0; i-- {
		if g.Nodes[i].WinnerToID == nil {
			return g.Matches[i], g.Nodes[i]
		}
	}
	return nil, nil
}

// Dirty returns the positions touched since the graph was built or loaded,
// in dependency order.
func (g *Graph) Dirty() []int {
	out := make([]int, 0, len(g.dirty))
	for i := range g.Matches {
		if g.dirty[i] {
			out = append(out, i)
		}
	}
	return out
}

func (g *Graph) touch(i int) {
	g.dirty[i] = true
}

// Advance pushes the result of a freshly concluded match downstream: the
// winner into its winner target and, where the bracket routes losers, the
// loser into its loser target. Slots that receive an entrant opposite a bye
// resolve immediately and keep cascading.
func (g *Graph) Advance(matchID uuid.UUID) error {
	i, ok := g.index[matchID]
	if !ok {
		return apperr.NotFound("match %s is not part of the bracket", matchID)
	}
	m, n := g.Matches[i], g.Nodes[i]
	if m.Status != MatchConcluded || m.WinnerID == nil {
		return apperr.InvalidState("match %s has no result to advance", m.ID)
	}
	g.touch(i)

	if err := g.deliver(n.WinnerToID, n.WinnerToSlot, m.WinnerID); err != nil {
		return err
	}
	loser := m.LoserID()
	if loser == nil {
		return apperr.InvalidState("match %s has no loser to advance", m.ID)
	}
	return g.deliver(n.LoserToID, n.LoserToSlot, loser)
}

// deliver fills one downstream slot. A nil participant marks the slot as a
// bye. Every slot is written exactly once.
func (g *Graph) deliver(to *uuid.UUID, slot *int, participant *uuid.UUID) error {
	if to == nil || slot == nil {
		return nil
	}
	i, ok := g.index[*to]
	if !ok {
		return apperr.InvalidState("downstream match %s is not part of the bracket", *to)
	}
	m, n := g.Matches[i], g.Nodes[i]

	occupied := n.SlotBye(*slot)
	if *slot == 1 {
		occupied = occupied || m.Participant1ID != nil
	} else {
		occupied = occupied || m.Participant2ID != nil
	}
	if occupied {
		return apperr.InvalidState("slot %d of match %s is already filled", *slot, m.ID)
	}

	switch {
	case participant == nil:
		n.SetSlotBye(*slot)
	case *slot == 1:
		m.Participant1ID = participant
	default:
		m.Participant2ID = participant
	}
	g.touch(i)

	return g.settle(i)
}

// settle concludes a match that can never be played: both slots are byes, or
// one is a bye and the other already holds an entrant.
func (g *Graph) settle(i int) error {
	m, n := g.Matches[i], g.Nodes[i]
	if m.Status == MatchConcluded || (!n.Slot1Bye && !n.Slot2Bye) {
		return nil
	}

	var winner *uuid.UUID
	switch {
	case n.Slot1Bye && n.Slot2Bye:
	case n.Slot1Bye && m.Participant2ID != nil:
		winner = m.Participant2ID
	case n.Slot2Bye && m.Participant1ID != nil:
		winner = m.Participant1ID
	default:
		return nil
	}

	m.Status = MatchConcluded
	m.IsBye = true
	m.WinnerID = winner
	g.touch(i)

	if err := g.deliver(n.WinnerToID, n.WinnerToSlot, winner); err != nil {
		return err
	}
	return g.deliver(n.LoserToID, n.LoserToSlot, nil)
}

// Resolved reports whether every match of the graph is concluded.
func (g *Graph) Resolved() bool {
	for _, m := range g.Matches {
		if m.Status != MatchConcluded {
			return false
		}
	}
	return true
}
