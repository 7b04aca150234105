package bracket

import (
	"sort"

	"github.com/AdamBeresnev/op-tourney/internal/apperr"
	"github.com/google/uuid"
)

type elimination struct {
	participant uuid.UUID
	round       int
	order       int
	seed        int
}

// Placements ranks playoff entrants once the final is decided. First is the
// final's winner and second its loser. Everyone else is ordered by the round
// of the match that knocked them out, later rounds first; ties go to the lower
// match order, then to the better seed.
func Placements(g *Graph, seeds map[uuid.UUID]int) ([]uuid.UUID, error) {
	final, _ := g.Final()
	if final == nil {
		return nil, apperr.InvalidState("tournament has no playoff stage to rank")
	}
	if final.Status != MatchConcluded || final.WinnerID == nil {
		return nil, apperr.InvalidState("final match %s is not decided", final.ID)
	}

	ranked := []uuid.UUID{*final.WinnerID}
	if loser := final.LoserID(); loser != nil {
		ranked = append(ranked, *loser)
	}

	var out []elimination
	for i, m := range g.Matches {
		n := g.Nodes[i]
		if m.ID == final.ID || m.IsBye || m.Status != MatchConcluded || n.LoserToID != nil {
			continue
		}
		loser := m.LoserID()
		if loser == nil {
			continue
		}
		out = append(out, elimination{
			participant: *loser,
			round:       n.RoundNumber,
			order:       n.MatchOrder,
			seed:        seeds[*loser],
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.round != b.round {
			return a.round > b.round
		}
		if a.order != b.order {
			return a.order < b.order
		}
		return a.seed < b.seed
	})

	for _, e := range out {
		ranked = append(ranked, e.participant)
	}
	return ranked, nil
}
