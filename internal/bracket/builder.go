package bracket

import (
	"github.com/AdamBeresnev/op-tourney/internal/apperr"
	"github.com/AdamBeresnev/op-tourney/internal/utils"
	"github.com/google/uuid"
)

type BuildOptions struct {
	TournamentID uuid.UUID
	BestOf       int
	FinalBestOf  int
}

// Build synthesizes the knockout graph for seeded participants (index 0 is the
// top seed). Byes are resolved before the graph is returned: a bye match is
// concluded with the present entrant as winner, and the bye itself is
// forwarded to wherever the missing loser would have gone.
func Build(elimination EliminationType, opts BuildOptions, participants []uuid.UUID) (*Graph, error) {
	switch elimination {
	case SingleElimination:
		return BuildSingleElimination(opts, participants)
	case DoubleElimination:
		return BuildDoubleElimination(opts, participants)
	}
	return nil, apperr.InvalidState("unknown elimination type %q", elimination)
}

func BuildSingleElimination(opts BuildOptions, participants []uuid.UUID) (*Graph, error) {
	if len(participants) < MinParticipants {
		return nil, apperr.InvalidState("need at least %d participants, got %d", MinParticipants, len(participants))
	}

	b := newBuilder(opts)
	wb := b.winnersBracket(participants)
	final := wb[len(wb)-1][0]
	b.g.Matches[final].BestOf = b.finalBestOf()

	return b.resolve()
}

// BuildDoubleElimination adds a losers bracket to the winners bracket. Losers
// round 1 pairs the winners round 1 losers; every even losers round takes the
// survivors of the previous losers round against the fresh drop-downs of the
// next winners round, and every odd losers round after the first halves the
// field. The grand final is a single match between both bracket champions.
func BuildDoubleElimination(opts BuildOptions, participants []uuid.UUID) (*Graph, error) {
	if len(participants) < MinParticipants {
		return nil, apperr.InvalidState("need at least %d participants, got %d", MinParticipants, len(participants))
	}

	b := newBuilder(opts)
	wb := b.winnersBracket(participants)
	rounds := len(wb)
	size := BracketSize(len(participants))

	var lb [][]int
	if rounds >= 2 {
		lb = append(lb, b.round(LosersSide, 1, size/4))
		for i, idx := range lb[0] {
			b.link(wb[0][2*i], DependsOnLoser, idx, 1)
			b.link(wb[0][2*i+1], DependsOnLoser, idx, 2)
		}

		for j := 1; j < rounds; j++ {
			// Survivors meet the losers dropping out of winners round j+1.
			dropRound := b.round(LosersSide, 2*j, size>>(j+1))
			prev := lb[len(lb)-1]
			drops := wb[j]
			for i, idx := range dropRound {
				b.link(prev[i], DependsOnWinner, idx, 1)
				from := i
				if j%2 == 1 {
					from = len(drops) - 1 - i
				}
				b.link(drops[from], DependsOnLoser, idx, 2)
			}
			lb = append(lb, dropRound)

			if j == rounds-1 {
				break
			}
			halving := b.round(LosersSide, 2*j+1, size>>(j+2))
			for i, idx := range halving {
				b.link(dropRound[2*i], DependsOnWinner, idx, 1)
				b.link(dropRound[2*i+1], DependsOnWinner, idx, 2)
			}
			lb = append(lb, halving)
		}
	}

	gf := b.round(FinalsSide, 1, 1)[0]
	b.g.Matches[gf].BestOf = b.finalBestOf()
	wbFinal := wb[rounds-1][0]
	b.link(wbFinal, DependsOnWinner, gf, 1)
	if len(lb) == 0 {
		b.link(wbFinal, DependsOnLoser, gf, 2)
	} else {
		b.link(lb[len(lb)-1][0], DependsOnWinner, gf, 2)
	}

	return b.resolve()
}

type builder struct {
	opts BuildOptions
	g    *Graph
}

func newBuilder(opts BuildOptions) *builder {
	if opts.BestOf < 1 {
		opts.BestOf = 1
	}
	return &builder{opts: opts, g: &Graph{}}
}

func (b *builder) finalBestOf() int {
	if b.opts.FinalBestOf < 1 {
		return b.opts.BestOf
	}
	return b.opts.FinalBestOf
}

// round appends count matches of one round and returns their arena positions.
func (b *builder) round(side BracketSide, number, count int) []int {
	out := make([]int, 0, count)
	for order := 1; order <= count; order++ {
		m := &Match{
			ID:           uuid.New(),
			TournamentID: b.opts.TournamentID,
			Stage:        PlayoffMatch,
			BestOf:       b.opts.BestOf,
			Status:       MatchScheduled,
		}
		n := &Node{
			MatchID:      m.ID,
			TournamentID: b.opts.TournamentID,
			Side:         side,
			RoundNumber:  number,
			MatchOrder:   order,
			RoundLabel:   RoundLabel(side, number),
		}
		out = append(out, b.g.add(m, n))
	}
	return out
}

// link wires one edge in both directions.
func (b *builder) link(from int, kind DependencyKind, to int, slot int) {
	src, dst := b.g.Nodes[from], b.g.Nodes[to]
	target := b.g.Matches[to].ID
	if kind == DependsOnWinner {
		src.WinnerToID = utils.Ptr(target)
		src.WinnerToSlot = utils.Ptr(slot)
	} else {
		src.LoserToID = utils.Ptr(target)
		src.LoserToSlot = utils.Ptr(slot)
	}

	source := b.g.Matches[from].ID
	if slot == 1 {
		dst.DependsOn1ID = utils.Ptr(source)
		dst.DependsOn1Kind = utils.Ptr(kind)
	} else {
		dst.DependsOn2ID = utils.Ptr(source)
		dst.DependsOn2Kind = utils.Ptr(kind)
	}
}

// winnersBracket builds every winners round and seats round 1. The result is
// indexed by round, zero-based.
func (b *builder) winnersBracket(participants []uuid.UUID) [][]int {
	size := BracketSize(len(participants))
	rounds := RoundCount(len(participants))

	wb := make([][]int, rounds)
	for r := 1; r <= rounds; r++ {
		wb[r-1] = b.round(WinnersSide, r, size>>r)
	}
	for r := 0; r < rounds-1; r++ {
		for i, idx := range wb[r] {
			b.link(idx, DependsOnWinner, wb[r+1][i/2], i%2+1)
		}
	}

	for i, pair := range SeedPairs(size) {
		idx := wb[0][i]
		m, n := b.g.Matches[idx], b.g.Nodes[idx]
		if pair[0] < len(participants) {
			m.Participant1ID = utils.Ptr(participants[pair[0]])
		} else {
			n.Slot1Bye = true
		}
		if pair[1] < len(participants) {
			m.Participant2ID = utils.Ptr(participants[pair[1]])
		} else {
			n.Slot2Bye = true
		}
	}
	return wb
}

// resolve settles byes in dependency order, so every bye reaches its targets
// before they are looked at.
func (b *builder) resolve() (*Graph, error) {
	for i := range b.g.Matches {
		if err := b.g.settle(i); err != nil {
			return nil, err
		}
	}
	return b.g, nil
}
