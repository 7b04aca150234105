package bracket

import (
	"sort"

	"github.com/google/uuid"
)

// RankRows orders a group's rows and renumbers their places from 1.
func RankRows(rows []StandingsRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].RanksAbove(&rows[j])
	})
	for i := range rows {
		rows[i].Place = i + 1
	}
}

// Qualifiers returns the playoff seeding taken from finished groups. The top
// winnersQualified of every group come first, place by place across groups in
// letter order; for double elimination the next losersQualified follow the
// same way. Groups must be in letter order with ranked rows.
func Qualifiers(groups []Group, elimination EliminationType, winnersQualified, losersQualified int) []uuid.UUID {
	var seeded []uuid.UUID
	take := func(from, to int) {
		for place := from; place < to; place++ {
			for _, g := range groups {
				if place < len(g.Rows) {
					seeded = append(seeded, g.Rows[place].ParticipantID)
				}
			}
		}
	}

	take(0, winnersQualified)
	if elimination == DoubleElimination {
		take(winnersQualified, winnersQualified+losersQualified)
	}
	return seeded
}
