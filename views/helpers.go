package views

import (
	"github.com/AdamBeresnev/op-tourney/internal/bracket"
	"github.com/google/uuid"
)

const byeName = "BYE"

func slotOf(entries map[uuid.UUID]bracket.Entry, participant *uuid.UUID, bye bool) *Slot {
	switch {
	case participant != nil:
		e, ok := entries[*participant]
		if !ok {
			return &Slot{ID: participant, Name: participant.String()}
		}
		return &Slot{ID: participant, Name: e.Name, Seed: e.Seed}
	case bye:
		return &Slot{Name: byeName, Bye: true}
	}
	return nil
}
