// Package roster decides which slots of a roster design a school can fill.
package roster

import (
	"sort"

	"github.com/google/uuid"
	"github.com/mcdev12/leagify/go/internal/models"
)

// EligibleSlots returns the open slots of design that can hold a school of the
// given category. Exact position matches come first, then Flex slots; each
// group is ordered by display order. filled is keyed by slot id.
func EligibleSlots(design models.RosterDesign, filled map[uuid.UUID]uuid.UUID, category string) []models.RosterSlotDefinition {
	var exact, flex []models.RosterSlotDefinition
	for _, slot := range design.Slots {
		if _, taken := filled[slot.ID]; taken {
			continue
		}
		switch {
		case slot.IsFlex():
			flex = append(flex, slot)
		case slot.PositionName == category:
			exact = append(exact, slot)
		}
	}

	byDisplayOrder(exact)
	byDisplayOrder(flex)
	return append(exact, flex...)
}

// BestSlot returns the first eligible slot, if any.
func BestSlot(design models.RosterDesign, filled map[uuid.UUID]uuid.UUID, category string) (models.RosterSlotDefinition, bool) {
	slots := EligibleSlots(design, filled, category)
	if len(slots) == 0 {
		return models.RosterSlotDefinition{}, false
	}
	return slots[0], true
}

// OpenSlots counts unfilled slots.
func OpenSlots(design models.RosterDesign, filled map[uuid.UUID]uuid.UUID) int {
	open := 0
	for _, slot := range design.Slots {
		if _, taken := filled[slot.ID]; !taken {
			open++
		}
	}
	return open
}

// IsFull reports whether every slot in design is filled.
func IsFull(design models.RosterDesign, filled map[uuid.UUID]uuid.UUID) bool {
	return OpenSlots(design, filled) == 0
}

func byDisplayOrder(slots []models.RosterSlotDefinition) {
	sort.SliceStable(slots, func(i, j int) bool {
		return slots[i].DisplayOrder < slots[j].DisplayOrder
	})
}
