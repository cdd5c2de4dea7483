package models

import (
	"github.com/google/uuid"
)

// FlexPosition is the wildcard slot name; a Flex slot accepts any school.
const FlexPosition = "Flex"

// RosterSlotDefinition is one slot of a roster design.
type RosterSlotDefinition struct {
	ID           uuid.UUID `json:"id"`
	PositionName string    `json:"position_name"`
	DisplayOrder int       `json:"display_order"`
	ColorCode    string    `json:"color_code,omitempty"`
}

// IsFlex reports whether the slot accepts any category.
func (s RosterSlotDefinition) IsFlex() bool {
	return s.PositionName == FlexPosition
}

// RosterDesign is the shared slot layout every team in an auction fills.
type RosterDesign struct {
	Name  string                 `json:"name"`
	Slots []RosterSlotDefinition `json:"slots"`
}

// Size returns the number of slots a full roster holds.
func (d RosterDesign) Size() int {
	return len(d.Slots)
}
