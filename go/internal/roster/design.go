package roster

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/mcdev12/leagify/go/internal/models"
)

// DefaultDesignName matches the name given to designs built without one.
const DefaultDesignName = "Default Roster"

// SlotSpec describes a slot before ids are assigned.
type SlotSpec struct {
	Position  string `json:"position" yaml:"position"`
	ColorCode string `json:"color_code,omitempty" yaml:"color_code,omitempty"`
}

// NewDesign builds a design from slot specs, assigning ids and display order
// in the order given.
func NewDesign(name string, specs []SlotSpec) (models.RosterDesign, error) {
	if strings.TrimSpace(name) == "" {
		name = DefaultDesignName
	}
	design := models.RosterDesign{Name: name}
	for i, spec := range specs {
		design.Slots = append(design.Slots, models.RosterSlotDefinition{
			ID:           uuid.New(),
			PositionName: strings.TrimSpace(spec.Position),
			DisplayOrder: i + 1,
			ColorCode:    spec.ColorCode,
		})
	}
	if err := ValidateDesign(design); err != nil {
		return models.RosterDesign{}, err
	}
	return design, nil
}

// ValidateDesign checks that a design has at least one slot, that every slot
// is named and that slot ids are unique.
func ValidateDesign(design models.RosterDesign) error {
	if len(design.Slots) == 0 {
		return errors.New("roster design has no slots")
	}
	seen := make(map[uuid.UUID]struct{}, len(design.Slots))
	for i, slot := range design.Slots {
		if slot.ID == uuid.Nil {
			return fmt.Errorf("slot %d has no id", i)
		}
		if strings.TrimSpace(slot.PositionName) == "" {
			return fmt.Errorf("slot %d has no position name", i)
		}
		if _, dup := seen[slot.ID]; dup {
			return fmt.Errorf("duplicate slot id %s", slot.ID)
		}
		seen[slot.ID] = struct{}{}
	}
	return nil
}
