package models

import (
	"github.com/google/uuid"
)

// SchoolStatus tracks where a school sits within one auction.
type SchoolStatus string

const (
	SchoolStatusAvailable SchoolStatus = "AVAILABLE"
	SchoolStatusOnBlock   SchoolStatus = "ON_BLOCK"
	SchoolStatusDrafted   SchoolStatus = "DRAFTED"
	SchoolStatusWithdrawn SchoolStatus = "WITHDRAWN"
)

// School is a draftable item. Position is the roster category it fills
// (a conference grouping such as "SEC" or "Big Ten").
type School struct {
	ID                                 uuid.UUID `json:"id"`
	Name                               string    `json:"name"`
	Conference                         string    `json:"conference"`
	Position                           string    `json:"position"`
	ProjectedPoints                    *float64  `json:"projected_points,omitempty"`
	NumberOfProspects                  *int      `json:"number_of_prospects,omitempty"`
	SchoolURL                          string    `json:"school_url,omitempty"`
	SuggestedAuctionValue              *float64  `json:"suggested_auction_value,omitempty"`
	ProjectedPointsAboveAverage        *float64  `json:"projected_points_above_average,omitempty"`
	ProjectedPointsAboveReplacement    *float64  `json:"projected_points_above_replacement,omitempty"`
	AveragePointsForPosition           *float64  `json:"average_points_for_position,omitempty"`
	ReplacementValueAverageForPosition *float64  `json:"replacement_value_average_for_position,omitempty"`
}
