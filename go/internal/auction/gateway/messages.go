package gateway

import (
	"github.com/google/uuid"
	"github.com/mcdev12/leagify/go/internal/models"
)

// MessageTypeAuctionState marks a full snapshot pushed to a subscriber. Every
// other frame on the socket is an event envelope.
const MessageTypeAuctionState = "AuctionState"

// ClientMessageResync asks the gateway for a fresh snapshot.
const ClientMessageResync = "resync"

// StateMessage carries a snapshot to a subscriber. Events with a sequence at
// or below Sequence are already reflected in State.
type StateMessage struct {
	Type      string                  `json:"eventType"`
	AuctionID uuid.UUID               `json:"auctionId"`
	Sequence  uint64                  `json:"sequence"`
	State     *models.AuctionSnapshot `json:"state"`
}

// ClientMessage is a frame sent by a subscriber.
type ClientMessage struct {
	Type string `json:"type"`
}
