// Package events defines the auction event contract: the envelope every
// accepted transition is published in and the typed payloads it carries.
package events

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/leagify/go/internal/ids"
)

// Type names an auction event.
type Type string

const (
	TypeParticipantJoined    Type = "ParticipantJoined"
	TypeRoleAssigned         Type = "RoleAssigned"
	TypeItemNominated        Type = "ItemNominated"
	TypeBidPlaced            Type = "BidPlaced"
	TypeItemSettled          Type = "ItemSettled"
	TypeAuctionStatusChanged Type = "AuctionStatusChanged"
)

// TopicPrefix prefixes every per-auction topic.
const TopicPrefix = "auction"

// SubjectPrefix prefixes the durable stream subject of every auction.
const SubjectPrefix = "auction.events"

// Envelope wraps a payload with the auction it belongs to and the auction's
// transition sequence number.
type Envelope struct {
	EventID   string          `json:"eventId"`
	EventType Type            `json:"eventType"`
	AuctionID uuid.UUID       `json:"auctionId"`
	Sequence  uint64          `json:"sequence"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// New marshals payload into a fresh envelope.
func New(auctionID uuid.UUID, seq uint64, eventType Type, at time.Time, payload any) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}
	return Envelope{
		EventID:   ids.New(at),
		EventType: eventType,
		AuctionID: auctionID,
		Sequence:  seq,
		Timestamp: at.UTC(),
		Payload:   data,
	}, nil
}

// Topic returns the broadcast topic for an auction.
func Topic(auctionID uuid.UUID) string {
	return TopicPrefix + "." + auctionID.String()
}

// Subject returns the stream subject events of an auction are relayed on.
func Subject(auctionID uuid.UUID) string {
	return SubjectPrefix + "." + auctionID.String()
}

// ParseTopic extracts the auction id from a topic produced by Topic.
func ParseTopic(topic string) (uuid.UUID, error) {
	rest, ok := strings.CutPrefix(topic, TopicPrefix+".")
	if !ok {
		return uuid.Nil, fmt.Errorf("unexpected topic %q", topic)
	}
	return uuid.Parse(rest)
}

// Decode parses the payload into the struct that matches the event type.
func Decode(env Envelope) (any, error) {
	var target any
	switch env.EventType {
	case TypeParticipantJoined:
		target = &ParticipantJoinedPayload{}
	case TypeRoleAssigned:
		target = &RoleAssignedPayload{}
	case TypeItemNominated:
		target = &ItemNominatedPayload{}
	case TypeBidPlaced:
		target = &BidPlacedPayload{}
	case TypeItemSettled:
		target = &ItemSettledPayload{}
	case TypeAuctionStatusChanged:
		target = &AuctionStatusChangedPayload{}
	default:
		return nil, fmt.Errorf("unknown event type: %s", env.EventType)
	}
	if err := json.Unmarshal(env.Payload, target); err != nil {
		return nil, fmt.Errorf("failed to decode %s payload: %w", env.EventType, err)
	}
	return target, nil
}
