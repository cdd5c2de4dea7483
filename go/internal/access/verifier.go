// Package access checks that a caller holds the capability an auction
// operation needs before the engine sees the request.
package access

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrUnauthenticated = errors.New("access: unauthenticated")
	ErrForbidden       = errors.New("access: forbidden")
)

// Capability is what a claim asserts about the caller.
type Capability string

const (
	// CapabilityMaster is held by whoever presents the auction's master token.
	CapabilityMaster Capability = "master"
	// CapabilityTeam is held by the coach or proxy of a team, or the master.
	CapabilityTeam Capability = "team"
	// CapabilityParticipant is held by anyone who joined the auction.
	CapabilityParticipant Capability = "participant"
)

// Claim is a capability asserted by a caller for one auction.
type Claim struct {
	Capability  Capability
	AuctionID   uuid.UUID
	TeamID      uuid.UUID
	UserID      string
	MasterToken string
}

// Directory answers the membership questions a Verifier asks.
type Directory interface {
	VerifyMasterToken(ctx context.Context, auctionID uuid.UUID, token string) (bool, error)
	CanActForTeam(ctx context.Context, auctionID, teamID uuid.UUID, userID string) (bool, error)
	IsParticipant(ctx context.Context, auctionID uuid.UUID, userID string) (bool, error)
}

// Verifier checks claims against a Directory.
type Verifier struct {
	dir Directory
}

// NewVerifier creates a verifier backed by dir.
func NewVerifier(dir Directory) *Verifier {
	return &Verifier{dir: dir}
}

// Verify reports whether the claim holds. Lookup failures such as an unknown
// auction are returned as errors.
func (v *Verifier) Verify(ctx context.Context, claim Claim) (bool, error) {
	switch claim.Capability {
	case CapabilityMaster:
		return v.dir.VerifyMasterToken(ctx, claim.AuctionID, claim.MasterToken)
	case CapabilityTeam:
		if claim.MasterToken != "" {
			ok, err := v.dir.VerifyMasterToken(ctx, claim.AuctionID, claim.MasterToken)
			if err != nil || ok {
				return ok, err
			}
		}
		if claim.UserID == "" {
			return false, nil
		}
		return v.dir.CanActForTeam(ctx, claim.AuctionID, claim.TeamID, claim.UserID)
	case CapabilityParticipant:
		if claim.UserID == "" {
			return false, nil
		}
		return v.dir.IsParticipant(ctx, claim.AuctionID, claim.UserID)
	default:
		return false, fmt.Errorf("unknown capability %q", claim.Capability)
	}
}

// Authorize is Verify that turns a failed check into ErrForbidden, or
// ErrUnauthenticated when the claim carries no credential at all.
func (v *Verifier) Authorize(ctx context.Context, claim Claim) error {
	if claim.MasterToken == "" && claim.UserID == "" {
		return ErrUnauthenticated
	}
	ok, err := v.Verify(ctx, claim)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s capability required", ErrForbidden, claim.Capability)
	}
	return nil
}
