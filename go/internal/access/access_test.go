package access

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssuer_RoundTrip(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC))
	iss, err := NewIssuer("s3cret", time.Hour, clock)
	require.NoError(t, err)

	token, principal, err := iss.Issue("alice", "Alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", principal.UserID)

	got, err := iss.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, Principal{UserID: "alice", DisplayName: "Alice"}, got)

	clock.Advance(2 * time.Hour)
	_, err = iss.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestIssuer_GuestIDs(t *testing.T) {
	iss, err := NewIssuer("s3cret", time.Hour, nil)
	require.NoError(t, err)

	_, first, err := iss.Issue("", "Guest")
	require.NoError(t, err)
	_, second, err := iss.Issue("", "Guest")
	require.NoError(t, err)
	assert.NotEqual(t, first.UserID, second.UserID)
}

func TestIssuer_RejectsForeignTokens(t *testing.T) {
	iss, err := NewIssuer("s3cret", time.Hour, nil)
	require.NoError(t, err)
	other, err := NewIssuer("different", time.Hour, nil)
	require.NoError(t, err)

	token, _, err := other.Issue("mallory", "")
	require.NoError(t, err)
	_, err = iss.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Issuer: issuer, Subject: "mallory"},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = iss.Parse(none)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = iss.Parse("")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = NewIssuer(" ", time.Hour, nil)
	assert.Error(t, err)
}

func TestBearerToken(t *testing.T) {
	h := http.Header{}
	assert.Empty(t, BearerToken(h))
	h.Set("Authorization", "Bearer abc.def")
	assert.Equal(t, "abc.def", BearerToken(h))
	h.Set("Authorization", "bearer xyz")
	assert.Equal(t, "xyz", BearerToken(h))
	h.Set("Authorization", "Basic Zm9vOmJhcg==")
	assert.Empty(t, BearerToken(h))
}

type fakeDirectory struct {
	master       string
	coaches      map[uuid.UUID]string
	participants map[string]bool
	err          error
}

func (d *fakeDirectory) VerifyMasterToken(_ context.Context, _ uuid.UUID, token string) (bool, error) {
	if d.err != nil {
		return false, d.err
	}
	return token != "" && token == d.master, nil
}

func (d *fakeDirectory) CanActForTeam(_ context.Context, _, teamID uuid.UUID, userID string) (bool, error) {
	if d.err != nil {
		return false, d.err
	}
	return d.coaches[teamID] == userID, nil
}

func (d *fakeDirectory) IsParticipant(_ context.Context, _ uuid.UUID, userID string) (bool, error) {
	return d.participants[userID], d.err
}

func TestVerifier(t *testing.T) {
	team := uuid.New()
	auction := uuid.New()
	v := NewVerifier(&fakeDirectory{
		master:       "master-token",
		coaches:      map[uuid.UUID]string{team: "alice"},
		participants: map[string]bool{"alice": true, "viewer": true},
	})
	ctx := context.Background()

	tests := []struct {
		name  string
		claim Claim
		want  bool
	}{
		{"master token", Claim{Capability: CapabilityMaster, AuctionID: auction, MasterToken: "master-token"}, true},
		{"wrong master token", Claim{Capability: CapabilityMaster, AuctionID: auction, MasterToken: "guess"}, false},
		{"coach", Claim{Capability: CapabilityTeam, AuctionID: auction, TeamID: team, UserID: "alice"}, true},
		{"not the coach", Claim{Capability: CapabilityTeam, AuctionID: auction, TeamID: team, UserID: "viewer"}, false},
		{"master acts for team", Claim{Capability: CapabilityTeam, AuctionID: auction, TeamID: team, MasterToken: "master-token"}, true},
		{"bad master falls back to user", Claim{Capability: CapabilityTeam, AuctionID: auction, TeamID: team, UserID: "alice", MasterToken: "guess"}, true},
		{"participant", Claim{Capability: CapabilityParticipant, AuctionID: auction, UserID: "viewer"}, true},
		{"stranger", Claim{Capability: CapabilityParticipant, AuctionID: auction, UserID: "stranger"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := v.Verify(ctx, tt.claim)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestVerifier_Authorize(t *testing.T) {
	v := NewVerifier(&fakeDirectory{master: "master-token"})
	ctx := context.Background()

	err := v.Authorize(ctx, Claim{Capability: CapabilityMaster})
	assert.ErrorIs(t, err, ErrUnauthenticated)

	err = v.Authorize(ctx, Claim{Capability: CapabilityMaster, MasterToken: "guess"})
	assert.ErrorIs(t, err, ErrForbidden)

	assert.NoError(t, v.Authorize(ctx, Claim{Capability: CapabilityMaster, MasterToken: "master-token"}))

	lookupErr := errors.New("auction not found")
	v = NewVerifier(&fakeDirectory{err: lookupErr})
	err = v.Authorize(ctx, Claim{Capability: CapabilityMaster, MasterToken: "x"})
	assert.ErrorIs(t, err, lookupErr)

	_, err = v.Verify(ctx, Claim{Capability: "root", UserID: "x"})
	assert.Error(t, err)
}
