package auction

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	joinCodeLength   = 6
	joinCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	masterTokenBytes = 32
	joinCodeAttempts = 16
)

func newJoinCode() (string, error) {
	buf := make([]byte, joinCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	code := make([]byte, joinCodeLength)
	for i, b := range buf {
		code[i] = joinCodeAlphabet[int(b)%len(joinCodeAlphabet)]
	}
	return string(code), nil
}

// NormalizeJoinCode upper-cases and trims a user-entered join code.
func NormalizeJoinCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func newMasterToken() (string, error) {
	buf := make([]byte, masterTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func hashMasterToken(token string, cost int) ([]byte, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(token), cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash master token: %w", err)
	}
	return hash, nil
}

// VerifyMasterToken reports whether token is the master token of the auction.
func (e *Engine) VerifyMasterToken(_ context.Context, auctionID uuid.UUID, token string) (bool, error) {
	st, err := e.lookup(auctionID)
	if err != nil {
		return false, err
	}
	st.mu.Lock()
	hash := st.tokenHash
	st.mu.Unlock()

	if token == "" {
		return false, nil
	}
	err = bcrypt.CompareHashAndPassword(hash, []byte(token))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("failed to compare master token: %w", err)
	}
}

// CanActForTeam reports whether userID coaches or proxies for teamID.
func (e *Engine) CanActForTeam(_ context.Context, auctionID, teamID uuid.UUID, userID string) (bool, error) {
	st, err := e.lookup(auctionID)
	if err != nil {
		return false, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	t, err := st.team(teamID)
	if err != nil {
		return false, err
	}
	return userID != "" && (t.CoachUserID == userID || t.ProxyUserID == userID), nil
}

// IsParticipant reports whether userID has joined the auction.
func (e *Engine) IsParticipant(_ context.Context, auctionID uuid.UUID, userID string) (bool, error) {
	st, err := e.lookup(auctionID)
	if err != nil {
		return false, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	_, ok := st.participants[userID]
	return ok, nil
}
