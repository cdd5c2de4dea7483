package gateway

import (
	"context"

	"github.com/google/uuid"
	"github.com/mcdev12/leagify/go/internal/auction"
	"github.com/mcdev12/leagify/go/internal/models"
)

// EngineReader is the part of the engine the in-process provider reads.
type EngineReader interface {
	GetAuctionState(ctx context.Context, auctionID uuid.UUID) (*models.AuctionSnapshot, error)
	ListAuctions(ctx context.Context, includeComplete bool) []models.AuctionSummary
}

// EngineStateProvider serves state straight from an in-process engine.
type EngineStateProvider struct {
	engine EngineReader
}

// NewEngineStateProvider creates a provider over engine.
func NewEngineStateProvider(engine EngineReader) *EngineStateProvider {
	return &EngineStateProvider{engine: engine}
}

func (p *EngineStateProvider) GetAuctionState(ctx context.Context, auctionID uuid.UUID) (*models.AuctionSnapshot, error) {
	return p.engine.GetAuctionState(ctx, auctionID)
}

func (p *EngineStateProvider) GetActiveAuctions(ctx context.Context) ([]models.AuctionSummary, error) {
	return p.engine.ListAuctions(ctx, false), nil
}

// RemoteStateProvider serves state from the auction service over Connect, for
// a gateway running in its own process.
type RemoteStateProvider struct {
	client *auction.AuctionServiceClient
}

// NewRemoteStateProvider creates a provider over client.
func NewRemoteStateProvider(client *auction.AuctionServiceClient) *RemoteStateProvider {
	return &RemoteStateProvider{client: client}
}

func (p *RemoteStateProvider) GetAuctionState(ctx context.Context, auctionID uuid.UUID) (*models.AuctionSnapshot, error) {
	return p.client.GetAuctionState(ctx, auction.AuctionRequest{AuctionID: auctionID})
}

func (p *RemoteStateProvider) GetActiveAuctions(ctx context.Context) ([]models.AuctionSummary, error) {
	return p.client.ListAuctions(ctx, auction.ListAuctionsRequest{})
}
