package auction

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"connectrpc.com/connect"
	"github.com/mcdev12/leagify/go/internal/models"
)

// AuctionServiceName is the fully-qualified name of the auction service.
const AuctionServiceName = "leagify.auction.v1.AuctionService"

// Procedure paths served by NewAuctionServiceHandler.
const (
	CreateAuctionProcedure     = "/" + AuctionServiceName + "/CreateAuction"
	JoinAuctionProcedure       = "/" + AuctionServiceName + "/JoinAuction"
	AssignRoleProcedure        = "/" + AuctionServiceName + "/AssignRole"
	NominateProcedure          = "/" + AuctionServiceName + "/Nominate"
	PlaceBidProcedure          = "/" + AuctionServiceName + "/PlaceBid"
	SettleCurrentItemProcedure = "/" + AuctionServiceName + "/SettleCurrentItem"
	StartAuctionProcedure      = "/" + AuctionServiceName + "/StartAuction"
	PauseAuctionProcedure      = "/" + AuctionServiceName + "/PauseAuction"
	ResumeAuctionProcedure     = "/" + AuctionServiceName + "/ResumeAuction"
	FinishAuctionProcedure     = "/" + AuctionServiceName + "/FinishAuction"
	GetAuctionStateProcedure   = "/" + AuctionServiceName + "/GetAuctionState"
	ListAuctionsProcedure      = "/" + AuctionServiceName + "/ListAuctions"
	RegisterGuestProcedure     = "/" + AuctionServiceName + "/RegisterGuest"
)

// jsonCodec carries the service messages as plain JSON structs.
type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

// Codec returns the codec clients must use to talk to the auction service.
func Codec() connect.Codec {
	return jsonCodec{}
}

// NewAuctionServiceHandler builds an HTTP handler for every auction
// procedure. It returns the path to mount the handler on.
func NewAuctionServiceHandler(svc *Service, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)

	handlers := map[string]http.Handler{
		CreateAuctionProcedure:     connect.NewUnaryHandler(CreateAuctionProcedure, svc.CreateAuction, opts...),
		JoinAuctionProcedure:       connect.NewUnaryHandler(JoinAuctionProcedure, svc.JoinAuction, opts...),
		AssignRoleProcedure:        connect.NewUnaryHandler(AssignRoleProcedure, svc.AssignRole, opts...),
		NominateProcedure:          connect.NewUnaryHandler(NominateProcedure, svc.Nominate, opts...),
		PlaceBidProcedure:          connect.NewUnaryHandler(PlaceBidProcedure, svc.PlaceBid, opts...),
		SettleCurrentItemProcedure: connect.NewUnaryHandler(SettleCurrentItemProcedure, svc.SettleCurrentItem, opts...),
		StartAuctionProcedure:      connect.NewUnaryHandler(StartAuctionProcedure, svc.StartAuction, opts...),
		PauseAuctionProcedure:      connect.NewUnaryHandler(PauseAuctionProcedure, svc.PauseAuction, opts...),
		ResumeAuctionProcedure:     connect.NewUnaryHandler(ResumeAuctionProcedure, svc.ResumeAuction, opts...),
		FinishAuctionProcedure:     connect.NewUnaryHandler(FinishAuctionProcedure, svc.FinishAuction, opts...),
		GetAuctionStateProcedure:   connect.NewUnaryHandler(GetAuctionStateProcedure, svc.GetAuctionState, opts...),
		ListAuctionsProcedure:      connect.NewUnaryHandler(ListAuctionsProcedure, svc.ListAuctions, opts...),
		RegisterGuestProcedure:     connect.NewUnaryHandler(RegisterGuestProcedure, svc.RegisterGuest, opts...),
	}
	return "/" + AuctionServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, ok := handlers[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		h.ServeHTTP(w, r)
	})
}

// AuctionServiceClient is the read side of the auction service, used by
// processes that mirror auction state.
type AuctionServiceClient struct {
	getAuctionState *connect.Client[AuctionRequest, models.AuctionSnapshot]
	listAuctions    *connect.Client[ListAuctionsRequest, ListAuctionsResponse]
}

// NewAuctionServiceClient creates a client for the service at baseURL.
func NewAuctionServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *AuctionServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(jsonCodec{})}, opts...)
	return &AuctionServiceClient{
		getAuctionState: connect.NewClient[AuctionRequest, models.AuctionSnapshot](httpClient, baseURL+GetAuctionStateProcedure, opts...),
		listAuctions:    connect.NewClient[ListAuctionsRequest, ListAuctionsResponse](httpClient, baseURL+ListAuctionsProcedure, opts...),
	}
}

// GetAuctionState fetches a full snapshot of one auction.
func (c *AuctionServiceClient) GetAuctionState(ctx context.Context, req AuctionRequest) (*models.AuctionSnapshot, error) {
	resp, err := c.getAuctionState.CallUnary(ctx, connect.NewRequest(&req))
	if err != nil {
		return nil, fmt.Errorf("failed to get auction state: %w", err)
	}
	return resp.Msg, nil
}

// ListAuctions fetches auction summaries.
func (c *AuctionServiceClient) ListAuctions(ctx context.Context, req ListAuctionsRequest) ([]models.AuctionSummary, error) {
	resp, err := c.listAuctions.CallUnary(ctx, connect.NewRequest(&req))
	if err != nil {
		return nil, fmt.Errorf("failed to list auctions: %w", err)
	}
	return resp.Msg.Auctions, nil
}
