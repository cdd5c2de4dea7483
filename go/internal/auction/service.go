package auction

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/mcdev12/leagify/go/internal/access"
	"github.com/mcdev12/leagify/go/internal/catalog"
	"github.com/mcdev12/leagify/go/internal/models"
	"github.com/mcdev12/leagify/go/internal/roster"
	"github.com/rs/zerolog/log"
)

// MasterTokenHeader carries the auction master token on master-only calls.
const MasterTokenHeader = "X-Master-Token"

// AuctionApp defines what the service layer needs from the engine
type AuctionApp interface {
	CreateAuction(ctx context.Context, req CreateAuctionRequest) (*CreateAuctionResult, error)
	JoinAuction(ctx context.Context, joinCode string, id Identity) (*JoinResult, error)
	AssignRole(ctx context.Context, auctionID uuid.UUID, req AssignRoleRequest) (*RoleAssignment, error)
	Nominate(ctx context.Context, auctionID, teamID, schoolID uuid.UUID) (*Nomination, error)
	PlaceBid(ctx context.Context, auctionID uuid.UUID, req BidRequest) (*BidResult, error)
	SettleCurrentItem(ctx context.Context, auctionID uuid.UUID) (*Settlement, error)
	Start(ctx context.Context, auctionID uuid.UUID) (*models.AuctionSnapshot, error)
	Pause(ctx context.Context, auctionID uuid.UUID) (*models.AuctionSnapshot, error)
	Resume(ctx context.Context, auctionID uuid.UUID) (*models.AuctionSnapshot, error)
	Finish(ctx context.Context, auctionID uuid.UUID, force bool) (*models.AuctionSnapshot, error)
	GetAuctionState(ctx context.Context, auctionID uuid.UUID) (*models.AuctionSnapshot, error)
	ListAuctions(ctx context.Context, includeComplete bool) []models.AuctionSummary
}

// Authorizer checks capability claims before the engine is called.
type Authorizer interface {
	Authorize(ctx context.Context, claim access.Claim) error
}

// TokenIssuer issues and parses caller identity tokens.
type TokenIssuer interface {
	Issue(userID, displayName string) (string, access.Principal, error)
	Parse(token string) (access.Principal, error)
}

// Service exposes the engine over Connect.
type Service struct {
	app            AuctionApp
	authz          Authorizer
	tokens         TokenIssuer
	defaultCatalog *catalog.Catalog
}

// NewService creates a new auction service. defaultCatalog is used when a
// CreateAuction request carries no CSV of its own and may be nil.
func NewService(app AuctionApp, authz Authorizer, tokens TokenIssuer, defaultCatalog *catalog.Catalog) *Service {
	return &Service{
		app:            app,
		authz:          authz,
		tokens:         tokens,
		defaultCatalog: defaultCatalog,
	}
}

// Request and response messages

type CreateAuctionMessage struct {
	Name        string            `json:"name"`
	SchoolsCSV  string            `json:"schools_csv,omitempty"`
	Budget      int64             `json:"budget,omitempty"`
	RosterSlots []roster.SlotSpec `json:"roster_slots,omitempty"`
}

type CreateAuctionResponse struct {
	CreateAuctionResult
	Catalog *catalog.Summary `json:"catalog,omitempty"`
}

type JoinAuctionMessage struct {
	JoinCode    string `json:"join_code"`
	DisplayName string `json:"display_name,omitempty"`
}

type AssignRoleMessage struct {
	AuctionID uuid.UUID   `json:"auction_id"`
	UserID    string      `json:"user_id"`
	Role      models.Role `json:"role"`
	TeamID    *uuid.UUID  `json:"team_id,omitempty"`
	TeamName  string      `json:"team_name,omitempty"`
	Budget    int64       `json:"budget,omitempty"`
}

type NominateMessage struct {
	AuctionID uuid.UUID `json:"auction_id"`
	TeamID    uuid.UUID `json:"team_id"`
	SchoolID  uuid.UUID `json:"school_id"`
}

type PlaceBidMessage struct {
	AuctionID uuid.UUID `json:"auction_id"`
	TeamID    uuid.UUID `json:"team_id"`
	Amount    int64     `json:"amount"`
}

// AuctionRequest addresses a single auction.
type AuctionRequest struct {
	AuctionID uuid.UUID `json:"auction_id"`
}

type FinishAuctionMessage struct {
	AuctionID uuid.UUID `json:"auction_id"`
	Force     bool      `json:"force,omitempty"`
}

type ListAuctionsRequest struct {
	IncludeComplete bool `json:"include_complete,omitempty"`
}

type ListAuctionsResponse struct {
	Auctions []models.AuctionSummary `json:"auctions"`
}

type RegisterGuestMessage struct {
	DisplayName string `json:"display_name"`
}

type RegisterGuestResponse struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Token       string `json:"token"`
}

// CreateAuction creates an auction from an inline CSV or the default catalog
func (s *Service) CreateAuction(ctx context.Context, req *connect.Request[CreateAuctionMessage]) (*connect.Response[CreateAuctionResponse], error) {
	msg := req.Msg
	appReq := CreateAuctionRequest{Name: msg.Name, Budget: msg.Budget, Catalog: s.defaultCatalog}

	var summary *catalog.Summary
	if strings.TrimSpace(msg.SchoolsCSV) != "" {
		cat, sum, err := catalog.Load(strings.NewReader(msg.SchoolsCSV))
		if err != nil {
			return nil, connect.NewError(connect.CodeInvalidArgument, err)
		}
		appReq.Catalog = cat
		summary = &sum
	}
	if len(msg.RosterSlots) > 0 {
		design, err := roster.NewDesign("", msg.RosterSlots)
		if err != nil {
			return nil, connect.NewError(connect.CodeInvalidArgument, err)
		}
		appReq.RosterDesign = &design
	}

	result, err := s.app.CreateAuction(ctx, appReq)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&CreateAuctionResponse{CreateAuctionResult: *result, Catalog: summary}), nil
}

// JoinAuction adds the authenticated caller to an auction
func (s *Service) JoinAuction(ctx context.Context, req *connect.Request[JoinAuctionMessage]) (*connect.Response[JoinResult], error) {
	principal, err := s.principal(req.Header())
	if err != nil {
		return nil, toConnectError(err)
	}
	name := req.Msg.DisplayName
	if name == "" {
		name = principal.DisplayName
	}
	result, err := s.app.JoinAuction(ctx, req.Msg.JoinCode, Identity{UserID: principal.UserID, DisplayName: name})
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(result), nil
}

// AssignRole changes a participant's role (master only)
func (s *Service) AssignRole(ctx context.Context, req *connect.Request[AssignRoleMessage]) (*connect.Response[RoleAssignment], error) {
	msg := req.Msg
	if err := s.requireMaster(ctx, req.Header().Get(MasterTokenHeader), msg.AuctionID); err != nil {
		return nil, err
	}
	appReq := AssignRoleRequest{
		UserID:   msg.UserID,
		Role:     msg.Role,
		TeamName: msg.TeamName,
		Budget:   msg.Budget,
	}
	if msg.TeamID != nil {
		appReq.TeamID = *msg.TeamID
	}
	result, err := s.app.AssignRole(ctx, msg.AuctionID, appReq)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(result), nil
}

// Nominate puts a school on the block for a team
func (s *Service) Nominate(ctx context.Context, req *connect.Request[NominateMessage]) (*connect.Response[Nomination], error) {
	msg := req.Msg
	if _, err := s.requireTeam(ctx, req.Header(), msg.AuctionID, msg.TeamID); err != nil {
		return nil, err
	}
	result, err := s.app.Nominate(ctx, msg.AuctionID, msg.TeamID, msg.SchoolID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(result), nil
}

// PlaceBid bids for a team on the school on the block
func (s *Service) PlaceBid(ctx context.Context, req *connect.Request[PlaceBidMessage]) (*connect.Response[BidResult], error) {
	msg := req.Msg
	placedBy, err := s.requireTeam(ctx, req.Header(), msg.AuctionID, msg.TeamID)
	if err != nil {
		return nil, err
	}
	result, err := s.app.PlaceBid(ctx, msg.AuctionID, BidRequest{TeamID: msg.TeamID, Amount: msg.Amount, PlacedBy: placedBy})
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(result), nil
}

// SettleCurrentItem closes bidding on the school on the block (master only)
func (s *Service) SettleCurrentItem(ctx context.Context, req *connect.Request[AuctionRequest]) (*connect.Response[Settlement], error) {
	if err := s.requireMaster(ctx, req.Header().Get(MasterTokenHeader), req.Msg.AuctionID); err != nil {
		return nil, err
	}
	result, err := s.app.SettleCurrentItem(ctx, req.Msg.AuctionID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(result), nil
}

// StartAuction opens bidding (master only)
func (s *Service) StartAuction(ctx context.Context, req *connect.Request[AuctionRequest]) (*connect.Response[models.AuctionSnapshot], error) {
	return s.lifecycle(ctx, req, s.app.Start)
}

// PauseAuction freezes bidding (master only)
func (s *Service) PauseAuction(ctx context.Context, req *connect.Request[AuctionRequest]) (*connect.Response[models.AuctionSnapshot], error) {
	return s.lifecycle(ctx, req, s.app.Pause)
}

// ResumeAuction reopens bidding (master only)
func (s *Service) ResumeAuction(ctx context.Context, req *connect.Request[AuctionRequest]) (*connect.Response[models.AuctionSnapshot], error) {
	return s.lifecycle(ctx, req, s.app.Resume)
}

// FinishAuction completes the auction (master only)
func (s *Service) FinishAuction(ctx context.Context, req *connect.Request[FinishAuctionMessage]) (*connect.Response[models.AuctionSnapshot], error) {
	if err := s.requireMaster(ctx, req.Header().Get(MasterTokenHeader), req.Msg.AuctionID); err != nil {
		return nil, err
	}
	snap, err := s.app.Finish(ctx, req.Msg.AuctionID, req.Msg.Force)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(snap), nil
}

func (s *Service) lifecycle(
	ctx context.Context,
	req *connect.Request[AuctionRequest],
	apply func(context.Context, uuid.UUID) (*models.AuctionSnapshot, error),
) (*connect.Response[models.AuctionSnapshot], error) {
	if err := s.requireMaster(ctx, req.Header().Get(MasterTokenHeader), req.Msg.AuctionID); err != nil {
		return nil, err
	}
	snap, err := apply(ctx, req.Msg.AuctionID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(snap), nil
}

// GetAuctionState returns a full snapshot for resynchronizing clients
func (s *Service) GetAuctionState(ctx context.Context, req *connect.Request[AuctionRequest]) (*connect.Response[models.AuctionSnapshot], error) {
	snap, err := s.app.GetAuctionState(ctx, req.Msg.AuctionID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(snap), nil
}

// ListAuctions summarizes auctions held by this process
func (s *Service) ListAuctions(ctx context.Context, req *connect.Request[ListAuctionsRequest]) (*connect.Response[ListAuctionsResponse], error) {
	return connect.NewResponse(&ListAuctionsResponse{
		Auctions: s.app.ListAuctions(ctx, req.Msg.IncludeComplete),
	}), nil
}

// RegisterGuest issues an identity token for a display name
func (s *Service) RegisterGuest(_ context.Context, req *connect.Request[RegisterGuestMessage]) (*connect.Response[RegisterGuestResponse], error) {
	name := strings.TrimSpace(req.Msg.DisplayName)
	if name == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("display_name is required"))
	}
	token, principal, err := s.tokens.Issue("", name)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(&RegisterGuestResponse{
		UserID:      principal.UserID,
		DisplayName: principal.DisplayName,
		Token:       token,
	}), nil
}

func (s *Service) principal(h http.Header) (access.Principal, error) {
	token := access.BearerToken(h)
	if token == "" {
		return access.Principal{}, access.ErrUnauthenticated
	}
	return s.tokens.Parse(token)
}

func (s *Service) requireMaster(ctx context.Context, token string, auctionID uuid.UUID) error {
	err := s.authz.Authorize(ctx, access.Claim{
		Capability:  access.CapabilityMaster,
		AuctionID:   auctionID,
		MasterToken: token,
	})
	if err != nil {
		return toConnectError(err)
	}
	return nil
}

// requireTeam authorizes a team action by the master or the team's coach or
// proxy, returning who the action is recorded as.
func (s *Service) requireTeam(ctx context.Context, h http.Header, auctionID, teamID uuid.UUID) (string, error) {
	claim := access.Claim{
		Capability:  access.CapabilityTeam,
		AuctionID:   auctionID,
		TeamID:      teamID,
		MasterToken: h.Get(MasterTokenHeader),
	}
	actor := "master"
	if token := access.BearerToken(h); token != "" {
		principal, err := s.tokens.Parse(token)
		if err != nil {
			return "", toConnectError(err)
		}
		claim.UserID = principal.UserID
		actor = principal.UserID
	}
	if err := s.authz.Authorize(ctx, claim); err != nil {
		return "", toConnectError(err)
	}
	return actor, nil
}

// toConnectError maps engine and access errors onto Connect codes. The
// engine's error kind travels in the Error-Kind metadata key.
func toConnectError(err error) error {
	var (
		validation *ValidationError
		noItem     *NoActiveItemError
		outbid     *OutbidError
		budget     *BudgetError
		rosterFull *RosterFullError
		conflict   *ConflictError
		transition *InvalidTransitionError
		forbidden  *ForbiddenError
		notFound   *NotFoundError
		invariant  *InvariantViolationError
	)
	code, kind := connect.CodeInternal, Kind(err)
	switch {
	case errors.Is(err, access.ErrUnauthenticated), errors.Is(err, access.ErrInvalidToken):
		code, kind = connect.CodeUnauthenticated, "unauthenticated"
	case errors.Is(err, access.ErrForbidden), errors.As(err, &forbidden):
		code, kind = connect.CodePermissionDenied, "forbidden"
	case errors.As(err, &validation):
		code = connect.CodeInvalidArgument
	case errors.As(err, &noItem):
		code = connect.CodeFailedPrecondition
	case errors.As(err, &outbid):
		code = connect.CodeAborted
	case errors.As(err, &budget):
		code = connect.CodeResourceExhausted
	case errors.As(err, &rosterFull), errors.As(err, &conflict), errors.As(err, &transition):
		code = connect.CodeFailedPrecondition
	case errors.As(err, &notFound):
		code = connect.CodeNotFound
	case errors.As(err, &invariant):
		code = connect.CodeInternal
	default:
		log.Error().Err(err).Msg("unexpected auction service error")
	}

	cerr := connect.NewError(code, err)
	cerr.Meta().Set("Error-Kind", kind)
	if outbid != nil {
		cerr.Meta().Set("Minimum-Next-Bid", strconv.FormatInt(outbid.MinimumNextBid(), 10))
	}
	return cerr
}
