package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"estatebid-auction-service/internal/domain/auction"
	"estatebid-auction-service/internal/domain/deposit"
	"estatebid-auction-service/internal/ports/inbound"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type depositFn func(ctx context.Context, auctionID, userID uuid.UUID) (*deposit.Deposit, error)

// Handler exposes the application services over HTTP.
type Handler struct {
	auctionService inbound.AuctionService
	bidService     inbound.BidService
	depositService inbound.DepositService
	watchService   inbound.WatchService
	logger         zerolog.Logger
}

type HandlerParams struct {
	AuctionService inbound.AuctionService
	BidService     inbound.BidService
	DepositService inbound.DepositService
	WatchService   inbound.WatchService
	Logger         zerolog.Logger
}

// NewHandler creates a new REST handler
func NewHandler(params HandlerParams) *Handler {
	return &Handler{
		auctionService: params.AuctionService,
		bidService:     params.BidService,
		depositService: params.DepositService,
		watchService:   params.WatchService,
		logger:         params.Logger.With().Str("component", "rest_handler").Logger(),
	}
}

// Register mounts all routes on the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /auctions", h.createAuction)
	mux.HandleFunc("GET /auctions", h.listAuctions)
	mux.HandleFunc("GET /auctions/{id}", h.getAuction)
	mux.HandleFunc("PATCH /auctions/{id}", h.updateAuction)
	mux.HandleFunc("POST /auctions/{id}/schedule", h.scheduleAuction)
	mux.HandleFunc("POST /auctions/{id}/cancel", h.cancelAuction)

	mux.HandleFunc("POST /auctions/{id}/bids", h.placeBid)
	mux.HandleFunc("GET /auctions/{id}/bids", h.listBids)
	mux.HandleFunc("GET /auctions/{id}/bids/winning", h.getWinningBid)
	mux.HandleFunc("GET /users/{id}/bids", h.listBidderBids)

	mux.HandleFunc("POST /auctions/{id}/deposits", h.createDeposit)
	mux.HandleFunc("POST /auctions/{id}/deposits/confirm", h.confirmDeposit)
	mux.HandleFunc("POST /auctions/{id}/deposits/refund", h.refundDeposit)
	mux.HandleFunc("POST /auctions/{id}/deposits/forfeit", h.forfeitDeposit)

	mux.HandleFunc("POST /auctions/{id}/watch", h.toggleWatch)
	mux.HandleFunc("GET /auctions/{id}/watchers", h.listWatchers)
}

func (h *Handler) createAuction(w http.ResponseWriter, r *http.Request) {
	var req inbound.CreateAuctionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}

	a, err := h.auctionService.CreateAuction(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, a)
}

func (h *Handler) listAuctions(w http.ResponseWriter, r *http.Request) {
	req := inbound.ListAuctionsRequest{
		Page:     intQuery(r, "page", 1),
		PageSize: intQuery(r, "page_size", 20),
	}
	if statusStr := r.URL.Query().Get("status"); statusStr != "" {
		status := auction.Status(statusStr)
		req.Status = &status
	}

	auctions, err := h.auctionService.ListAuctions(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"auctions": auctions,
		"count":    len(auctions),
	})
}

func (h *Handler) getAuction(w http.ResponseWriter, r *http.Request) {
	auctionID, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}

	a, err := h.auctionService.GetAuction(r.Context(), auctionID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, a)
}

func (h *Handler) updateAuction(w http.ResponseWriter, r *http.Request) {
	auctionID, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}

	sellerID, err := requesterID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}

	var req inbound.UpdateAuctionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	req.AuctionID = auctionID
	req.RequesterID = sellerID

	a, err := h.auctionService.UpdateAuction(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, a)
}

func (h *Handler) scheduleAuction(w http.ResponseWriter, r *http.Request) {
	auctionID, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}

	sellerID, err := requesterID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}

	a, err := h.auctionService.ScheduleAuction(r.Context(), auctionID, sellerID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, a)
}

func (h *Handler) cancelAuction(w http.ResponseWriter, r *http.Request) {
	auctionID, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}

	userID, err := requesterID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}

	if err := h.auctionService.CancelAuction(r.Context(), auctionID, userID); err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

// placeBidBody is the wire form of a bid; the auction comes from the path.
type placeBidBody struct {
	BidderID  uuid.UUID        `json:"bidder_id"`
	Amount    decimal.Decimal  `json:"amount"`
	MaxAmount *decimal.Decimal `json:"max_amount,omitempty"`
}

func (h *Handler) placeBid(w http.ResponseWriter, r *http.Request) {
	auctionID, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}

	var body placeBidBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	if body.BidderID == uuid.Nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "bidder_id is required"})
		return
	}
	if !body.Amount.IsPositive() {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "amount must be greater than 0"})
		return
	}

	b, err := h.bidService.PlaceBid(r.Context(), inbound.PlaceBidRequest{
		AuctionID: auctionID,
		BidderID:  body.BidderID,
		Amount:    body.Amount,
		MaxAmount: body.MaxAmount,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, b)
}

func (h *Handler) listBids(w http.ResponseWriter, r *http.Request) {
	auctionID, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}

	bids, err := h.bidService.GetBids(r.Context(), auctionID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"bids":  bids,
		"count": len(bids),
	})
}

func (h *Handler) getWinningBid(w http.ResponseWriter, r *http.Request) {
	auctionID, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}

	b, err := h.bidService.GetWinningBid(r.Context(), auctionID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, b)
}

func (h *Handler) listBidderBids(w http.ResponseWriter, r *http.Request) {
	bidderID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid user id"})
		return
	}

	bids, err := h.bidService.GetBidderBids(r.Context(), bidderID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"bids":  bids,
		"count": len(bids),
	})
}

func (h *Handler) createDeposit(w http.ResponseWriter, r *http.Request) {
	h.depositAction(w, r, h.depositService.CreateDeposit, http.StatusCreated)
}

func (h *Handler) confirmDeposit(w http.ResponseWriter, r *http.Request) {
	h.depositAction(w, r, h.depositService.ConfirmDeposit, http.StatusOK)
}

func (h *Handler) refundDeposit(w http.ResponseWriter, r *http.Request) {
	h.depositAction(w, r, h.depositService.RefundDeposit, http.StatusOK)
}

func (h *Handler) forfeitDeposit(w http.ResponseWriter, r *http.Request) {
	h.depositAction(w, r, h.depositService.ForfeitDeposit, http.StatusOK)
}

func (h *Handler) depositAction(w http.ResponseWriter, r *http.Request, fn depositFn, okStatus int) {
	auctionID, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}

	userID, err := requesterID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}

	d, err := fn(r.Context(), auctionID, userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, okStatus, d)
}

func (h *Handler) toggleWatch(w http.ResponseWriter, r *http.Request) {
	auctionID, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}

	var req inbound.ToggleWatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	req.AuctionID = auctionID
	if req.UserID == uuid.Nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "user_id is required"})
		return
	}

	watching, err := h.watchService.ToggleWatch(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"watching": watching})
}

func (h *Handler) listWatchers(w http.ResponseWriter, r *http.Request) {
	auctionID, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}

	watchers, err := h.watchService.ListWatchers(r.Context(), auctionID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"watchers": watchers,
		"count":    len(watchers),
	})
}

func pathID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid auction id")
	}
	return id, nil
}

// requesterID identifies the acting user from the X-User-ID header, falling
// back to the user_id query parameter.
func requesterID(r *http.Request) (uuid.UUID, error) {
	raw := r.Header.Get("X-User-ID")
	if raw == "" {
		raw = r.URL.Query().Get("user_id")
	}
	if raw == "" {
		return uuid.Nil, fmt.Errorf("user identification is required")
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid user id format")
	}
	return id, nil
}

func intQuery(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
