package httpserver

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/grandline/auctionhouse/auction"
	"github.com/grandline/auctionhouse/policy"
)

// AuctionHandler exposes the bidding engine over HTTP. The chat-facing
// gateway translates commands into these calls; authorization and role
// checks happen there.
type AuctionHandler struct {
	engine  *auction.Engine
	sweeper *auction.Sweeper
	log     *slog.Logger
}

// NewAuctionHandler creates the API handler.
func NewAuctionHandler(engine *auction.Engine, sweeper *auction.Sweeper, log *slog.Logger) *AuctionHandler {
	if log == nil {
		log = slog.Default()
	}
	return &AuctionHandler{engine: engine, sweeper: sweeper, log: log}
}

// RegisterRoutes registers the auction API under /api/v1.
func (h *AuctionHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auctions/{channelID}", func(r chi.Router) {
			r.Post("/", h.handleStart)
			r.Post("/bulk", h.handleStartBulk)
			r.Get("/", h.handleInfo)
			r.Delete("/", h.handleStop)
			r.Post("/bids", h.handleBid)
			r.Post("/rollback", h.handleRollback)
			r.Post("/ends-on", h.handleEndsOn)
			r.Get("/accepted-list", h.handleGetAcceptedList)
			r.Put("/accepted-list", h.handlePutAcceptedList)
			r.Delete("/accepted-list", h.handleDeleteAcceptedList)
			r.Put("/broadcast-message", h.handleBroadcastMessage)
		})
		r.Post("/sweeps/due", h.handleDueSweep)
		r.Post("/sweeps/last-call", h.handleLastCallSweep)
	})
}

type userPayload struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type startRequest struct {
	ChannelName  string      `json:"channel_name"`
	Host         userPayload `json:"host"`
	Item         string      `json:"item"`
	Duration     string      `json:"duration"`
	Autobuy      string      `json:"autobuy,omitempty"`
	AcceptedList string      `json:"accepted_list,omitempty"`
	ImageLink    string      `json:"image_link,omitempty"`
	Privileged   bool        `json:"privileged,omitempty"`
}

type bulkItemPayload struct {
	Name string `json:"name"`
	Qty  int64  `json:"qty"`
}

type bulkStartRequest struct {
	ChannelName  string            `json:"channel_name"`
	Host         userPayload       `json:"host"`
	Items        []bulkItemPayload `json:"items"`
	Rarity       string            `json:"rarity"`
	Duration     string            `json:"duration"`
	Autobuy      string            `json:"autobuy,omitempty"`
	AcceptedList string            `json:"accepted_list,omitempty"`
	ImageLink    string            `json:"image_link,omitempty"`
	Privileged   bool              `json:"privileged,omitempty"`
}

type bidRequest struct {
	Bidder userPayload `json:"bidder"`
	Amount string      `json:"amount"`
}

type rollbackRequest struct {
	Target userPayload `json:"target"`
	Amount string      `json:"amount"`
}

type endsOnRequest struct {
	Direction string `json:"direction"`
	Duration  string `json:"duration"`
}

type acceptedListPayload struct {
	AcceptedList string `json:"accepted_list"`
}

type broadcastMessagePayload struct {
	MessageID int64 `json:"message_id"`
}

type bidResponse struct {
	Auction        *auction.Auction `json:"auction"`
	Sold           bool             `json:"sold"`
	Opening        bool             `json:"opening"`
	PreviousBidder *userPayload     `json:"previous_bidder,omitempty"`
}

func (h *AuctionHandler) handleStart(w http.ResponseWriter, r *http.Request) {
	channelID, ok := h.channelID(w, r)
	if !ok {
		return
	}
	var req startRequest
	if !h.decode(w, r, &req) {
		return
	}

	a, err := h.engine.Start(r.Context(), auction.StartRequest{
		ChannelID:    channelID,
		ChannelName:  req.ChannelName,
		Host:         auction.User{ID: req.Host.ID, Name: req.Host.Name},
		Item:         req.Item,
		Duration:     req.Duration,
		Autobuy:      req.Autobuy,
		AcceptedList: req.AcceptedList,
		ImageLink:    req.ImageLink,
		Privileged:   req.Privileged,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, a)
}

func (h *AuctionHandler) handleStartBulk(w http.ResponseWriter, r *http.Request) {
	channelID, ok := h.channelID(w, r)
	if !ok {
		return
	}
	var req bulkStartRequest
	if !h.decode(w, r, &req) {
		return
	}

	items := make([]policy.BulkItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, policy.BulkItem{Name: it.Name, Qty: it.Qty})
	}

	a, err := h.engine.StartBulk(r.Context(), auction.BulkStartRequest{
		ChannelID:    channelID,
		ChannelName:  req.ChannelName,
		Host:         auction.User{ID: req.Host.ID, Name: req.Host.Name},
		Items:        items,
		Rarity:       policy.Rarity(req.Rarity),
		Duration:     req.Duration,
		Autobuy:      req.Autobuy,
		AcceptedList: req.AcceptedList,
		ImageLink:    req.ImageLink,
		Privileged:   req.Privileged,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, a)
}

func (h *AuctionHandler) handleInfo(w http.ResponseWriter, r *http.Request) {
	channelID, ok := h.channelID(w, r)
	if !ok {
		return
	}
	a, err := h.engine.Info(r.Context(), channelID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, a)
}

func (h *AuctionHandler) handleStop(w http.ResponseWriter, r *http.Request) {
	channelID, ok := h.channelID(w, r)
	if !ok {
		return
	}
	a, err := h.engine.Stop(r.Context(), channelID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, a)
}

func (h *AuctionHandler) handleBid(w http.ResponseWriter, r *http.Request) {
	channelID, ok := h.channelID(w, r)
	if !ok {
		return
	}
	var req bidRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.engine.PlaceBid(r.Context(),
		channelID, auction.User{ID: req.Bidder.ID, Name: req.Bidder.Name}, req.Amount)
	if err != nil {
		h.writeError(w, err)
		return
	}

	resp := bidResponse{Auction: result.Auction, Sold: result.Sold, Opening: result.Opening}
	if result.PreviousBidderID != 0 {
		resp.PreviousBidder = &userPayload{ID: result.PreviousBidderID, Name: result.PreviousBidder}
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *AuctionHandler) handleRollback(w http.ResponseWriter, r *http.Request) {
	channelID, ok := h.channelID(w, r)
	if !ok {
		return
	}
	var req rollbackRequest
	if !h.decode(w, r, &req) {
		return
	}

	a, err := h.engine.RollbackBid(r.Context(),
		channelID, auction.User{ID: req.Target.ID, Name: req.Target.Name}, req.Amount)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, a)
}

func (h *AuctionHandler) handleEndsOn(w http.ResponseWriter, r *http.Request) {
	channelID, ok := h.channelID(w, r)
	if !ok {
		return
	}
	var req endsOnRequest
	if !h.decode(w, r, &req) {
		return
	}

	a, err := h.engine.ExtendOrShorten(r.Context(),
		channelID, auction.Direction(req.Direction), req.Duration)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, a)
}

func (h *AuctionHandler) handleGetAcceptedList(w http.ResponseWriter, r *http.Request) {
	channelID, ok := h.channelID(w, r)
	if !ok {
		return
	}
	accepted, err := h.engine.AcceptedList(r.Context(), channelID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, acceptedListPayload{AcceptedList: accepted})
}

func (h *AuctionHandler) handlePutAcceptedList(w http.ResponseWriter, r *http.Request) {
	channelID, ok := h.channelID(w, r)
	if !ok {
		return
	}
	var req acceptedListPayload
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.engine.UpdateAcceptedList(r.Context(), channelID, req.AcceptedList); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuctionHandler) handleDeleteAcceptedList(w http.ResponseWriter, r *http.Request) {
	channelID, ok := h.channelID(w, r)
	if !ok {
		return
	}
	if err := h.engine.ClearAcceptedList(r.Context(), channelID); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuctionHandler) handleBroadcastMessage(w http.ResponseWriter, r *http.Request) {
	channelID, ok := h.channelID(w, r)
	if !ok {
		return
	}
	var req broadcastMessagePayload
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.engine.SetBroadcastMessage(r.Context(), channelID, req.MessageID); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleDueSweep triggers an immediate due sweep, outside the ticker.
func (h *AuctionHandler) handleDueSweep(w http.ResponseWriter, r *http.Request) {
	h.sweeper.RunDueSweep(r.Context())
	w.WriteHeader(http.StatusAccepted)
}

// handleLastCallSweep triggers an immediate last-call sweep.
func (h *AuctionHandler) handleLastCallSweep(w http.ResponseWriter, r *http.Request) {
	h.sweeper.RunLastCallSweep(r.Context())
	w.WriteHeader(http.StatusAccepted)
}

func (h *AuctionHandler) channelID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "channelID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		h.writeJSON(w, http.StatusBadRequest, errorPayload{
			Code:  string(auction.CodeValidation),
			Error: "invalid channel id",
		})
		return 0, false
	}
	return id, true
}

func (h *AuctionHandler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorPayload{
			Code:  string(auction.CodeValidation),
			Error: "invalid request body: " + err.Error(),
		})
		return false
	}
	return true
}

type errorPayload struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

func (h *AuctionHandler) writeError(w http.ResponseWriter, err error) {
	code := auction.CodeOf(err)
	status := http.StatusInternalServerError
	switch code {
	case auction.CodeValidation:
		status = http.StatusBadRequest
	case auction.CodeBusy:
		status = http.StatusConflict
	case auction.CodeNotFound:
		status = http.StatusNotFound
	case auction.CodePolicy:
		status = http.StatusUnprocessableEntity
	case auction.CodePersistence:
		status = http.StatusInternalServerError
		h.log.Error("request failed on persistence", "err", err)
	}
	h.writeJSON(w, status, errorPayload{Code: string(code), Error: err.Error()})
}

func (h *AuctionHandler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("response encoding failed", "err", err)
	}
}
