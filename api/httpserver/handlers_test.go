package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grandline/auctionhouse/auction"
	"github.com/grandline/auctionhouse/market"
	"github.com/grandline/auctionhouse/policy"
)

func newTestRouter(t *testing.T) (chi.Router, *auction.Registry, *auction.GuardSet) {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	catalog := market.NewCatalog()
	catalog.Put(market.Entry{Name: "gigantamax-lapras", LowestValue: 2_000_000, Rarity: policy.RarityGigantamax})
	catalog.Put(market.Entry{Name: "arceus", LowestValue: 600_000, Rarity: policy.RarityLegendary})

	store := auction.NewMemoryStore()
	registry := auction.NewRegistry(store, log)
	guards := auction.NewGuardSet()

	engine := auction.NewEngine(registry, guards, catalog, notifyDiscard{}, auction.EngineConfig{
		Log: log,
		Now: func() time.Time { return time.Unix(1_700_000_000, 0) },
	})
	sweeper := auction.NewSweeper(registry, guards, store, notifyDiscard{},
		auction.DirectoryFunc(func(context.Context, int64) (bool, error) { return true, nil }),
		auction.SweeperConfig{Log: log, Now: func() time.Time { return time.Unix(1_700_000_000, 0) }})

	r := chi.NewRouter()
	NewAuctionHandler(engine, sweeper, log).RegisterRoutes(r)
	return r, registry, guards
}

type notifyDiscard struct{}

func (notifyDiscard) AuctionEnded(context.Context, *auction.Auction) error  { return nil }
func (notifyDiscard) AuctionClaim(context.Context, *auction.Auction) error  { return nil }
func (notifyDiscard) AuctionSold(context.Context, *auction.Auction) error   { return nil }
func (notifyDiscard) LastCall(context.Context, *auction.Auction) error      { return nil }
func (notifyDiscard) Outbid(context.Context, *auction.Auction, int64) error { return nil }

func doJSON(t *testing.T, r chi.Router, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(buf)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func startAuction(t *testing.T, r chi.Router) {
	t.Helper()
	rec := doJSON(t, r, http.MethodPost, "/api/v1/auctions/1/", startRequest{
		ChannelName: "auction-room",
		Host:        userPayload{ID: 100, Name: "host"},
		Item:        "gmax lapras",
		Duration:    "2h",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestHandler_StartAndInfo(t *testing.T) {
	r, _, _ := newTestRouter(t)
	startAuction(t, r)

	rec := doJSON(t, r, http.MethodGet, "/api/v1/auctions/1/", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var a auction.Auction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &a))
	assert.Equal(t, "gigantamax-lapras", a.Item)
	assert.Equal(t, int64(100_000), a.MinimumIncrement)
}

func TestHandler_StartConflictingAuction(t *testing.T) {
	r, _, _ := newTestRouter(t)
	startAuction(t, r)

	rec := doJSON(t, r, http.MethodPost, "/api/v1/auctions/1/", startRequest{
		Host:     userPayload{ID: 999, Name: "other"},
		Item:     "arceus",
		Duration: "1h",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var payload errorPayload
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, string(auction.CodeValidation), payload.Code)
}

func TestHandler_StartPolicyRejection(t *testing.T) {
	r, _, _ := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/api/v1/auctions/1/", startRequest{
		Host:     userPayload{ID: 100, Name: "host"},
		Item:     "missingno",
		Duration: "1h",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var payload errorPayload
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, string(auction.CodePolicy), payload.Code)
}

func TestHandler_BidFlow(t *testing.T) {
	r, _, _ := newTestRouter(t)
	startAuction(t, r)

	rec := doJSON(t, r, http.MethodPost, "/api/v1/auctions/1/bids", bidRequest{
		Bidder: userPayload{ID: 200, Name: "ash"},
		Amount: "150k",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res bidResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.True(t, res.Opening)
	assert.Equal(t, int64(150_000), res.Auction.HighestOffer)

	// Too small a raise answers 400.
	rec = doJSON(t, r, http.MethodPost, "/api/v1/auctions/1/bids", bidRequest{
		Bidder: userPayload{ID: 300, Name: "misty"},
		Amount: "200k",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, r, http.MethodPost, "/api/v1/auctions/1/bids", bidRequest{
		Bidder: userPayload{ID: 300, Name: "misty"},
		Amount: "250k",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.NotNil(t, res.PreviousBidder)
	assert.Equal(t, int64(200), res.PreviousBidder.ID)
}

func TestHandler_BidUnknownChannel(t *testing.T) {
	r, _, _ := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/api/v1/auctions/42/bids", bidRequest{
		Bidder: userPayload{ID: 200, Name: "ash"},
		Amount: "150k",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_BusyChannelAnswersConflict(t *testing.T) {
	r, _, guards := newTestRouter(t)
	startAuction(t, r)

	release, err := guards.TryAcquire(1, auction.OpEnding)
	require.NoError(t, err)
	defer release()

	rec := doJSON(t, r, http.MethodPost, "/api/v1/auctions/1/bids", bidRequest{
		Bidder: userPayload{ID: 200, Name: "ash"},
		Amount: "150k",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	var payload errorPayload
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, string(auction.CodeBusy), payload.Code)
}

func TestHandler_EndsOn(t *testing.T) {
	r, _, _ := newTestRouter(t)
	startAuction(t, r)

	rec := doJSON(t, r, http.MethodPost, "/api/v1/auctions/1/ends-on", endsOnRequest{
		Direction: "add",
		Duration:  "1h",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var a auction.Auction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &a))
	assert.Equal(t, int64(1_700_000_000+7_200+3_600), a.EndsOn)

	rec = doJSON(t, r, http.MethodPost, "/api/v1/auctions/1/ends-on", endsOnRequest{
		Direction: "subtract",
		Duration:  "5d",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_StopAndAcceptedList(t *testing.T) {
	r, registry, _ := newTestRouter(t)
	startAuction(t, r)

	rec := doJSON(t, r, http.MethodPut, "/api/v1/auctions/1/accepted-list", acceptedListPayload{
		AcceptedList: "arceus",
	})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, r, http.MethodGet, "/api/v1/auctions/1/accepted-list", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var payload acceptedListPayload
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, "arceus", payload.AcceptedList)

	rec = doJSON(t, r, http.MethodDelete, "/api/v1/auctions/1/accepted-list", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, r, http.MethodDelete, "/api/v1/auctions/1/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, registry.Exists(1))

	rec = doJSON(t, r, http.MethodGet, "/api/v1/auctions/1/", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_InvalidChannelID(t *testing.T) {
	r, _, _ := newTestRouter(t)

	rec := doJSON(t, r, http.MethodGet, "/api/v1/auctions/notanumber/", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, r, http.MethodGet, "/api/v1/auctions/-5/", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_SweepEndpoints(t *testing.T) {
	r, _, _ := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/api/v1/sweeps/due", nil)
	assert.Equal(t, http.StatusAccepted, rec.Code)

	rec = doJSON(t, r, http.MethodPost, "/api/v1/sweeps/last-call", nil)
	assert.Equal(t, http.StatusAccepted, rec.Code)
}
