package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/auctra/auctra/internal/auth"
	"github.com/auctra/auctra/internal/bidding"
	"github.com/auctra/auctra/internal/events"
	"github.com/auctra/auctra/internal/models"
	"github.com/auctra/auctra/internal/store"
)

var testSecret = []byte("test-secret")

type fixture struct {
	router http.Handler
	store  *store.Memory
	events *eventRecorder
}

type eventRecorder struct {
	mu     sync.Mutex
	events []models.Event
}

func (r *eventRecorder) record(evt models.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

func (r *eventRecorder) types() []models.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.EventType
	for _, evt := range r.events {
		out = append(out, evt.Type)
	}
	return out
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	st := store.NewMemory()

	rec := &eventRecorder{}
	bus := events.NewBus(log)
	bus.Subscribe(events.SinkFunc(rec.record))

	engine := bidding.NewEngine(log, st, bus, nil, bidding.DefaultLockWait)
	h := NewHandler(log, engine, st, bus, nil, testSecret)
	return &fixture{router: h.Routes(nil), store: st, events: rec}
}

func token(t *testing.T, role string) (string, auth.Identity) {
	t.Helper()
	id := auth.Identity{ID: uuid.New(), Username: role + "-user", Role: role}
	tok, err := auth.NewToken(testSecret, id, time.Hour)
	require.NoError(t, err)
	return tok, id
}

func (f *fixture) do(t *testing.T, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) seedAuction(t *testing.T, price int64) *models.Auction {
	t.Helper()
	a := models.NewAuction(uuid.New(), "seller", "Vintage camera", "desc", "", decimal.NewFromInt(price), 3)
	require.NoError(t, f.store.CreateAuction(context.Background(), a))
	return a
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestPlaceBid_RequiresBuyer(t *testing.T) {
	f := newFixture(t)
	a := f.seedAuction(t, 100)
	body := map[string]any{"auctionId": a.ID.String(), "amount": 150}

	rec := f.do(t, http.MethodPost, "/api/bids", "", body)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	sellerTok, _ := token(t, auth.RoleSeller)
	rec = f.do(t, http.MethodPost, "/api/bids", sellerTok, body)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestPlaceBid_Created(t *testing.T) {
	f := newFixture(t)
	a := f.seedAuction(t, 100)
	buyerTok, buyer := token(t, auth.RoleBuyer)

	rec := f.do(t, http.MethodPost, "/api/bids", buyerTok,
		map[string]any{"auctionId": a.ID.String(), "amount": 150})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Message string     `json:"message"`
		Bid     models.Bid `json:"bid"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, buyer.ID, resp.Bid.BuyerID)
	require.True(t, resp.Bid.Amount.Equal(decimal.NewFromInt(150)))

	got, err := f.store.GetAuction(context.Background(), a.ID)
	require.NoError(t, err)
	require.True(t, got.CurrentPrice.Equal(decimal.NewFromInt(150)))

	require.Contains(t, f.events.types(), models.EventNewBid)
}

func TestPlaceBid_TooLowCarriesThreshold(t *testing.T) {
	f := newFixture(t)
	a := f.seedAuction(t, 100)
	buyerTok, _ := token(t, auth.RoleBuyer)

	rec := f.do(t, http.MethodPost, "/api/bids", buyerTok,
		map[string]any{"auctionId": a.ID.String(), "amount": 100})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp struct {
		Message   string          `json:"message"`
		Threshold decimal.Decimal `json:"threshold"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Contains(t, resp.Message, "$100.00")
	require.True(t, resp.Threshold.Equal(decimal.NewFromInt(100)))
}

func TestPlaceBid_BadRequests(t *testing.T) {
	f := newFixture(t)
	buyerTok, _ := token(t, auth.RoleBuyer)

	tests := []struct {
		name string
		body any
		want int
	}{
		{"missing auction id", map[string]any{"amount": 10}, http.StatusBadRequest},
		{"malformed auction id", map[string]any{"auctionId": "nope", "amount": 10}, http.StatusBadRequest},
		{"unknown auction", map[string]any{"auctionId": uuid.New().String(), "amount": 10}, http.StatusNotFound},
		{"negative amount", map[string]any{"auctionId": uuid.New().String(), "amount": -5}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/api/bids", buyerTok, tt.body)
			require.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestGetAuctionBids_SortedByAmount(t *testing.T) {
	f := newFixture(t)
	a := f.seedAuction(t, 100)
	buyerTok, _ := token(t, auth.RoleBuyer)

	for _, amount := range []int{150, 200, 300} {
		rec := f.do(t, http.MethodPost, "/api/bids", buyerTok,
			map[string]any{"auctionId": a.ID.String(), "amount": amount})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := f.do(t, http.MethodGet, fmt.Sprintf("/api/auctions/%s/bids", a.ID), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Bids  []models.Bid `json:"bids"`
		Count int          `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 3, resp.Count)
	require.True(t, resp.Bids[0].Amount.Equal(decimal.NewFromInt(300)))
	require.True(t, resp.Bids[2].Amount.Equal(decimal.NewFromInt(150)))
}

func TestGetMyBids_Enriched(t *testing.T) {
	f := newFixture(t)
	a := f.seedAuction(t, 100)
	buyerTok, _ := token(t, auth.RoleBuyer)
	rivalTok, _ := token(t, auth.RoleBuyer)

	rec := f.do(t, http.MethodPost, "/api/bids", buyerTok,
		map[string]any{"auctionId": a.ID.String(), "amount": 150})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = f.do(t, http.MethodPost, "/api/bids", rivalTok,
		map[string]any{"auctionId": a.ID.String(), "amount": 200})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/bids/my-bids", buyerTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Bids  []models.BidderBid `json:"bids"`
		Count int                `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Count)
	require.Equal(t, a.Title, resp.Bids[0].AuctionTitle)
	require.True(t, resp.Bids[0].HighestBid.Equal(decimal.NewFromInt(200)))
	require.Equal(t, 2, resp.Bids[0].BidCount)
}

func TestCreateAuction(t *testing.T) {
	f := newFixture(t)
	sellerTok, seller := token(t, auth.RoleSeller)

	rec := f.do(t, http.MethodPost, "/api/auctions", sellerTok, map[string]any{
		"title":         "Antique desk",
		"description":   "Oak, 1920s",
		"startingPrice": 250,
		"duration":      5,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Auction models.Auction `json:"auction"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, seller.ID, resp.Auction.SellerID)
	require.Equal(t, models.AuctionStatusActive, resp.Auction.Status)
	require.True(t, resp.Auction.CurrentPrice.Equal(decimal.NewFromInt(250)))
	require.Equal(t, resp.Auction.StartTime.Add(5*24*time.Hour), resp.Auction.EndTime)

	require.Contains(t, f.events.types(), models.EventAuctionCreated)

	// Buyers cannot create auctions.
	buyerTok, _ := token(t, auth.RoleBuyer)
	rec = f.do(t, http.MethodPost, "/api/auctions", buyerTok, map[string]any{
		"title": "x", "startingPrice": 10, "duration": 1,
	})
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCreateAuction_Validation(t *testing.T) {
	f := newFixture(t)
	sellerTok, _ := token(t, auth.RoleSeller)

	tests := []struct {
		name string
		body map[string]any
	}{
		{"missing title", map[string]any{"startingPrice": 10, "duration": 1}},
		{"zero duration", map[string]any{"title": "x", "startingPrice": 10, "duration": 0}},
		{"zero starting price", map[string]any{"title": "x", "startingPrice": 0, "duration": 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/api/auctions", sellerTok, tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestListAuctions_FilteredAndEnriched(t *testing.T) {
	f := newFixture(t)
	a := f.seedAuction(t, 100)
	closed := f.seedAuction(t, 50)
	_, err := f.store.CloseIfActive(context.Background(), closed.ID)
	require.NoError(t, err)

	buyerTok, _ := token(t, auth.RoleBuyer)
	rec := f.do(t, http.MethodPost, "/api/bids", buyerTok,
		map[string]any{"auctionId": a.ID.String(), "amount": 175})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/auctions?status=active", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Auctions []models.Auction `json:"auctions"`
		Count    int              `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Count)
	require.Equal(t, a.ID, resp.Auctions[0].ID)
	require.Equal(t, 1, resp.Auctions[0].BidCount)
	require.NotNil(t, resp.Auctions[0].HighestBid)
	require.True(t, resp.Auctions[0].HighestBid.Equal(decimal.NewFromInt(175)))
}

func TestDeleteAuction_AdminOnly(t *testing.T) {
	f := newFixture(t)
	a := f.seedAuction(t, 100)

	buyerTok, _ := token(t, auth.RoleBuyer)
	rec := f.do(t, http.MethodDelete, "/api/auctions/"+a.ID.String(), buyerTok, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	adminTok, _ := token(t, auth.RoleAdmin)
	rec = f.do(t, http.MethodDelete, "/api/auctions/"+a.ID.String(), adminTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodDelete, "/api/auctions/"+a.ID.String(), adminTok, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetAuction(t *testing.T) {
	f := newFixture(t)
	a := f.seedAuction(t, 100)

	rec := f.do(t, http.MethodGet, "/api/auctions/"+a.ID.String(), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/auctions/"+uuid.New().String(), "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
