// Package httpapi exposes the REST surface of the marketplace: bid placement
// and bid listings (the core), plus the auction CRUD the dashboards consume.
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/auctra/auctra/internal/auth"
	"github.com/auctra/auctra/internal/bidding"
	"github.com/auctra/auctra/internal/events"
	"github.com/auctra/auctra/internal/metrics"
	"github.com/auctra/auctra/internal/models"
	"github.com/auctra/auctra/internal/store"
)

const defaultListLimit = 20

// Handler contains the HTTP request handlers.
type Handler struct {
	log       *slog.Logger
	engine    *bidding.Engine
	store     store.Store
	bus       events.Publisher
	validate  *validator.Validate
	metrics   *metrics.Metrics
	jwtSecret []byte
}

// NewHandler wires the HTTP layer. metrics may be nil (tests).
func NewHandler(log *slog.Logger, engine *bidding.Engine, st store.Store, bus events.Publisher, m *metrics.Metrics, jwtSecret []byte) *Handler {
	return &Handler{
		log:       log.With("component", "http"),
		engine:    engine,
		store:     st,
		bus:       bus,
		validate:  validator.New(),
		metrics:   m,
		jwtSecret: jwtSecret,
	}
}

// Routes configures the router. wsHandler, when non-nil, is mounted at /ws.
func (h *Handler) Routes(wsHandler http.Handler) *mux.Router {
	router := mux.NewRouter()
	router.Use(h.loggingMiddleware)
	router.Use(corsMiddleware)

	router.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	if wsHandler != nil {
		router.Handle("/ws", wsHandler)
	}

	api := router.PathPrefix("/api").Subrouter()

	api.Handle("/bids",
		h.instrument("place_bid", h.protected(auth.RoleBuyer, h.PlaceBid))).Methods(http.MethodPost)
	api.Handle("/bids/my-bids",
		h.instrument("my_bids", h.protected(auth.RoleBuyer, h.GetMyBids))).Methods(http.MethodGet)

	api.Handle("/auctions",
		h.instrument("create_auction", h.protected(auth.RoleSeller, h.CreateAuction))).Methods(http.MethodPost)
	api.Handle("/auctions",
		h.instrument("list_auctions", http.HandlerFunc(h.ListAuctions))).Methods(http.MethodGet)
	api.Handle("/auctions/seller/my-auctions",
		h.instrument("seller_auctions", h.protected(auth.RoleSeller, h.GetSellerAuctions))).Methods(http.MethodGet)
	api.Handle("/auctions/{id}/bids",
		h.instrument("auction_bids", http.HandlerFunc(h.GetAuctionBids))).Methods(http.MethodGet)
	api.Handle("/auctions/{id}",
		h.instrument("get_auction", http.HandlerFunc(h.GetAuction))).Methods(http.MethodGet)
	api.Handle("/auctions/{id}",
		h.instrument("delete_auction", h.protected(auth.RoleAdmin, h.DeleteAuction))).Methods(http.MethodDelete)

	return router
}

func (h *Handler) protected(role string, fn http.HandlerFunc) http.Handler {
	return auth.Middleware(h.jwtSecret)(auth.RequireRole(role)(fn))
}

// HealthCheck returns service health status.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "auctra",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// PlaceBid handles POST /api/bids.
func (h *Handler) PlaceBid(w http.ResponseWriter, r *http.Request) {
	var req placeBidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "auction id is required")
		return
	}
	auctionID, err := uuid.Parse(req.AuctionID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "auction id is invalid")
		return
	}

	identity, _ := auth.FromContext(r.Context())
	bid, err := h.engine.PlaceBid(r.Context(), auctionID, identity.ID, identity.Username, req.Amount)
	if err != nil {
		h.writeError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"message": "Bid placed successfully",
		"bid":     bid,
	})
}

// GetAuctionBids handles GET /api/auctions/{id}/bids. Public.
func (h *Handler) GetAuctionBids(w http.ResponseWriter, r *http.Request) {
	auctionID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "auction id is invalid")
		return
	}

	bids, err := h.engine.ListAuctionBids(r.Context(), auctionID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"bids":  bids,
		"count": len(bids),
	})
}

// GetMyBids handles GET /api/bids/my-bids.
func (h *Handler) GetMyBids(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.FromContext(r.Context())

	bids, err := h.engine.ListBidderBids(r.Context(), identity.ID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"bids":  bids,
		"count": len(bids),
	})
}

// CreateAuction handles POST /api/auctions.
func (h *Handler) CreateAuction(w http.ResponseWriter, r *http.Request) {
	var req createAuctionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "title and a positive duration are required")
		return
	}
	if !req.StartingPrice.IsPositive() {
		respondError(w, http.StatusBadRequest, "starting price must be positive")
		return
	}

	identity, _ := auth.FromContext(r.Context())
	auction := models.NewAuction(identity.ID, identity.Username,
		req.Title, req.Description, req.ImageURL, req.StartingPrice, req.Duration)

	if err := h.store.CreateAuction(r.Context(), auction); err != nil {
		h.writeError(w, err)
		return
	}

	h.bus.Publish(models.NewEvent(models.EventAuctionCreated, auction.ID, auction))
	h.log.Info("auction created", "auction_id", auction.ID, "seller_id", identity.ID)

	respondJSON(w, http.StatusCreated, map[string]any{
		"message": "Auction created successfully",
		"auction": auction,
	})
}

// ListAuctions handles GET /api/auctions with search/status/limit/offset.
func (h *Handler) ListAuctions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.AuctionFilter{
		Status: q.Get("status"),
		Search: q.Get("search"),
		Limit:  intParam(q.Get("limit"), defaultListLimit),
		Offset: intParam(q.Get("offset"), 0),
	}

	auctions, err := h.store.ListAuctions(r.Context(), filter)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.enrichAuctions(r, auctions); err != nil {
		h.writeError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"auctions": auctions,
		"count":    len(auctions),
	})
}

// GetAuction handles GET /api/auctions/{id}.
func (h *Handler) GetAuction(w http.ResponseWriter, r *http.Request) {
	auctionID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "auction id is invalid")
		return
	}

	auction, err := h.store.GetAuction(r.Context(), auctionID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.enrichAuctions(r, []*models.Auction{auction}); err != nil {
		h.writeError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"auction": auction})
}

// GetSellerAuctions handles GET /api/auctions/seller/my-auctions.
func (h *Handler) GetSellerAuctions(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.FromContext(r.Context())

	auctions, err := h.store.ListSellerAuctions(r.Context(), identity.ID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.enrichAuctions(r, auctions); err != nil {
		h.writeError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"auctions": auctions,
		"count":    len(auctions),
	})
}

// DeleteAuction handles DELETE /api/auctions/{id}. Admin-only destructive
// operation; the engine and scheduler tolerate the disappearance.
func (h *Handler) DeleteAuction(w http.ResponseWriter, r *http.Request) {
	auctionID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "auction id is invalid")
		return
	}

	if err := h.store.DeleteAuction(r.Context(), auctionID); err != nil {
		h.writeError(w, err)
		return
	}

	h.log.Info("auction deleted", "auction_id", auctionID)
	respondJSON(w, http.StatusOK, map[string]string{"message": "Auction deleted successfully"})
}

// enrichAuctions attaches bid count and highest bid amount at read time.
func (h *Handler) enrichAuctions(r *http.Request, auctions []*models.Auction) error {
	for _, a := range auctions {
		count, err := h.store.CountBids(r.Context(), a.ID)
		if err != nil {
			return err
		}
		a.BidCount = count

		highest, err := h.store.GetHighestBid(r.Context(), a.ID)
		if err != nil {
			return err
		}
		if highest != nil {
			amount := highest.Amount
			a.HighestBid = &amount
		}
	}
	return nil
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var tooLow *bidding.BidTooLowError
	switch {
	case errors.As(err, &tooLow):
		respondJSON(w, http.StatusBadRequest, map[string]any{
			"message":   tooLow.Error(),
			"threshold": tooLow.Threshold,
		})
	case errors.Is(err, bidding.ErrNotFound), errors.Is(err, store.ErrNotFound):
		respondError(w, http.StatusNotFound, "Auction not found")
	case errors.Is(err, bidding.ErrBusy):
		w.Header().Set("Retry-After", "1")
		respondError(w, http.StatusServiceUnavailable, err.Error())
	case bidding.IsRejection(err):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		h.log.Error("request failed", "error", err)
		respondError(w, http.StatusInternalServerError, "Server error")
	}
}

func intParam(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, statusCode int, message string) {
	respondJSON(w, statusCode, map[string]string{"message": message})
}
