package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/auctra/auctra/internal/models"
)

// Memory is a mutex-guarded in-memory Store. It backs tests and the
// STORAGE_DRIVER=memory development mode; its conditional-update semantics
// mirror the Postgres implementation exactly.
type Memory struct {
	mu       sync.RWMutex
	auctions map[uuid.UUID]*models.Auction
	bids     map[uuid.UUID][]*models.Bid // keyed by auction id
}

func NewMemory() *Memory {
	return &Memory{
		auctions: make(map[uuid.UUID]*models.Auction),
		bids:     make(map[uuid.UUID][]*models.Bid),
	}
}

func (m *Memory) CreateAuction(_ context.Context, a *models.Auction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	m.auctions[a.ID] = &cp
	return nil
}

func (m *Memory) GetAuction(_ context.Context, id uuid.UUID) (*models.Auction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.auctions[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *Memory) ListAuctions(_ context.Context, f AuctionFilter) ([]*models.Auction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*models.Auction
	for _, a := range m.auctions {
		if f.Status != "" && string(a.Status) != f.Status {
			continue
		}
		if f.Search != "" {
			needle := strings.ToLower(f.Search)
			if !strings.Contains(strings.ToLower(a.Title), needle) &&
				!strings.Contains(strings.ToLower(a.Description), needle) {
				continue
			}
		}
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return nil, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(out) {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *Memory) ListSellerAuctions(_ context.Context, sellerID uuid.UUID) ([]*models.Auction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*models.Auction
	for _, a := range m.auctions {
		if a.SellerID == sellerID {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) ListActiveAuctions(_ context.Context) ([]models.AuctionRef, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var refs []models.AuctionRef
	for _, a := range m.auctions {
		if a.Status == models.AuctionStatusActive {
			refs = append(refs, models.AuctionRef{ID: a.ID, EndTime: a.EndTime})
		}
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].EndTime.Before(refs[j].EndTime) })
	return refs, nil
}

func (m *Memory) UpdateCurrentPriceIfHigher(_ context.Context, id uuid.UUID, newPrice decimal.Decimal) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.auctions[id]
	if !ok || a.Status != models.AuctionStatusActive || !newPrice.GreaterThan(a.CurrentPrice) {
		return false, nil
	}
	a.CurrentPrice = newPrice
	a.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (m *Memory) CloseIfActive(_ context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.auctions[id]
	if !ok || a.Status != models.AuctionStatusActive {
		return false, nil
	}
	a.Status = models.AuctionStatusClosed
	a.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (m *Memory) DeleteAuction(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.auctions[id]; !ok {
		return ErrNotFound
	}
	delete(m.auctions, id)
	delete(m.bids, id)
	return nil
}

func (m *Memory) InsertBid(_ context.Context, b *models.Bid) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *b
	m.bids[b.AuctionID] = append(m.bids[b.AuctionID], &cp)
	return nil
}

func (m *Memory) GetHighestBid(_ context.Context, auctionID uuid.UUID) (*models.Bid, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var best *models.Bid
	for _, b := range m.bids[auctionID] {
		if best == nil ||
			b.Amount.GreaterThan(best.Amount) ||
			(b.Amount.Equal(best.Amount) && b.CreatedAt.Before(best.CreatedAt)) {
			best = b
		}
	}
	if best == nil {
		return nil, nil
	}
	cp := *best
	return &cp, nil
}

func (m *Memory) ListBidsForAuction(_ context.Context, auctionID uuid.UUID) ([]*models.Bid, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*models.Bid, 0, len(m.bids[auctionID]))
	for _, b := range m.bids[auctionID] {
		cp := *b
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Amount.Equal(out[j].Amount) {
			return out[i].Amount.GreaterThan(out[j].Amount)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *Memory) ListBidsForBidder(_ context.Context, bidderID uuid.UUID) ([]*models.Bid, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*models.Bid
	for _, bids := range m.bids {
		for _, b := range bids {
			if b.BuyerID == bidderID {
				cp := *b
				out = append(out, &cp)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) CountBids(_ context.Context, auctionID uuid.UUID) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.bids[auctionID]), nil
}
