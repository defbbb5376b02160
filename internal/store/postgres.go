package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/auctra/auctra/internal/models"
)

// Postgres implements Store on top of database/sql with the lib/pq driver.
type Postgres struct {
	db *sql.DB
}

// NewPostgres opens a connection pool and verifies connectivity.
func NewPostgres(connStr string) (*Postgres, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &Postgres{db: db}, nil
}

// InitSchema creates the auction and bid tables.
func (p *Postgres) InitSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS auctions (
		id UUID PRIMARY KEY,
		seller_id UUID NOT NULL,
		seller_username VARCHAR(255) NOT NULL DEFAULT '',
		title VARCHAR(200) NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		starting_price DECIMAL(10, 2) NOT NULL,
		current_price DECIMAL(10, 2) NOT NULL,
		image_url TEXT NOT NULL DEFAULT '',
		duration INT NOT NULL,
		start_time TIMESTAMPTZ NOT NULL,
		end_time TIMESTAMPTZ NOT NULL,
		status VARCHAR(50) NOT NULL DEFAULT 'active',
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS bids (
		id UUID PRIMARY KEY,
		auction_id UUID NOT NULL REFERENCES auctions(id) ON DELETE CASCADE,
		buyer_id UUID NOT NULL,
		buyer_username VARCHAR(255) NOT NULL DEFAULT '',
		amount DECIMAL(10, 2) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_auctions_seller_id ON auctions(seller_id);
	CREATE INDEX IF NOT EXISTS idx_auctions_status ON auctions(status);
	CREATE INDEX IF NOT EXISTS idx_auctions_end_time ON auctions(end_time);
	CREATE INDEX IF NOT EXISTS idx_bids_auction_id ON bids(auction_id);
	CREATE INDEX IF NOT EXISTS idx_bids_buyer_id ON bids(buyer_id);
	CREATE INDEX IF NOT EXISTS idx_bids_amount ON bids(auction_id, amount DESC, created_at ASC);
	`

	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

const auctionColumns = `id, seller_id, seller_username, title, description, starting_price,
	current_price, image_url, duration, start_time, end_time, status, created_at, updated_at`

func scanAuction(row interface{ Scan(...any) error }) (*models.Auction, error) {
	a := &models.Auction{}
	err := row.Scan(
		&a.ID, &a.SellerID, &a.SellerUsername, &a.Title, &a.Description,
		&a.StartingPrice, &a.CurrentPrice, &a.ImageURL, &a.DurationDays,
		&a.StartTime, &a.EndTime, &a.Status, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (p *Postgres) CreateAuction(ctx context.Context, a *models.Auction) error {
	query := `
		INSERT INTO auctions (` + auctionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := p.db.ExecContext(ctx, query,
		a.ID, a.SellerID, a.SellerUsername, a.Title, a.Description,
		a.StartingPrice, a.CurrentPrice, a.ImageURL, a.DurationDays,
		a.StartTime, a.EndTime, a.Status, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert auction: %w", err)
	}
	return nil
}

func (p *Postgres) GetAuction(ctx context.Context, id uuid.UUID) (*models.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions WHERE id = $1`
	a, err := scanAuction(p.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get auction: %w", err)
	}
	return a, nil
}

func (p *Postgres) ListAuctions(ctx context.Context, f AuctionFilter) ([]*models.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions WHERE 1=1`
	args := []any{}

	if f.Status != "" {
		args = append(args, f.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		query += fmt.Sprintf(" AND (title ILIKE $%d OR description ILIKE $%d)", len(args), len(args))
	}
	query += " ORDER BY created_at DESC"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	return p.queryAuctions(ctx, query, args...)
}

func (p *Postgres) ListSellerAuctions(ctx context.Context, sellerID uuid.UUID) ([]*models.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions WHERE seller_id = $1 ORDER BY created_at DESC`
	return p.queryAuctions(ctx, query, sellerID)
}

func (p *Postgres) queryAuctions(ctx context.Context, query string, args ...any) ([]*models.Auction, error) {
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query auctions: %w", err)
	}
	defer rows.Close()

	var auctions []*models.Auction
	for rows.Next() {
		a, err := scanAuction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan auction: %w", err)
		}
		auctions = append(auctions, a)
	}
	return auctions, rows.Err()
}

func (p *Postgres) ListActiveAuctions(ctx context.Context) ([]models.AuctionRef, error) {
	query := `SELECT id, end_time FROM auctions WHERE status = 'active' ORDER BY end_time ASC`
	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query active auctions: %w", err)
	}
	defer rows.Close()

	var refs []models.AuctionRef
	for rows.Next() {
		var ref models.AuctionRef
		if err := rows.Scan(&ref.ID, &ref.EndTime); err != nil {
			return nil, fmt.Errorf("failed to scan auction ref: %w", err)
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

func (p *Postgres) UpdateCurrentPriceIfHigher(ctx context.Context, id uuid.UUID, newPrice decimal.Decimal) (bool, error) {
	query := `
		UPDATE auctions
		SET current_price = $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2 AND status = 'active' AND current_price < $1
	`
	result, err := p.db.ExecContext(ctx, query, newPrice, id)
	if err != nil {
		return false, fmt.Errorf("failed to update current price: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

func (p *Postgres) CloseIfActive(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE auctions
		SET status = 'closed', updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND status = 'active'
	`
	result, err := p.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to close auction: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

func (p *Postgres) DeleteAuction(ctx context.Context, id uuid.UUID) error {
	result, err := p.db.ExecContext(ctx, `DELETE FROM auctions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete auction: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) InsertBid(ctx context.Context, b *models.Bid) error {
	query := `
		INSERT INTO bids (id, auction_id, buyer_id, buyer_username, amount, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := p.db.ExecContext(ctx, query,
		b.ID, b.AuctionID, b.BuyerID, b.BuyerUsername, b.Amount, b.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert bid: %w", err)
	}
	return nil
}

const bidColumns = `id, auction_id, buyer_id, buyer_username, amount, created_at`

func scanBid(row interface{ Scan(...any) error }) (*models.Bid, error) {
	b := &models.Bid{}
	err := row.Scan(&b.ID, &b.AuctionID, &b.BuyerID, &b.BuyerUsername, &b.Amount, &b.CreatedAt)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (p *Postgres) GetHighestBid(ctx context.Context, auctionID uuid.UUID) (*models.Bid, error) {
	query := `
		SELECT ` + bidColumns + ` FROM bids
		WHERE auction_id = $1
		ORDER BY amount DESC, created_at ASC
		LIMIT 1
	`
	b, err := scanBid(p.db.QueryRowContext(ctx, query, auctionID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get highest bid: %w", err)
	}
	return b, nil
}

func (p *Postgres) ListBidsForAuction(ctx context.Context, auctionID uuid.UUID) ([]*models.Bid, error) {
	query := `
		SELECT ` + bidColumns + ` FROM bids
		WHERE auction_id = $1
		ORDER BY amount DESC, created_at ASC
	`
	return p.queryBids(ctx, query, auctionID)
}

func (p *Postgres) ListBidsForBidder(ctx context.Context, bidderID uuid.UUID) ([]*models.Bid, error) {
	query := `
		SELECT ` + bidColumns + ` FROM bids
		WHERE buyer_id = $1
		ORDER BY created_at DESC
	`
	return p.queryBids(ctx, query, bidderID)
}

func (p *Postgres) queryBids(ctx context.Context, query string, args ...any) ([]*models.Bid, error) {
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bids: %w", err)
	}
	defer rows.Close()

	var bids []*models.Bid
	for rows.Next() {
		b, err := scanBid(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bid: %w", err)
		}
		bids = append(bids, b)
	}
	return bids, rows.Err()
}

func (p *Postgres) CountBids(ctx context.Context, auctionID uuid.UUID) (int, error) {
	var count int
	err := p.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bids WHERE auction_id = $1`, auctionID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count bids: %w", err)
	}
	return count, nil
}

// Close closes the underlying connection pool.
func (p *Postgres) Close() error {
	return p.db.Close()
}
