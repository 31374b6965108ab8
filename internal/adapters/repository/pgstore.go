package repository

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/Yuvrajsinh007/BidCycle/internal/domain/auction"
)

//go:embed migrations/001_ledger.sql
var ledgerSchema string

const itemColumns = `id, seller_id, title, base_price::text, current_bid::text, highest_max_bid::text,
	winner_id, winner_name, status, start_time, end_time, bid_count, version, updated_at`

const bidColumns = `id, item_id, bidder_id, bidder_name, amount::text, auto, seq, created_at`

// PostgresStore guards every item update with a version predicate inside a
// transaction; zero affected rows means another writer got there first.
type PostgresStore struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewPostgresStore connects, pings and applies the schema.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	cfg.MaxConnLifetime = 15 * time.Minute
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, ledgerSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply ledger schema: %w", err)
	}
	return &PostgresStore{pool: pool, now: time.Now}, nil
}

// Create implements Store.
func (s *PostgresStore) Create(ctx context.Context, item auction.Item) error {
	if err := validateNew(item); err != nil {
		return err
	}
	item = prepareNew(item, s.now())
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO items (id, seller_id, title, base_price, current_bid, highest_max_bid,
			winner_id, winner_name, status, start_time, end_time, bid_count, version, updated_at)
		VALUES ($1, $2, $3, $4::numeric, $5::numeric, $6::numeric, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO NOTHING`,
		item.ID, item.SellerID, item.Title, item.BasePrice.String(), item.CurrentBid.String(),
		item.HighestMaxBid.String(), item.WinnerID, item.WinnerName, string(item.Status),
		item.StartTime, item.EndTime, item.BidCount, item.Version, item.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrItemExists
	}
	return nil
}

// Get implements Store.
func (s *PostgresStore) Get(ctx context.Context, id string) (auction.Item, error) {
	start := time.Now()
	defer recordOp("get", start)
	return scanItem(s.pool.QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE id = $1`, id))
}

// Update implements Store.
func (s *PostgresStore) Update(ctx context.Context, id string, fn Mutation) (auction.Item, error) {
	start := time.Now()
	defer recordOp("update", start)

	var committed auction.Item
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		item, err := scanItem(tx.QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE id = $1`, id))
		if err != nil {
			return err
		}
		prev := item.Version
		newBids, err := fn(&item)
		if err != nil {
			return err
		}
		item.ID = id
		commitVersion(&item, prev, s.now())

		tag, err := tx.Exec(ctx, `
			UPDATE items
			SET current_bid = $2::numeric, highest_max_bid = $3::numeric, winner_id = $4,
				winner_name = $5, status = $6, bid_count = $7, version = $8, updated_at = $9
			WHERE id = $1 AND version = $10`,
			id, item.CurrentBid.String(), item.HighestMaxBid.String(), item.WinnerID,
			item.WinnerName, string(item.Status), item.BidCount, item.Version, item.UpdatedAt, prev)
		if err != nil {
			return fmt.Errorf("update item: %w", err)
		}
		if tag.RowsAffected() != 1 {
			return ErrConflict
		}

		for _, b := range newBids {
			if _, err := tx.Exec(ctx, `
				INSERT INTO bids (id, item_id, bidder_id, bidder_name, amount, auto, seq, created_at)
				VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8)`,
				b.ID, b.ItemID, b.BidderID, b.BidderName, b.Amount.String(), b.Auto, b.Seq, b.CreatedAt); err != nil {
				return fmt.Errorf("insert bid: %w", err)
			}
		}
		committed = item
		return nil
	})
	if err != nil {
		return auction.Item{}, err
	}
	return committed, nil
}

// ListDue implements Store.
func (s *PostgresStore) ListDue(ctx context.Context, now time.Time) ([]auction.Item, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+itemColumns+` FROM items
		WHERE (status IN ('upcoming', 'active') AND end_time <= $1)
		   OR (status = 'upcoming' AND start_time <= $1)
		ORDER BY end_time, id`, now)
	if err != nil {
		return nil, fmt.Errorf("list due: %w", err)
	}
	return collectItems(rows)
}

// Bids implements Store.
func (s *PostgresStore) Bids(ctx context.Context, itemID string) ([]auction.Bid, error) {
	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM items WHERE id = $1)`, itemID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check item: %w", err)
	}
	if !exists {
		return nil, auction.ErrNotFound
	}
	rows, err := s.pool.Query(ctx, `SELECT `+bidColumns+` FROM bids WHERE item_id = $1 ORDER BY seq`, itemID)
	if err != nil {
		return nil, fmt.Errorf("list bids: %w", err)
	}
	return collectBids(rows)
}

// BidsByBidder implements Store.
func (s *PostgresStore) BidsByBidder(ctx context.Context, bidderID string) ([]auction.Bid, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+bidColumns+` FROM bids WHERE bidder_id = $1 ORDER BY created_at, item_id, seq`, bidderID)
	if err != nil {
		return nil, fmt.Errorf("list bidder bids: %w", err)
	}
	return collectBids(rows)
}

// WonBy implements Store.
func (s *PostgresStore) WonBy(ctx context.Context, bidderID string) ([]auction.Item, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+itemColumns+` FROM items WHERE status = 'sold' AND winner_id = $1 ORDER BY end_time, id`, bidderID)
	if err != nil {
		return nil, fmt.Errorf("list won: %w", err)
	}
	return collectItems(rows)
}

// Count implements Store.
func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM items`).Scan(&n)
	return n, err
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) withTx(ctx context.Context, fn func(pgx.Tx) error) (err error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("can't begin tx: %w", err)
	}
	defer func() {
		p := recover()
		switch {
		case p != nil:
			_ = tx.Rollback(ctx)
			panic(p)
		case err != nil:
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				err = fmt.Errorf("can't rollback tx: %w. original error: %w", rbErr, err)
			}
		default:
			if err = tx.Commit(ctx); err != nil {
				err = fmt.Errorf("can't commit tx: %w", err)
			}
		}
	}()
	return fn(tx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (auction.Item, error) {
	var (
		it                     auction.Item
		base, current, ceiling string
		status                 string
	)
	err := row.Scan(&it.ID, &it.SellerID, &it.Title, &base, &current, &ceiling,
		&it.WinnerID, &it.WinnerName, &status, &it.StartTime, &it.EndTime,
		&it.BidCount, &it.Version, &it.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return auction.Item{}, auction.ErrNotFound
	}
	if err != nil {
		return auction.Item{}, fmt.Errorf("scan item: %w", err)
	}
	it.Status = auction.Status(status)
	if it.BasePrice, err = decimal.NewFromString(base); err != nil {
		return auction.Item{}, err
	}
	if it.CurrentBid, err = decimal.NewFromString(current); err != nil {
		return auction.Item{}, err
	}
	if it.HighestMaxBid, err = decimal.NewFromString(ceiling); err != nil {
		return auction.Item{}, err
	}
	return it, nil
}

func collectItems(rows pgx.Rows) ([]auction.Item, error) {
	defer rows.Close()
	var out []auction.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func collectBids(rows pgx.Rows) ([]auction.Bid, error) {
	defer rows.Close()
	var out []auction.Bid
	for rows.Next() {
		var (
			b      auction.Bid
			amount string
		)
		if err := rows.Scan(&b.ID, &b.ItemID, &b.BidderID, &b.BidderName, &amount, &b.Auto, &b.Seq, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan bid: %w", err)
		}
		d, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, err
		}
		b.Amount = d
		out = append(out, b)
	}
	return out, rows.Err()
}
