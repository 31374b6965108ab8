package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/shopspring/decimal"

	"github.com/Yuvrajsinh007/BidCycle/internal/domain/auction"
)

// CatalogEntry is one item as supplied by the external catalog.
type CatalogEntry struct {
	ID        string    `koanf:"id"`
	SellerID  string    `koanf:"seller_id"`
	Title     string    `koanf:"title"`
	BasePrice string    `koanf:"base_price"`
	StartTime time.Time `koanf:"start_time"`
	EndTime   time.Time `koanf:"end_time"`
}

// Item converts the entry into a new ledger item.
func (e CatalogEntry) Item() (auction.Item, error) {
	price, err := decimal.NewFromString(e.BasePrice)
	if err != nil {
		return auction.Item{}, fmt.Errorf("%w: %s base_price: %w", ErrInvalidItem, e.ID, err)
	}
	if e.StartTime.IsZero() || e.EndTime.IsZero() {
		return auction.Item{}, fmt.Errorf("%w: %s needs start_time and end_time", ErrInvalidItem, e.ID)
	}
	return auction.Item{
		ID:        e.ID,
		SellerID:  e.SellerID,
		Title:     e.Title,
		BasePrice: price,
		Status:    auction.StatusUpcoming,
		StartTime: e.StartTime.UTC(),
		EndTime:   e.EndTime.UTC(),
	}, nil
}

// LoadCatalog reads a YAML catalog ("items: [...]") and creates every entry
// not already present. It returns the number of items created.
func LoadCatalog(ctx context.Context, store Store, path string) (int, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return 0, fmt.Errorf("load catalog %s: %w", path, err)
	}
	var entries []CatalogEntry
	if err := k.UnmarshalWithConf("items", &entries, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return 0, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	return SeedItems(ctx, store, entries)
}

// SeedItems creates the given entries, skipping ids that already exist.
func SeedItems(ctx context.Context, store Store, entries []CatalogEntry) (int, error) {
	created := 0
	for _, e := range entries {
		item, err := e.Item()
		if err != nil {
			return created, err
		}
		switch err := store.Create(ctx, item); {
		case errors.Is(err, ErrItemExists):
			continue
		case err != nil:
			return created, fmt.Errorf("create %s: %w", e.ID, err)
		}
		created++
	}
	return created, nil
}
