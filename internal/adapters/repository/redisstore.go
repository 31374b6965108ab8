package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/Yuvrajsinh007/BidCycle/internal/domain/auction"
)

// Redis key layout.
const (
	redisKeyPrefix   = "bidcycle:"
	redisAllItemsKey = redisKeyPrefix + "items"
	redisByEndKey    = redisKeyPrefix + "items:by_end"
	redisByStartKey  = redisKeyPrefix + "items:by_start"
)

func redisItemKey(id string) string       { return redisKeyPrefix + "item:" + id }
func redisItemBidsKey(id string) string   { return redisKeyPrefix + "item:" + id + ":bids" }
func redisBidderBidsKey(id string) string { return redisKeyPrefix + "bidder:" + id + ":bids" }
func redisBidderWonKey(id string) string  { return redisKeyPrefix + "bidder:" + id + ":won" }

// RedisStore keeps each item in a hash and guards updates with WATCH/MULTI,
// so a concurrent write to the same hash aborts the transaction.
type RedisStore struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisStore wraps a connected client. The store owns the client from here on.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, now: time.Now}
}

// DialRedis connects and pings.
func DialRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}

// Create implements Store.
func (s *RedisStore) Create(ctx context.Context, item auction.Item) error {
	if err := validateNew(item); err != nil {
		return err
	}
	item = prepareNew(item, s.now())
	key := redisItemKey(item.ID)

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrItemExists
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, encodeItemHash(item))
			pipe.SAdd(ctx, redisAllItemsKey, item.ID)
			indexItem(ctx, pipe, item)
			return nil
		})
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return ErrItemExists
	}
	return err
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, id string) (auction.Item, error) {
	start := time.Now()
	defer recordOp("get", start)
	return loadItem(ctx, s.client, id)
}

// Update implements Store.
func (s *RedisStore) Update(ctx context.Context, id string, fn Mutation) (auction.Item, error) {
	start := time.Now()
	defer recordOp("update", start)

	key := redisItemKey(id)
	var committed auction.Item
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		item, err := loadItem(ctx, tx, id)
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

		encoded := make([]string, len(newBids))
		for i, b := range newBids {
			raw, err := json.Marshal(b)
			if err != nil {
				return fmt.Errorf("encode bid: %w", err)
			}
			encoded[i] = string(raw)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, encodeItemHash(item))
			for i, b := range newBids {
				pipe.RPush(ctx, redisItemBidsKey(id), encoded[i])
				pipe.RPush(ctx, redisBidderBidsKey(b.BidderID), encoded[i])
			}
			indexItem(ctx, pipe, item)
			if item.Status == auction.StatusSold {
				pipe.SAdd(ctx, redisBidderWonKey(item.WinnerID), id)
			}
			return nil
		})
		if err != nil {
			return err
		}
		committed = item
		return nil
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return auction.Item{}, ErrConflict
	}
	if err != nil {
		return auction.Item{}, err
	}
	return committed, nil
}

// ListDue implements Store.
func (s *RedisStore) ListDue(ctx context.Context, now time.Time) ([]auction.Item, error) {
	bound := strconv.FormatInt(now.UnixNano(), 10)
	ending, err := s.client.ZRangeByScore(ctx, redisByEndKey, &redis.ZRangeBy{Min: "-inf", Max: bound}).Result()
	if err != nil {
		return nil, fmt.Errorf("due by end: %w", err)
	}
	starting, err := s.client.ZRangeByScore(ctx, redisByStartKey, &redis.ZRangeBy{Min: "-inf", Max: bound}).Result()
	if err != nil {
		return nil, fmt.Errorf("due by start: %w", err)
	}

	seen := make(map[string]struct{}, len(ending)+len(starting))
	var due []auction.Item
	for _, id := range append(ending, starting...) {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		it, err := loadItem(ctx, s.client, id)
		if errors.Is(err, auction.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if it.DueForClose(now) || it.DueForActivation(now) {
			due = append(due, it)
		}
	}
	sortByEnd(due)
	return due, nil
}

// Bids implements Store.
func (s *RedisStore) Bids(ctx context.Context, itemID string) ([]auction.Bid, error) {
	n, err := s.client.Exists(ctx, redisItemKey(itemID)).Result()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, auction.ErrNotFound
	}
	return s.readBids(ctx, redisItemBidsKey(itemID))
}

// BidsByBidder implements Store.
func (s *RedisStore) BidsByBidder(ctx context.Context, bidderID string) ([]auction.Bid, error) {
	return s.readBids(ctx, redisBidderBidsKey(bidderID))
}

// WonBy implements Store.
func (s *RedisStore) WonBy(ctx context.Context, bidderID string) ([]auction.Item, error) {
	ids, err := s.client.SMembers(ctx, redisBidderWonKey(bidderID)).Result()
	if err != nil {
		return nil, err
	}
	won := make([]auction.Item, 0, len(ids))
	for _, id := range ids {
		it, err := loadItem(ctx, s.client, id)
		if err != nil {
			return nil, err
		}
		if it.Status == auction.StatusSold && it.WinnerID == bidderID {
			won = append(won, it)
		}
	}
	sortByEnd(won)
	return won, nil
}

// Count implements Store.
func (s *RedisStore) Count(ctx context.Context) (int, error) {
	n, err := s.client.SCard(ctx, redisAllItemsKey).Result()
	return int(n), err
}

// Close closes the client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) readBids(ctx context.Context, key string) ([]auction.Bid, error) {
	raw, err := s.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	bids := make([]auction.Bid, 0, len(raw))
	for _, r := range raw {
		var b auction.Bid
		if err := json.Unmarshal([]byte(r), &b); err != nil {
			return nil, fmt.Errorf("decode bid: %w", err)
		}
		bids = append(bids, b)
	}
	return bids, nil
}

// indexItem keeps the due indexes in step with the item status.
func indexItem(ctx context.Context, pipe redis.Pipeliner, item auction.Item) {
	if item.Status.IsClosed() {
		pipe.ZRem(ctx, redisByEndKey, item.ID)
		pipe.ZRem(ctx, redisByStartKey, item.ID)
		return
	}
	pipe.ZAdd(ctx, redisByEndKey, redis.Z{Score: float64(item.EndTime.UnixNano()), Member: item.ID})
	if item.Status == auction.StatusUpcoming {
		pipe.ZAdd(ctx, redisByStartKey, redis.Z{Score: float64(item.StartTime.UnixNano()), Member: item.ID})
	} else {
		pipe.ZRem(ctx, redisByStartKey, item.ID)
	}
}

// hashReader is satisfied by both *redis.Client and *redis.Tx.
type hashReader interface {
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
}

func loadItem(ctx context.Context, c hashReader, id string) (auction.Item, error) {
	vals, err := c.HGetAll(ctx, redisItemKey(id)).Result()
	if err != nil {
		return auction.Item{}, fmt.Errorf("load item %s: %w", id, err)
	}
	if len(vals) == 0 {
		return auction.Item{}, auction.ErrNotFound
	}
	return decodeItemHash(id, vals)
}

func encodeItemHash(it auction.Item) map[string]interface{} {
	return map[string]interface{}{
		"seller_id":       it.SellerID,
		"title":           it.Title,
		"base_price":      it.BasePrice.String(),
		"current_bid":     it.CurrentBid.String(),
		"highest_max_bid": it.HighestMaxBid.String(),
		"winner_id":       it.WinnerID,
		"winner_name":     it.WinnerName,
		"status":          string(it.Status),
		"start_time":      it.StartTime.UnixNano(),
		"end_time":        it.EndTime.UnixNano(),
		"bid_count":       it.BidCount,
		"version":         it.Version,
		"updated_at":      it.UpdatedAt.UnixNano(),
	}
}

func decodeItemHash(id string, v map[string]string) (auction.Item, error) {
	it := auction.Item{
		ID:         id,
		SellerID:   v["seller_id"],
		Title:      v["title"],
		WinnerID:   v["winner_id"],
		WinnerName: v["winner_name"],
		Status:     auction.Status(v["status"]),
	}
	var err error
	decimals := []struct {
		field string
		dst   *decimal.Decimal
	}{
		{"base_price", &it.BasePrice},
		{"current_bid", &it.CurrentBid},
		{"highest_max_bid", &it.HighestMaxBid},
	}
	for _, d := range decimals {
		if *d.dst, err = decimal.NewFromString(v[d.field]); err != nil {
			return auction.Item{}, fmt.Errorf("item %s field %s: %w", id, d.field, err)
		}
	}
	ints := []struct {
		field string
		dst   *int64
	}{
		{"bid_count", &it.BidCount},
		{"version", &it.Version},
	}
	for _, n := range ints {
		if *n.dst, err = strconv.ParseInt(v[n.field], 10, 64); err != nil {
			return auction.Item{}, fmt.Errorf("item %s field %s: %w", id, n.field, err)
		}
	}
	times := []struct {
		field string
		dst   *time.Time
	}{
		{"start_time", &it.StartTime},
		{"end_time", &it.EndTime},
		{"updated_at", &it.UpdatedAt},
	}
	for _, t := range times {
		ns, err := strconv.ParseInt(v[t.field], 10, 64)
		if err != nil {
			return auction.Item{}, fmt.Errorf("item %s field %s: %w", id, t.field, err)
		}
		*t.dst = time.Unix(0, ns).UTC()
	}
	return it, nil
}
