package bidsim

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Yuvrajsinh007/BidCycle/internal/domain/auction"
	"github.com/Yuvrajsinh007/BidCycle/pkg/logger"
)

// HTTPClient wraps http.Client with timeout
type HTTPClient struct {
	client *http.Client
}

// newHTTPClient creates a new HTTP client with timeout
func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{client: &http.Client{Timeout: timeout}}
}

// Get performs a GET request
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// GetJSON performs a GET request and decodes a 200 response into v.
func (c *HTTPClient) GetJSON(ctx context.Context, url string, v interface{}) error {
	resp, err := c.Get(ctx, url)
	if err != nil {
		return err
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return err
	}
	if resp.StatusCode != StatusOK {
		return fmt.Errorf("GET %s: status %d: %s", url, resp.StatusCode, bytes.TrimSpace(body))
	}
	return json.Unmarshal(body, v)
}

// PostBid submits one ceiling and records the answer. Transport failures
// land in Observation.Err.
func (c *HTTPClient) PostBid(ctx context.Context, baseURL, itemID string, sub Submission) Observation {
	obs := Observation{Submission: sub}

	payload, err := json.Marshal(map[string]decimal.Decimal{"amount": sub.Ceiling})
	if err != nil {
		obs.Err = fmt.Errorf("failed to marshal request body: %w", err)
		return obs
	}
	endpoint := baseURL + "/items/" + url.PathEscape(itemID) + "/bids"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		obs.Err = fmt.Errorf("failed to create request: %w", err)
		return obs
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(headerBidderID, sub.BidderID)
	req.Header.Set(headerBidderName, sub.BidderName)

	resp, err := c.client.Do(req)
	if err != nil {
		obs.Err = err
		return obs
	}
	obs.Status = resp.StatusCode
	obs.Body, obs.Err = readResponseBody(resp)
	if obs.Err != nil {
		return obs
	}

	if obs.Status == StatusCreated {
		var br bidResponse
		if err := json.Unmarshal(obs.Body, &br); err != nil {
			obs.Err = fmt.Errorf("decode bid response: %w", err)
			return obs
		}
		obs.Outcome = br.Outcome
		obs.CurrentBid = br.CurrentBid
		obs.Version = br.Item.Version
		return obs
	}
	var er errorResponse
	if err := json.Unmarshal(obs.Body, &er); err == nil {
		obs.Code = er.Code
	}
	return obs
}

// readResponseBody reads and closes the response body
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer func() { _ = resp.Body.Close() }()
	return io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
}

// fetchItem reads the public item view.
func fetchItem(ctx context.Context, client *HTTPClient, config *Config) (auction.View, error) {
	var view auction.View
	err := client.GetJSON(ctx, config.BaseURL+"/items/"+url.PathEscape(config.ItemID), &view)
	return view, err
}

// fetchIncrement reads the engine's bid increment from /stats.
func fetchIncrement(ctx context.Context, client *HTTPClient, config *Config) (decimal.Decimal, error) {
	var stats struct {
		Increment decimal.Decimal `json:"increment"`
	}
	if err := client.GetJSON(ctx, config.BaseURL+"/stats", &stats); err != nil {
		return decimal.Zero, err
	}
	if !stats.Increment.IsPositive() {
		return decimal.Zero, fmt.Errorf("stats reported increment %s", stats.Increment)
	}
	return stats.Increment, nil
}

// submitBids posts every submission using a worker pool and returns the
// observations indexed like subs.
func submitBids(ctx context.Context, config *Config, subs []Submission, stats *Stats) []Observation {
	logger.Get().Info(ctx, "submitting bids",
		logger.Int("count", len(subs)),
		logger.Int("workers", config.Workers))

	client := newHTTPClient(config.Timeout)
	observations := make([]Observation, len(subs))

	var (
		accepted   int64
		rejected   int64
		contention int64
		failed     int64
		submitted  int64
	)

	subChan := make(chan Submission, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for sub := range subChan {
				obs := client.PostBid(ctx, config.BaseURL, config.ItemID, sub)
				observations[sub.Index] = obs
				atomic.AddInt64(&submitted, 1)

				switch {
				case obs.Err != nil:
					atomic.AddInt64(&failed, 1)
					logger.Get().Warn(ctx, "bid failed",
						logger.String("bidder", sub.BidderID),
						logger.Error(obs.Err))
				case obs.Accepted():
					atomic.AddInt64(&accepted, 1)
				case obs.Status == StatusServiceUnavailable:
					atomic.AddInt64(&contention, 1)
				default:
					atomic.AddInt64(&rejected, 1)
				}
				if config.Verbose {
					logger.Get().Debug(ctx, "bid answered",
						logger.String("bidder", sub.BidderID),
						logger.String("ceiling", sub.Ceiling.String()),
						logger.Int("status", obs.Status),
						logger.String("outcome", obs.Outcome),
						logger.String("code", obs.Code),
						logger.String("currentBid", obs.CurrentBid.String()))
				}
			}
		}()
	}

	go func() {
		defer close(subChan)
		for _, sub := range subs {
			select {
			case <-ctx.Done():
				return
			case subChan <- sub:
			}
		}
	}()

	wg.Wait()

	stats.Submitted = int(submitted)
	stats.Accepted = int(accepted)
	stats.Rejected = int(rejected)
	stats.Contention = int(contention)
	stats.Failed = int(failed)

	logger.Get().Info(ctx, "bid submission completed",
		logger.Int64("submitted", submitted),
		logger.Int64("accepted", accepted),
		logger.Int64("rejected", rejected),
		logger.Int64("contention", contention),
		logger.Int64("failed", failed))

	// Submissions skipped on cancellation were never sent.
	sent := observations[:0]
	for _, obs := range observations {
		if obs.BidderID != "" {
			sent = append(sent, obs)
		}
	}
	return sent
}
