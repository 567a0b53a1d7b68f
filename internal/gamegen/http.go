package gamegen

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

	"github.com/okian/explorer/pkg/logger"
)

// HTTPClient wraps http.Client with a per-request timeout.
type HTTPClient struct {
	client *http.Client
}

func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{client: &http.Client{Timeout: timeout}}
}

// Get performs a GET request.
func (c *HTTPClient) Get(ctx context.Context, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with a JSON body.
func (c *HTTPClient) Post(ctx context.Context, target string, body any) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// SubmitGames posts every submission with cfg.Workers concurrent workers and
// returns how many distinct indexable games the service accepted.
func SubmitGames(ctx context.Context, cfg *Config, subs []Submission, stats *Stats) uint64 {
	log := logger.Named("gamegen")
	log.Info(ctx, "submitting games", logger.Int("count", len(subs)), logger.Int("workers", cfg.Workers))

	client := newHTTPClient(cfg.Timeout)
	target := cfg.BaseURL + "/games"

	var (
		accepted, duplicate, failed, submitted int64
		indexedAccepted                        uint64
		lastReport                             atomic.Int64
	)

	subChan := make(chan Submission, cfg.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup
	for i := 0; i < max(1, cfg.Workers); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sub := range subChan {
				if ctx.Err() != nil {
					continue
				}
				result := submitSingleGame(ctx, client, target, sub)
				n := atomic.AddInt64(&submitted, 1)
				switch result {
				case resultAccepted:
					atomic.AddInt64(&accepted, 1)
					if sub.Indexable {
						atomic.AddUint64(&indexedAccepted, 1)
					}
				case resultDuplicate:
					atomic.AddInt64(&duplicate, 1)
				default:
					atomic.AddInt64(&failed, 1)
				}

				now := time.Now().UnixNano()
				last := lastReport.Load()
				if cfg.Verbose && now-last >= int64(progressInterval) && lastReport.CompareAndSwap(last, now) {
					log.Info(ctx, "progress",
						logger.Int("submitted", int(n)),
						logger.Int("total", len(subs)),
						logger.Int("accepted", int(atomic.LoadInt64(&accepted))),
						logger.Int("duplicate", int(atomic.LoadInt64(&duplicate))),
						logger.Int("failed", int(atomic.LoadInt64(&failed))))
				}
			}
		}()
	}

send:
	for _, sub := range subs {
		select {
		case <-ctx.Done():
			break send
		case subChan <- sub:
		}
	}
	close(subChan)
	wg.Wait()

	stats.GamesSubmitted = int(submitted)
	stats.GamesAccepted = int(accepted)
	stats.GamesDuplicate = int(duplicate)
	stats.GamesFailed = int(failed)
	log.Info(ctx, "submission completed",
		logger.Int("accepted", stats.GamesAccepted),
		logger.Int("duplicate", stats.GamesDuplicate),
		logger.Int("failed", stats.GamesFailed))
	return indexedAccepted
}

// submitSingleGame posts one game and classifies the response.
func submitSingleGame(ctx context.Context, client *HTTPClient, target string, sub Submission) string {
	resp, err := client.Post(ctx, target, sub.Game)
	if err != nil {
		return resultFailed
	}
	defer func() { _ = resp.Body.Close() }()

	var ack AckResponse
	decodeErr := json.NewDecoder(io.LimitReader(resp.Body, maxAckBytes)).Decode(&ack)
	switch {
	case resp.StatusCode == http.StatusAccepted:
		return resultAccepted
	case resp.StatusCode == http.StatusOK && decodeErr == nil && ack.Duplicate:
		return resultDuplicate
	default:
		return resultFailed
	}
}

// FetchPosition queries GET /explorer for fen. A position the service has
// never seen comes back as an empty response.
func FetchPosition(ctx context.Context, client *HTTPClient, baseURL, fen string) (ExplorerResponse, error) {
	resp, err := client.Get(ctx, baseURL+"/explorer?fen="+url.QueryEscape(fen))
	if err != nil {
		return ExplorerResponse{}, fmt.Errorf("failed to query explorer: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return ExplorerResponse{}, nil
	default:
		return ExplorerResponse{}, fmt.Errorf("explorer returned status %d", resp.StatusCode)
	}

	var out ExplorerResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return ExplorerResponse{}, fmt.Errorf("failed to decode explorer response: %w", err)
	}
	return out, nil
}
