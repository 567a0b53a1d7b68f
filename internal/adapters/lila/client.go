// Package lila reads game exports from the lichess HTTP API.
package lila

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/okian/explorer/internal/domain/model"
	"github.com/okian/explorer/pkg/logger"
	"github.com/okian/explorer/pkg/metrics"
)

const (
	defaultTimeout = 60 * time.Second
	maxLineBytes   = 4 << 20
	ndjson         = "application/x-ndjson"
)

var userNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{2,30}$`)

// ValidUserName reports whether name can be a lichess user name.
func ValidUserName(name string) bool { return userNamePattern.MatchString(name) }

// Client talks to one lichess instance.
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	logger  logger.Logger
}

// NewClient creates a client for the API rooted at baseURL, e.g. "https://lichess.org".
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    http.DefaultClient,
		timeout: defaultTimeout,
		logger:  logger.Get().Named("lila"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// UserGames streams the games of user and calls fn for each one in the
// order the API sends them. An error from fn stops the stream and is
// returned as is. The number of games passed to fn is returned.
func (c *Client) UserGames(ctx context.Context, user string, fn func(model.Game) error) (int, error) {
	if !ValidUserName(user) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidUser, user)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := c.baseURL + "/api/games/user/" + url.PathEscape(user)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", ndjson)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.RecordLilaRequestFailure()
		metrics.RecordErrorByComponent("lila", "request")
		return 0, fmt.Errorf("get %s: %w", endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		metrics.RecordLilaRequestFailure()
		return 0, fmt.Errorf("%w: %s", ErrUserNotFound, user)
	case resp.StatusCode != http.StatusOK:
		metrics.RecordLilaRequestFailure()
		metrics.RecordErrorByComponent("lila", "status")
		return 0, fmt.Errorf("%w: %s", ErrUnexpectedStatus, resp.Status)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64<<10), maxLineBytes)

	n, line := 0, 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var g model.Game
		if err := json.Unmarshal(raw, &g); err != nil {
			metrics.RecordErrorByComponent("lila", "decode")
			return n, fmt.Errorf("%w: line %d: %w", ErrDecode, line, err)
		}
		metrics.RecordLilaGameStreamed()
		if err := fn(g); err != nil {
			return n, err
		}
		n++
	}
	if err := scanner.Err(); err != nil {
		metrics.RecordLilaRequestFailure()
		return n, fmt.Errorf("read %s: %w", endpoint, err)
	}

	c.logger.Debug(ctx, "user export finished",
		logger.String("user", user),
		logger.Int("games", n),
		logger.Duration("elapsed", time.Since(start)),
	)
	return n, nil
}
