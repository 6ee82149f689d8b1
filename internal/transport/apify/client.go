// Package apify fetches subject profiles through an Apify actor run.
package apify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ontology/internal/domain"
	"github.com/kailas-cloud/ontology/internal/domain/content"
	"github.com/kailas-cloud/ontology/internal/metrics"
)

const (
	defaultBaseURL = "https://api.apify.com"
	defaultActor   = "apify~instagram-profile-scraper"
	providerName   = "apify"

	// ответ актора с 60 постами укладывается в пару сотен КБ
	maxResponseBytes = 32 << 20
)

// Config holds the Apify client settings.
type Config struct {
	Token   string
	BaseURL string
	Actor   string
	Timeout time.Duration
	Logger  *zap.Logger
}

// Client runs the profile scraper actor synchronously and reads its dataset.
// One attempt per call; callers bound it with ctx or Timeout.
type Client struct {
	http     *http.Client
	endpoint string
	token    string
	logger   *zap.Logger
}

// NewClient creates an Apify content provider.
func NewClient(cfg *Config) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	actor := cfg.Actor
	if actor == "" {
		actor = defaultActor
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		http:     &http.Client{Timeout: timeout},
		endpoint: fmt.Sprintf("%s/v2/acts/%s/run-sync-get-dataset-items", base, url.PathEscape(actor)),
		token:    cfg.Token,
		logger:   logger,
	}
}

type runInput struct {
	Usernames    []string `json:"usernames"`
	ResultsLimit int      `json:"resultsLimit"`
}

type datasetItem struct {
	Username    string `json:"username"`
	Biography   string `json:"biography"`
	LatestPosts []struct {
		Caption string `json:"caption"`
	} `json:"latestPosts"`
}

// Fetch returns the biography and latest post captions of subject.
// An empty dataset maps to domain.ErrSubjectNotFound, everything else that
// goes wrong maps to domain.ErrUpstream.
func (c *Client) Fetch(ctx context.Context, subject string, limit int) (content.Profile, error) {
	start := time.Now()
	profile, err := c.fetch(ctx, subject, limit)

	status := "success"
	switch {
	case errors.Is(err, domain.ErrSubjectNotFound):
		status = "not_found"
	case err != nil:
		status = "error"
	}
	metrics.ContentFetchDuration.WithLabelValues(providerName, status).Observe(time.Since(start).Seconds())

	return profile, err
}

func (c *Client) fetch(ctx context.Context, subject string, limit int) (content.Profile, error) {
	body, err := json.Marshal(runInput{Usernames: []string{subject}, ResultsLimit: limit})
	if err != nil {
		return content.Profile{}, fmt.Errorf("encode run input: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return content.Profile{}, fmt.Errorf("build request: %w", err)
	}
	q := req.URL.Query()
	q.Set("token", c.token)
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		// url.Error содержит полный URL с токеном, наружу отдаём только причину
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return content.Profile{}, fmt.Errorf("%w: request failed: %w", domain.ErrUpstream, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Warn("apify returned non-success status",
			zap.String("subject", subject),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", snippet),
		)
		return content.Profile{}, fmt.Errorf("%w: status %d", domain.ErrUpstream, resp.StatusCode)
	}

	var items []datasetItem
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&items); err != nil {
		return content.Profile{}, fmt.Errorf("%w: decode dataset: %w", domain.ErrUpstream, err)
	}
	if len(items) == 0 {
		return content.Profile{}, fmt.Errorf("%q: %w", subject, domain.ErrSubjectNotFound)
	}

	item := items[0]
	profile := content.Profile{
		Biography: item.Biography,
		Posts:     make([]content.Post, 0, len(item.LatestPosts)),
	}
	for _, p := range item.LatestPosts {
		profile.Posts = append(profile.Posts, content.Post{Caption: p.Caption})
	}

	c.logger.Debug("profile fetched",
		zap.String("subject", subject),
		zap.Int("posts", len(profile.Posts)),
	)
	return profile, nil
}
