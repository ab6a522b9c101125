// ScoreSaber API implementation of [Catalog]
//
// Talks to the public leaderboard endpoint at scoresaber.com/api.php.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/saberlist/saberlist/internal/shared"
)

const (
	defaultBaseURL  = "https://scoresaber.com"
	defaultPageSize = 1000
	leaderboardPath = "/api.php"
)

// ScoreSaberService implements the Catalog interface for the ScoreSaber API.
// Transient failures (network errors, 5xx, 429) are retried with exponential
// backoff; exhausting the retries fails the fetch.
type ScoreSaberService struct {
	baseURL    string
	pageSize   int
	httpClient *http.Client
	retry      *shared.RetryConfig
}

// ScoreSaberOpts contains configuration options for creating a ScoreSaberService.
type ScoreSaberOpts struct {
	BaseURL    string
	PageSize   int
	HTTPClient *http.Client
	Retry      *shared.RetryConfig
}

// NewScoreSaberService creates a new ScoreSaber catalog client.
func NewScoreSaberService(opts ScoreSaberOpts) *ScoreSaberService {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.PageSize <= 0 {
		opts.PageSize = defaultPageSize
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Retry == nil {
		opts.Retry = shared.DefaultRetryConfig()
	}

	return &ScoreSaberService{
		baseURL:    opts.BaseURL,
		pageSize:   opts.PageSize,
		httpClient: opts.HTTPClient,
		retry:      opts.Retry,
	}
}

// Name returns the service name.
func (s *ScoreSaberService) Name() string {
	return "ScoreSaber"
}

// RankedPage fetches one page of the ranked catalog, retrying transient failures.
//
// The crawl-facing page index is zero-based; the wire protocol counts from 1.
func (s *ScoreSaberService) RankedPage(ctx context.Context, page int) (*RankedPage, error) {
	if page < 0 {
		return nil, fmt.Errorf("%w: page index must be non-negative, got %d", shared.ErrInvalidArgument, page)
	}

	return shared.RetryWithBackoff(ctx, s.retry, func() (*RankedPage, error) {
		return s.fetchPage(ctx, page)
	})
}

func (s *ScoreSaberService) fetchPage(ctx context.Context, page int) (*RankedPage, error) {
	query := url.Values{}
	query.Set("function", "get-leaderboards")
	query.Set("ranked", "1")
	// cat=1 sorts by date ranked, keeping page contents as stable as the
	// server allows while a crawl is in flight.
	query.Set("cat", "1")
	query.Set("limit", strconv.Itoa(s.pageSize))
	query.Set("page", strconv.Itoa(page+1))

	apiURL := s.baseURL + leaderboardPath + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", shared.ErrTransientFetch, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: scoresaber API status %d", shared.ErrTransientFetch, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		// 4xx means the request itself is wrong, not the weather.
		return nil, fmt.Errorf("scoresaber API error: status %d", resp.StatusCode)
	}

	var payload struct {
		Songs []RawSong `json:"songs"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrDecode, err)
	}

	return &RankedPage{
		Songs: payload.Songs,
		Last:  len(payload.Songs) < s.pageSize,
	}, nil
}
