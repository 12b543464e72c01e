package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/polymirror/mirrorbot/internal/domain"
)

// RawRecord is a single untyped JSON object as returned by the Data API.
// Field coercion into domain types happens in normalize.go; everything else
// treats these as opaque.
type RawRecord map[string]any

// DataClient is the REST client for the Polymarket Data API, which serves
// per-wallet activity, open positions, and portfolio value.
type DataClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewDataClient creates a new Data API client.
//
// baseURL is the Data API root, e.g. "https://data-api.polymarket.com".
func NewDataClient(baseURL string) *DataClient {
	return &DataClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// UserActivity returns the trade activity feed for a wallet, newest first.
func (d *DataClient) UserActivity(ctx context.Context, wallet string) ([]RawRecord, error) {
	params := url.Values{}
	params.Set("user", strings.ToLower(wallet))
	params.Set("type", "TRADE")

	path := "/activity?" + params.Encode()

	body, err := d.doGet(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("polymarket/data: get activity for %s: %w", wallet, err)
	}

	var records []RawRecord
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("polymarket/data: decode activity: %w", err)
	}

	return records, nil
}

// UserPositions returns the open positions for a wallet.
func (d *DataClient) UserPositions(ctx context.Context, wallet string) ([]RawRecord, error) {
	params := url.Values{}
	params.Set("user", strings.ToLower(wallet))

	path := "/positions?" + params.Encode()

	body, err := d.doGet(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("polymarket/data: get positions for %s: %w", wallet, err)
	}

	var records []RawRecord
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("polymarket/data: decode positions: %w", err)
	}

	return records, nil
}

// UserValue returns the total USD value of a wallet's open positions.
func (d *DataClient) UserValue(ctx context.Context, wallet string) (float64, error) {
	params := url.Values{}
	params.Set("user", strings.ToLower(wallet))

	path := "/value?" + params.Encode()

	body, err := d.doGet(ctx, path)
	if err != nil {
		return 0, fmt.Errorf("polymarket/data: get value for %s: %w", wallet, err)
	}

	var entries []struct {
		User  string  `json:"user"`
		Value float64 `json:"value"`
	}
	if err := json.Unmarshal(body, &entries); err != nil {
		return 0, fmt.Errorf("polymarket/data: decode value: %w", err)
	}

	if len(entries) == 0 {
		return 0, nil
	}
	return entries[0].Value, nil
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

// doGet sends an unauthenticated GET request to the Data API.
func (d *DataClient) doGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if err := checkStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}

	return body, nil
}

// checkStatus maps non-2xx status codes to appropriate domain errors.
func checkStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	bodyStr := string(body)
	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, bodyStr)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, bodyStr)
	default:
		return fmt.Errorf("HTTP %d: %s", statusCode, bodyStr)
	}
}
