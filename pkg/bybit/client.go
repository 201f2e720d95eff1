// Package bybit is a minimal Bybit v5 market data client: paginated REST
// kline fetches plus a public websocket kline stream. Only the endpoints the
// analysis pipeline needs are covered.
package bybit

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"tradelens/internal/metrics"
	"tradelens/internal/model"
	"tradelens/internal/series"
)

const (
	defaultBaseURL    = "https://api.bybit.com"
	defaultCategory   = "linear"
	defaultTimeout    = 10 * time.Second
	defaultRecvWindow = 5000

	// Bybit caps kline pages at 1000 rows.
	pageLimit = 1000

	maxRetries   = 3
	retryBackoff = 500 * time.Millisecond
)

// Config configures the REST client. APIKey and APISecret are optional:
// kline endpoints are public, signing is only attached when both are set.
type Config struct {
	APIKey    string
	APISecret string
	BaseURL   string // default: https://api.bybit.com
	Category  string // "linear", "inverse", or "spot"; default linear
	Timeout   time.Duration
}

// Client is a Bybit v5 REST client.
type Client struct {
	baseURL    string
	category   string
	apiKey     string
	apiSecret  string
	httpClient *http.Client
	metrics    *metrics.Metrics
}

// New creates a client. m may be nil.
func New(cfg Config, m *metrics.Metrics) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Category == "" {
		cfg.Category = defaultCategory
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		category:   cfg.Category,
		apiKey:     cfg.APIKey,
		apiSecret:  cfg.APISecret,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		metrics:    m,
	}
}

// klineResponse is the v5 envelope. result.list rows are
// [startMs, open, high, low, close, volume, turnover], newest first.
type klineResponse struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  struct {
		Category string      `json:"category"`
		Symbol   string      `json:"symbol"`
		List     [][7]string `json:"list"`
	} `json:"result"`
}

// Klines fetches [start, end) for the symbol and interval, paginating
// backwards from end until the window is covered, and returns rows in
// ascending timestamp order.
func (c *Client) Klines(ctx context.Context, symbol string, interval model.Interval, start, end time.Time) ([]series.Row, error) {
	startMs := start.UnixMilli()
	endMs := end.UnixMilli() - 1 // Bybit end bound is inclusive

	var pages [][]series.Row
	total := 0
	for endMs >= startMs {
		page, err := c.klinePage(ctx, symbol, interval, startMs, endMs)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}
		pages = append(pages, page)
		total += len(page)
		if len(page) < pageLimit {
			break
		}
		// page is newest-first: the last row is the earliest fetched
		earliest, err := strconv.ParseInt(page[len(page)-1].Timestamp, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bybit kline timestamp %q: %w", page[len(page)-1].Timestamp, model.ErrData)
		}
		endMs = earliest - 1
	}

	// Flatten oldest page first, each page reversed to ascending.
	rows := make([]series.Row, 0, total)
	for i := len(pages) - 1; i >= 0; i-- {
		page := pages[i]
		for j := len(page) - 1; j >= 0; j-- {
			rows = append(rows, page[j])
		}
	}
	return rows, nil
}

func (c *Client) klinePage(ctx context.Context, symbol string, interval model.Interval, startMs, endMs int64) ([]series.Row, error) {
	q := url.Values{}
	q.Set("category", c.category)
	q.Set("symbol", symbol)
	q.Set("interval", string(interval))
	q.Set("start", strconv.FormatInt(startMs, 10))
	q.Set("end", strconv.FormatInt(endMs, 10))
	q.Set("limit", strconv.Itoa(pageLimit))

	var resp klineResponse
	if err := c.get(ctx, "/v5/market/kline", q, &resp); err != nil {
		return nil, err
	}
	if resp.RetCode != 0 {
		return nil, fmt.Errorf("bybit kline retCode %d: %s: %w", resp.RetCode, resp.RetMsg, model.ErrData)
	}

	rows := make([]series.Row, 0, len(resp.Result.List))
	for _, rec := range resp.Result.List {
		rows = append(rows, series.Row{
			Timestamp: rec[0],
			Open:      rec[1],
			High:      rec[2],
			Low:       rec[3],
			Close:     rec[4],
			Volume:    rec[5],
			Turnover:  rec[6],
		})
	}
	return rows, nil
}

// get performs a GET with retries on transient failures (network errors,
// 429, 5xx). Non-transient HTTP errors return immediately.
func (c *Client) get(ctx context.Context, path string, q url.Values, out interface{}) error {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			c.metrics.IncFetchRetry()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryBackoff << (attempt - 1)):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
		if err != nil {
			return err
		}
		c.sign(req, q.Encode())

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			continue
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("bybit %s: http %d", path, resp.StatusCode)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("bybit %s: http %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
		}
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("bybit %s: decode: %w", path, err)
		}
		return nil
	}
	return fmt.Errorf("bybit %s: retries exhausted: %w", path, lastErr)
}

// sign attaches v5 HMAC headers when credentials are configured.
// Signature payload for GET is timestamp + apiKey + recvWindow + queryString.
func (c *Client) sign(req *http.Request, queryString string) {
	if c.apiKey == "" || c.apiSecret == "" {
		return
	}
	ts := strconv.FormatInt(time.Now().UnixMilli(), 10)
	recv := strconv.Itoa(defaultRecvWindow)

	mac := hmac.New(sha256.New, []byte(c.apiSecret))
	mac.Write([]byte(ts + c.apiKey + recv + queryString))

	req.Header.Set("X-BAPI-API-KEY", c.apiKey)
	req.Header.Set("X-BAPI-TIMESTAMP", ts)
	req.Header.Set("X-BAPI-RECV-WINDOW", recv)
	req.Header.Set("X-BAPI-SIGN", hex.EncodeToString(mac.Sum(nil)))
}
