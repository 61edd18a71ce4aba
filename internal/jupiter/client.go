// Package jupiter is an HTTP client for the aggregator's quote, swap and
// price APIs.
package jupiter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// Sentinel errors classified at the API boundary.
var (
	// ErrNoRoute means the aggregator could not find a route for the pair,
	// typically because the pool is not indexed yet.
	ErrNoRoute = errors.New("no swap route available")

	// ErrPriceUnavailable means the price API has no price for the mint yet.
	ErrPriceUnavailable = errors.New("price not available")
)

// Client calls the aggregator HTTP APIs.
type Client struct {
	quoteURL string
	swapURL  string
	priceURL string
	http     *http.Client
	log      zerolog.Logger
}

// Options configures a Client.
type Options struct {
	QuoteURL string
	SwapURL  string
	PriceURL string
	Timeout  time.Duration
	Logger   zerolog.Logger
}

// NewClient creates an aggregator API client.
func NewClient(opts Options) *Client {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		quoteURL: opts.QuoteURL,
		swapURL:  opts.SwapURL,
		priceURL: opts.PriceURL,
		http:     &http.Client{Timeout: timeout},
		log:      opts.Logger,
	}
}

// Quote is the raw quote response, passed through to the swap call.
type Quote struct {
	Raw       json.RawMessage
	InAmount  string
	OutAmount string
}

// quoteEnvelope extracts the fields the executor needs from the quote body.
type quoteEnvelope struct {
	InAmount  string `json:"inAmount"`
	OutAmount string `json:"outAmount"`
	Error     string `json:"error"`
	ErrorCode string `json:"errorCode"`
}

// GetQuote fetches a swap quote. inputMint/outputMint are mint addresses,
// amount is in the input token's raw units, slippage in basis points.
// Returns ErrNoRoute when the aggregator cannot route the pair.
func (c *Client) GetQuote(ctx context.Context, inputMint, outputMint string, amount uint64, slippageBps int) (*Quote, error) {
	q := url.Values{}
	q.Set("inputMint", inputMint)
	q.Set("outputMint", outputMint)
	q.Set("amount", strconv.FormatUint(amount, 10))
	q.Set("slippageBps", strconv.Itoa(slippageBps))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.quoteURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create quote request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("quote request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read quote response: %w", err)
	}

	var env quoteEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("parse quote response: %w", err)
	}

	if resp.StatusCode != http.StatusOK || env.Error != "" {
		if isNoRoute(env, body) {
			return nil, ErrNoRoute
		}
		return nil, fmt.Errorf("quote failed (status %d): %s", resp.StatusCode, string(body))
	}

	return &Quote{
		Raw:       json.RawMessage(body),
		InAmount:  env.InAmount,
		OutAmount: env.OutAmount,
	}, nil
}

// isNoRoute recognizes the "no route" error shapes the API returns.
func isNoRoute(env quoteEnvelope, body []byte) bool {
	if env.ErrorCode == "COULD_NOT_FIND_ANY_ROUTE" || env.ErrorCode == "NO_ROUTES_FOUND" {
		return true
	}
	return bytes.Contains(bytes.ToLower(body), []byte("could not find any route")) ||
		bytes.Contains(bytes.ToLower(body), []byte("no routes found"))
}

// swapRequest is the body of the swap API call.
type swapRequest struct {
	QuoteResponse             json.RawMessage `json:"quoteResponse"`
	UserPublicKey             string          `json:"userPublicKey"`
	WrapAndUnwrapSol          bool            `json:"wrapAndUnwrapSol"`
	PrioritizationFeeLamports uint64          `json:"prioritizationFeeLamports"`
}

// BuildSwapTransaction exchanges a quote for an unsigned, base64-serialized
// transaction with the given prioritization fee attached.
func (c *Client) BuildSwapTransaction(ctx context.Context, quote *Quote, userPublicKey string, priorityFeeLamports uint64) (string, error) {
	reqBody, err := json.Marshal(swapRequest{
		QuoteResponse:             quote.Raw,
		UserPublicKey:             userPublicKey,
		WrapAndUnwrapSol:          true,
		PrioritizationFeeLamports: priorityFeeLamports,
	})
	if err != nil {
		return "", fmt.Errorf("marshal swap request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.swapURL, bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("create swap request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("swap request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read swap response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("swap failed (status %d): %s", resp.StatusCode, string(body))
	}

	var result struct {
		SwapTransaction string `json:"swapTransaction"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("parse swap response: %w", err)
	}
	if result.SwapTransaction == "" {
		return "", fmt.Errorf("swap response missing transaction")
	}

	return result.SwapTransaction, nil
}

// GetPrice fetches the current price of a mint in the quote currency.
// Returns ErrPriceUnavailable when the API has no price yet.
func (c *Client) GetPrice(ctx context.Context, mint string) (float64, error) {
	q := url.Values{}
	q.Set("ids", mint)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.priceURL+"?"+q.Encode(), nil)
	if err != nil {
		return 0, fmt.Errorf("create price request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("price request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("read price response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("price failed (status %d): %s", resp.StatusCode, string(body))
	}

	var result struct {
		Data map[string]*struct {
			Price string `json:"price"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return 0, fmt.Errorf("parse price response: %w", err)
	}

	entry, ok := result.Data[mint]
	if !ok || entry == nil || entry.Price == "" {
		return 0, ErrPriceUnavailable
	}

	price, err := strconv.ParseFloat(entry.Price, 64)
	if err != nil {
		return 0, fmt.Errorf("parse price %q: %w", entry.Price, err)
	}
	if price <= 0 {
		return 0, ErrPriceUnavailable
	}
	return price, nil
}

// GetPriceWithRetry retries GetPrice for freshly migrated tokens whose price
// is not indexed yet, waiting interval between attempts.
func (c *Client) GetPriceWithRetry(ctx context.Context, mint string, retries int, interval time.Duration) (float64, error) {
	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return 0, ctx.Err()
			case <-time.After(interval):
			}
		}

		price, err := c.GetPrice(ctx, mint)
		if err == nil {
			return price, nil
		}
		lastErr = err
		if !errors.Is(err, ErrPriceUnavailable) {
			c.log.Debug().Err(err).Str("mint", mint).Int("attempt", attempt).
				Msg("price lookup failed")
		}
	}
	return 0, fmt.Errorf("price after %d retries: %w", retries, lastErr)
}
