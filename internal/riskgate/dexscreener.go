package riskgate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"solana-migration-sniper/internal/domain"
)

// DexScreenerGate passes mints whose team paid for a listing profile, a cheap
// proxy for projects that intend to stick around.
type DexScreenerGate struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

// NewDexScreenerGate creates the paid-listing gate.
func NewDexScreenerGate(baseURL string, timeout time.Duration, logger zerolog.Logger) *DexScreenerGate {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &DexScreenerGate{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		log:     logger,
	}
}

var _ Gate = (*DexScreenerGate)(nil)

// dexOrder is one entry of the orders endpoint response.
type dexOrder struct {
	Type   string `json:"type"`
	Status string `json:"status"`
}

// Evaluate checks the orders endpoint for an approved paid listing.
func (g *DexScreenerGate) Evaluate(ctx context.Context, mint string) (*domain.RiskVerdict, error) {
	url := fmt.Sprintf("%s/orders/v1/solana/%s", g.baseURL, mint)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create dexscreener request: %w", err)
	}

	resp, err := g.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dexscreener request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read dexscreener response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("dexscreener status %d: %s", resp.StatusCode, string(body))
	}

	var orders []dexOrder
	if err := json.Unmarshal(body, &orders); err != nil {
		return nil, fmt.Errorf("parse dexscreener response: %w", err)
	}

	for _, o := range orders {
		if o.Status == "approved" {
			g.log.Debug().Str("mint", mint).Str("order_type", o.Type).Msg("paid dex listing found")
			return &domain.RiskVerdict{Passed: true, EvaluatedAt: time.Now().UnixMilli()}, nil
		}
	}

	return &domain.RiskVerdict{
		Passed:      false,
		Reasons:     []string{"no approved paid dex listing"},
		EvaluatedAt: time.Now().UnixMilli(),
	}, nil
}
