package datasources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/sawpanic/sigledger/internal/ledger"
	"github.com/sawpanic/sigledger/internal/metrics"
)

// Enricher attaches real-time price, supply, and market cap to candidates
// before they reach the writer. Lookups are rate limited and wrapped in a
// circuit breaker; every failure is transient and degrades to zero values so
// enrichment can never block the append path.
type Enricher struct {
	client   *http.Client
	priceURL string
	rpcURL   string
	limiter  *rate.Limiter
	breaker  *gobreaker.CircuitBreaker
}

// NewEnricher builds an Enricher. An empty rpcURL disables supply lookups.
func NewEnricher(priceURL, rpcURL string, timeout time.Duration, ratePerSecond float64) *Enricher {
	if ratePerSecond <= 0 {
		ratePerSecond = 4
	}
	return &Enricher{
		client:   &http.Client{Timeout: timeout},
		priceURL: priceURL,
		rpcURL:   rpcURL,
		limiter:  rate.NewLimiter(rate.Limit(ratePerSecond), 1),
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "enrichment",
			Timeout: 30 * time.Second,
		}),
	}
}

// Enrich fills PriceUSD, SupplyTotal, and MarketCap on each candidate in
// place. Lookup failures leave the fields unset and are counted, not
// propagated.
func (e *Enricher) Enrich(ctx context.Context, candidates []ledger.Candidate) {
	for i := range candidates {
		c := &candidates[i]
		if c.Asset == "" {
			continue
		}

		price, err := e.TokenPrice(ctx, c.Asset)
		if err != nil {
			metrics.EnrichmentErrors.WithLabelValues("price").Inc()
			log.Warn().Err(err).Str("asset", c.Asset).Msg("price enrichment failed")
			continue
		}

		supply := 0.0
		if e.rpcURL != "" {
			supply, err = e.TokenSupply(ctx, c.Asset)
			if err != nil {
				metrics.EnrichmentErrors.WithLabelValues("supply").Inc()
				log.Warn().Err(err).Str("asset", c.Asset).Msg("supply enrichment failed")
				supply = 0.0
			}
		}

		mcap := price * supply
		c.PriceUSD = &price
		c.SupplyTotal = &supply
		c.MarketCap = &mcap
	}
}

// TokenPrice fetches the current token price from the price API.
func (e *Enricher) TokenPrice(ctx context.Context, mint string) (float64, error) {
	body, err := e.get(ctx, e.priceURL+"?ids="+url.QueryEscape(mint))
	if err != nil {
		return 0, err
	}

	var out struct {
		Data map[string]struct {
			Price string `json:"price"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return 0, fmt.Errorf("%w: decode price response: %v", ledger.ErrTransient, err)
	}

	entry, ok := out.Data[mint]
	if !ok || entry.Price == "" {
		return 0, nil
	}
	price, err := strconv.ParseFloat(entry.Price, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: parse price %q: %v", ledger.ErrTransient, entry.Price, err)
	}
	return price, nil
}

// TokenSupply fetches the circulating supply via the getTokenSupply RPC.
func (e *Enricher) TokenSupply(ctx context.Context, mint string) (float64, error) {
	payload, _ := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "getTokenSupply",
		"params":  []string{mint},
	})

	body, err := e.post(ctx, e.rpcURL, payload)
	if err != nil {
		return 0, err
	}

	var out struct {
		Result struct {
			Value struct {
				UIAmount *float64 `json:"uiAmount"`
			} `json:"value"`
		} `json:"result"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return 0, fmt.Errorf("%w: decode supply response: %v", ledger.ErrTransient, err)
	}
	if out.Result.Value.UIAmount == nil {
		return 0, nil
	}
	return *out.Result.Value.UIAmount, nil
}

func (e *Enricher) get(ctx context.Context, rawURL string) ([]byte, error) {
	return e.do(ctx, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	})
}

func (e *Enricher) post(ctx context.Context, rawURL string, payload []byte) ([]byte, error) {
	return e.do(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
}

func (e *Enricher) do(ctx context.Context, build func() (*http.Request, error)) ([]byte, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limit wait: %v", ledger.ErrTransient, err)
	}

	result, err := e.breaker.Execute(func() (interface{}, error) {
		req, err := build()
		if err != nil {
			return nil, err
		}
		resp, err := e.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
		}

		var buf bytes.Buffer
		if _, err := buf.ReadFrom(resp.Body); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: enrichment request: %v", ledger.ErrTransient, err)
	}
	return result.([]byte), nil
}
