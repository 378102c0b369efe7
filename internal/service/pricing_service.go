package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cryptofolio/api/internal/config"
	"github.com/cryptofolio/api/lib/errs"
	"github.com/shopspring/decimal"
)

// coinIDs maps the tradable symbols to the price source's coin identifiers.
// Any symbol outside this set is rejected at the HTTP boundary before it
// reaches the trade engine.
var coinIDs = map[string]string{
	"BTC":  "bitcoin",
	"ETH":  "ethereum",
	"LTC":  "litecoin",
	"XRP":  "ripple",
	"BCH":  "bitcoin-cash",
	"DOGE": "dogecoin",
}

func SupportedSymbol(symbol string) bool {
	_, ok := coinIDs[symbol]
	return ok
}

// PriceCache is the shared key-value store the oracle caches quotes in.
// Get returns errs.ErrNotFound on a miss or an expired entry.
type PriceCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
}

type PricingService interface {
	GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}

type pricingService struct {
	cache      PriceCache
	httpClient *http.Client
	baseURL    string
	cacheTTL   time.Duration
	log        *slog.Logger
}

func NewPricingService(cache PriceCache, cfg config.PricingConfig, log *slog.Logger) PricingService {
	return &pricingService{
		cache: cache,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:  strings.TrimSuffix(cfg.BaseURL, "/"),
		cacheTTL: cfg.CacheTTL,
		log:      log,
	}
}

// GetPrice resolves a symbol to its current USD price, serving from the
// cache while an entry is fresh. Every failure mode collapses to
// errs.ErrPriceUnavailable so callers can decide what a missing quote means
// for them; nothing is cached on failure.
func (s *pricingService) GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	cacheKey := "price:" + symbol

	if cached, err := s.cache.Get(ctx, cacheKey); err == nil {
		if price, parseErr := decimal.NewFromString(cached); parseErr == nil {
			return price, nil
		}
		s.log.Warn("unparseable cached price, refetching", "symbol", symbol, "value", cached)
	}

	coinID, ok := coinIDs[symbol]
	if !ok {
		return decimal.Zero, errs.ErrPriceUnavailable
	}

	price, err := s.fetch(ctx, coinID)
	if err != nil {
		s.log.Warn("price fetch failed", "symbol", symbol, "error", err)
		return decimal.Zero, errs.ErrPriceUnavailable
	}

	if err := s.cache.Set(ctx, cacheKey, price.String(), s.cacheTTL); err != nil {
		s.log.Warn("failed to cache price", "symbol", symbol, "error", err)
	}

	return price, nil
}

func (s *pricingService) fetch(ctx context.Context, coinID string) (decimal.Decimal, error) {
	url := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd", s.baseURL, coinID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return decimal.Zero, err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("price source returned status %d", resp.StatusCode)
	}

	var payload map[string]map[string]float64
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return decimal.Zero, err
	}

	quote, ok := payload[coinID]
	if !ok {
		return decimal.Zero, fmt.Errorf("no quote for %s in response", coinID)
	}

	usd, ok := quote["usd"]
	if !ok {
		return decimal.Zero, fmt.Errorf("no usd price for %s in response", coinID)
	}

	return decimal.NewFromFloat(usd), nil
}
