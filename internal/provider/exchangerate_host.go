package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

var _ RateProvider = (*ExchangeRateHostProvider)(nil)

// ExchangeRateHostProvider fetches quotes from the exchangerate.host API.
type ExchangeRateHostProvider struct {
	baseURL  string
	apiKey   string
	validFor time.Duration
	client   *http.Client
}

// NewExchangeRateHostProvider creates a new ExchangeRateHostProvider with the given configuration.
func NewExchangeRateHostProvider(baseURL, apiKey string, timeoutSec int, validFor time.Duration) *ExchangeRateHostProvider {
	if baseURL == "" {
		baseURL = "https://api.exchangerate.host"
	}
	return &ExchangeRateHostProvider{
		baseURL:  baseURL,
		apiKey:   apiKey,
		validFor: validFor,
		client:   &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
	}
}

// getLiveURL forms the API URL for fetching the quote.
func (p *ExchangeRateHostProvider) getLiveURL(from, to string) string {
	return fmt.Sprintf("%s/live?access_key=%s&source=%s&currencies=%s",
		p.baseURL, p.apiKey, from, to)
}

// exchangerate.host live API response structure
type erHostResponse struct {
	Success bool               `json:"success"`
	Source  string             `json:"source"`
	Quotes  map[string]float64 `json:"quotes"`
}

// Quote fetches the exchange quote for the given from/to currency pair.
func (p *ExchangeRateHostProvider) Quote(ctx context.Context, from, to string) (Quote, error) {
	reqURL := p.getLiveURL(from, to)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return Quote{}, fmt.Errorf("external API request creation failed: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return Quote{}, fmt.Errorf("external API request failed: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return Quote{}, fmt.Errorf("external API returned status %d: %s", resp.StatusCode, string(body))
	}
	var result erHostResponse
	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(&result); err != nil {
		return Quote{}, fmt.Errorf("failed to decode external API response: %w", err)
	}
	if !result.Success {
		return Quote{}, fmt.Errorf("external API returned success=false for %s/%s", from, to)
	}
	// The API returns quotes keyed as "FROMTO", e.g. "EURMXN"
	key := from + to
	rateVal, ok := result.Quotes[key]
	if !ok {
		return Quote{}, fmt.Errorf("no rate for %s in response", key)
	}
	rate, err := decimal.NewFromString(strconv.FormatFloat(rateVal, 'f', -1, 64))
	if err != nil {
		return Quote{}, fmt.Errorf("invalid rate for %s: %w", key, err)
	}
	return Quote{
		Rate:       rate,
		ValidUntil: time.Now().UTC().Add(p.validFor),
	}, nil
}
