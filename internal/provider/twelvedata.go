// Package provider implements external rate providers for fetching currency exchange quotes.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

var _ RateProvider = (*TwelveDataProvider)(nil)

// TwelveDataProvider fetches exchange quotes from the Twelve Data API.
type TwelveDataProvider struct {
	baseURL  string
	apiKey   string
	validFor time.Duration
	client   *http.Client
}

// NewTwelveDataProvider creates a new TwelveDataProvider. validFor controls
// how long a fetched quote declares itself valid.
func NewTwelveDataProvider(baseURL, apiKey string, timeoutSec int, validFor time.Duration) *TwelveDataProvider {
	if baseURL == "" {
		baseURL = "https://api.twelvedata.com"
	}
	return &TwelveDataProvider{
		baseURL:  baseURL,
		apiKey:   apiKey,
		validFor: validFor,
		client:   &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
	}
}

type twelveDataResponse struct {
	Symbol  string      `json:"symbol"`
	Rate    json.Number `json:"rate"`
	Code    int         `json:"code"`
	Status  string      `json:"status"`
	Message string      `json:"message"`
}

// Quote retrieves the exchange quote for the given from/to currency pair.
func (p *TwelveDataProvider) Quote(ctx context.Context, from, to string) (Quote, error) {
	reqURL := fmt.Sprintf("%s/exchange_rate?symbol=%s/%s&apikey=%s", p.baseURL, from, to, p.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return Quote{}, fmt.Errorf("twelvedata API request creation failed: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return Quote{}, fmt.Errorf("twelvedata API request failed: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return Quote{}, fmt.Errorf("twelvedata API returned status %d: %s", resp.StatusCode, string(body))
	}

	var result twelveDataResponse
	if err = json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Quote{}, fmt.Errorf("failed to decode twelvedata API response: %w", err)
	}

	// Twelve Data reports errors inside a 200 body.
	if result.Status == "error" {
		return Quote{}, fmt.Errorf("twelvedata API error %d for %s/%s: %s", result.Code, from, to, result.Message)
	}

	rate, err := decimal.NewFromString(result.Rate.String())
	if err != nil {
		return Quote{}, fmt.Errorf("twelvedata returned invalid rate %q for %s/%s: %w", result.Rate, from, to, err)
	}

	return Quote{
		Rate:       rate,
		ValidUntil: time.Now().UTC().Add(p.validFor),
	}, nil
}
