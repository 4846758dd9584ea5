package g2a

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// HeaderSource supplies authentication headers for outbound API calls.
// *auth.Manager satisfies it.
type HeaderSource interface {
	AuthHeaders(ctx context.Context) (map[string]string, error)
}

type Client struct {
	baseURL      string
	auth         HeaderSource
	client       *http.Client
	detailsCache sync.Map
	apiCallCount int64
	apiCallMutex sync.Mutex
}

type cachedDetails struct {
	details   *OfferDetails
	timestamp time.Time
}

func NewClient(baseURL string, auth HeaderSource) *Client {
	return &Client{
		baseURL: baseURL,
		auth:    auth,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// IncrementAPICall safely increments the API call counter
func (c *Client) IncrementAPICall() {
	c.apiCallMutex.Lock()
	c.apiCallCount++
	c.apiCallMutex.Unlock()
}

// GetAPICallCount returns the current API call count
func (c *Client) GetAPICallCount() int64 {
	c.apiCallMutex.Lock()
	defer c.apiCallMutex.Unlock()
	return c.apiCallCount
}

// ResetAPICallCount resets the API call counter to zero
func (c *Client) ResetAPICallCount() {
	c.apiCallMutex.Lock()
	c.apiCallCount = 0
	c.apiCallMutex.Unlock()
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	headers, err := c.auth.AuthHeaders(ctx)
	if err != nil {
		return fmt.Errorf("failed to get auth headers: %w", err)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	c.IncrementAPICall()

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(resp.Body)
		if resp.StatusCode == http.StatusUnauthorized {
			// Drop the credential so the retrying caller re-authenticates.
			if invalidator, ok := c.auth.(interface{ Invalidate() }); ok {
				log.Warn().Str("path", path).Msg("Request unauthorized, invalidating credential")
				invalidator.Invalidate()
			}
		}
		return fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// GetProductOffers lists the competing offers for a catalog product.
func (c *Client) GetProductOffers(ctx context.Context, productID, countryCode string) (*OffersResponse, error) {
	log.Debug().
		Str("product_id", productID).
		Str("country_code", countryCode).
		Msg("Fetching product offers")

	query := url.Values{
		"visibility":  {"all"},
		"countryCode": {countryCode},
	}

	var offersResp OffersResponse
	if err := c.do(ctx, "GET", "/v3/products/"+productID+"/offers", query, nil, &offersResp); err != nil {
		return nil, err
	}

	log.Debug().
		Str("product_id", productID).
		Int("offers", len(offersResp.Data)).
		Msg("Retrieved product offers")

	return &offersResp, nil
}

// GetOfferDetails fetches the seller's own offer, with a 1 hour cache.
func (c *Client) GetOfferDetails(ctx context.Context, offerID string) (*OfferDetails, error) {
	if cached, ok := c.detailsCache.Load(offerID); ok {
		entry := cached.(cachedDetails)
		if time.Since(entry.timestamp) < time.Hour {
			return entry.details, nil
		}
	}

	var detailsResp OfferDetailsResponse
	if err := c.do(ctx, "GET", "/v3/sales/offers/"+offerID, nil, nil, &detailsResp); err != nil {
		return nil, err
	}
	if detailsResp.Data == nil {
		return nil, fmt.Errorf("offer %s not found", offerID)
	}

	c.detailsCache.Store(offerID, cachedDetails{
		details:   detailsResp.Data,
		timestamp: time.Now(),
	})

	return detailsResp.Data, nil
}

// PatchOffer applies a price/inventory update to the seller's offer. The
// details cache entry is dropped so the next read sees the new price.
func (c *Client) PatchOffer(ctx context.Context, offerID string, payload UpdateOfferPayload) error {
	if err := c.do(ctx, "PATCH", "/v3/sales/offers/"+offerID, nil, payload, nil); err != nil {
		return err
	}
	c.detailsCache.Delete(offerID)
	return nil
}

// GetPricingSimulation asks the marketplace what income a given listing price
// would produce after commission.
func (c *Client) GetPricingSimulation(ctx context.Context, productID string, price float64) (*PricingSimulation, error) {
	log.Debug().
		Str("product_id", productID).
		Float64("price", price).
		Msg("Simulating pricing")

	query := url.Values{
		"productId": {productID},
		"price":     {fmt.Sprintf("%.2f", price)},
	}

	var simulation PricingSimulation
	if err := c.do(ctx, "GET", "/v3/pricing/simulations", query, nil, &simulation); err != nil {
		return nil, err
	}
	return &simulation, nil
}
