package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultRequestTimeout bounds every outbound call to the processor.
// A timeout surfaces as ErrProvider; it is never treated as a terminal
// payment state.
const DefaultRequestTimeout = 10 * time.Second

// HTTPProvider talks to a REST payment processor. Base URL, credentials
// and the name the processor goes by in webhook paths all come from
// configuration, injected at construction.
type HTTPProvider struct {
	name    string
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPProvider creates an HTTP-backed provider adapter
func NewHTTPProvider(name, baseURL, apiKey string) *HTTPProvider {
	return &HTTPProvider{
		name:    name,
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: DefaultRequestTimeout},
	}
}

// Name returns the configured provider name
func (p *HTTPProvider) Name() string {
	return p.name
}

// CreatePayment initiates a payment with the processor
func (p *HTTPProvider) CreatePayment(ctx context.Context, req *CreateRequest) (*CreateResponse, error) {
	var out CreateResponse
	if err := p.post(ctx, "/v1/payments", req, &out); err != nil {
		return nil, err
	}
	if out.ProviderRef == "" {
		return nil, fmt.Errorf("%w: %s returned no payment reference", ErrProvider, p.name)
	}
	return &out, nil
}

// Refund asks the processor to refund a completed payment
func (p *HTTPProvider) Refund(ctx context.Context, providerRef string, amount float64) error {
	body := map[string]interface{}{"amount": amount}
	return p.post(ctx, "/v1/payments/"+providerRef+"/refund", body, nil)
}

// Cancel asks the processor to void a pending payment
func (p *HTTPProvider) Cancel(ctx context.Context, providerRef string) error {
	return p.post(ctx, "/v1/payments/"+providerRef+"/cancel", nil, nil)
}

func (p *HTTPProvider) post(ctx context.Context, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrProvider, err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProvider, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrProvider, p.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%w: %s responded %d: %s", ErrProvider, p.name, resp.StatusCode, string(payload))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrProvider, p.name, err)
		}
	}
	return nil
}
