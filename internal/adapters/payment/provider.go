package payment

import (
	"context"
	"errors"
	"fmt"
)

// ErrProvider wraps transport failures, provider-side rejections and
// provider timeouts. The core never retries these on its own; the caller
// owns the retry decision.
var ErrProvider = errors.New("payment provider error")

// CreateRequest is the normalized internal representation of a payment
// to be initiated with an external processor.
type CreateRequest struct {
	Amount      float64    `json:"amount"`
	Currency    string     `json:"currency"`
	Description string     `json:"description,omitempty"`
	BuyerEmail  string     `json:"buyer_email"`
	BuyerName   string     `json:"buyer_name,omitempty"`
	Address     string     `json:"address,omitempty"`
	Lines       []LineItem `json:"lines,omitempty"`
}

// LineItem is a single basket line
type LineItem struct {
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

// CreateResponse carries the provider's acknowledgement
type CreateResponse struct {
	ProviderRef string `json:"provider_ref"`
	RedirectURL string `json:"redirect_url,omitempty"`
}

// Provider is the provider-agnostic adapter contract. Every external
// processor is hidden behind this interface; the gateway service never
// sees provider-specific request shapes.
type Provider interface {
	Name() string
	CreatePayment(ctx context.Context, req *CreateRequest) (*CreateResponse, error)
	Refund(ctx context.Context, providerRef string, amount float64) error
	Cancel(ctx context.Context, providerRef string) error
}

// Registry holds the configured provider adapters by name
type Registry struct {
	providers map[string]Provider
}

// NewRegistry creates a registry from the given adapters
func NewRegistry(providers ...Provider) *Registry {
	reg := &Registry{providers: make(map[string]Provider)}
	for _, p := range providers {
		reg.providers[p.Name()] = p
	}
	return reg
}

// Get returns the adapter for a provider name
func (r *Registry) Get(name string) (Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown provider %q", ErrProvider, name)
	}
	return p, nil
}
