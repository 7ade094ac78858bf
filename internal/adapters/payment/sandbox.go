package payment

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// SandboxName is the provider name used in dev mode
const SandboxName = "sandbox"

// Sandbox is an in-process provider used in dev mode and tests. It
// acknowledges every payment with a generated reference and remembers
// refund/cancel calls so flows can be exercised without a processor
// account.
type Sandbox struct {
	mu        sync.Mutex
	created   map[string]*CreateRequest
	refunded  map[string]float64
	cancelled map[string]bool
}

// NewSandbox creates a sandbox provider
func NewSandbox() *Sandbox {
	return &Sandbox{
		created:   make(map[string]*CreateRequest),
		refunded:  make(map[string]float64),
		cancelled: make(map[string]bool),
	}
}

// Name returns the sandbox provider name
func (s *Sandbox) Name() string {
	return SandboxName
}

// CreatePayment acknowledges the payment with a generated reference
func (s *Sandbox) CreatePayment(_ context.Context, req *CreateRequest) (*CreateResponse, error) {
	ref := "sbx_" + uuid.New().String()

	s.mu.Lock()
	s.created[ref] = req
	s.mu.Unlock()

	return &CreateResponse{ProviderRef: ref}, nil
}

// Refund records the refund
func (s *Sandbox) Refund(_ context.Context, providerRef string, amount float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.created[providerRef]; !ok {
		return fmt.Errorf("%w: sandbox: unknown payment %s", ErrProvider, providerRef)
	}
	s.refunded[providerRef] = amount
	return nil
}

// Cancel records the cancellation
func (s *Sandbox) Cancel(_ context.Context, providerRef string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.created[providerRef]; !ok {
		return fmt.Errorf("%w: sandbox: unknown payment %s", ErrProvider, providerRef)
	}
	s.cancelled[providerRef] = true
	return nil
}
