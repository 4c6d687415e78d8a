package service

import (
	"context"
	"math/rand/v2"

	"gateway/internal/domain"
)

// Success probabilities of the simulated settlement.
const (
	UPISuccessRate     = 0.90
	DefaultSuccessRate = 0.95
)

// DrawFunc returns a pseudo-random draw in [0, 1).
type DrawFunc func() float64

// FixedDraw returns a DrawFunc that always succeeds or always fails.
func FixedDraw(success bool) DrawFunc {
	return func() float64 {
		if success {
			return 0
		}
		return 1
	}
}

// PSP is the interface for a Payment Service Provider.
type PSP interface {
	Settle(ctx context.Context, payment *domain.Payment) (bool, error)
}

// SimulatedPSP settles payments with a method-dependent Bernoulli draw.
type SimulatedPSP struct {
	draw DrawFunc
}

// NewSimulatedPSP creates a new SimulatedPSP. A nil draw uses math/rand.
func NewSimulatedPSP(draw DrawFunc) *SimulatedPSP {
	if draw == nil {
		draw = rand.Float64
	}
	return &SimulatedPSP{draw: draw}
}

// SuccessRate returns the probability that a payment with method settles.
func SuccessRate(method domain.PaymentMethod) float64 {
	if method == domain.PaymentMethodUPI {
		return UPISuccessRate
	}
	return DefaultSuccessRate
}

// Settle reports whether the payment succeeded.
func (p *SimulatedPSP) Settle(_ context.Context, payment *domain.Payment) (bool, error) {
	return p.draw() < SuccessRate(payment.Method), nil
}
