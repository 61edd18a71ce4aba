// Package riskgate screens migrated tokens before any buy is attempted.
package riskgate

import (
	"context"
	"time"

	"solana-migration-sniper/internal/domain"
)

// Gate evaluates a mint and returns a verdict. Implementations may be slow;
// callers must invoke them off the stream-processing loop.
type Gate interface {
	Evaluate(ctx context.Context, mint string) (*domain.RiskVerdict, error)
}

// Composite runs every gate in order and fails on the first failed check.
// Reasons from the failing gate are carried into the verdict.
type Composite struct {
	gates []Gate
}

// NewComposite creates a gate that requires all members to pass.
func NewComposite(gates ...Gate) *Composite {
	return &Composite{gates: gates}
}

// Evaluate runs the member gates sequentially.
func (c *Composite) Evaluate(ctx context.Context, mint string) (*domain.RiskVerdict, error) {
	for _, g := range c.gates {
		verdict, err := g.Evaluate(ctx, mint)
		if err != nil {
			return nil, err
		}
		if !verdict.Passed {
			return verdict, nil
		}
	}
	return &domain.RiskVerdict{
		Passed:      true,
		EvaluatedAt: time.Now().UnixMilli(),
	}, nil
}

var _ Gate = (*Composite)(nil)

// PassAll is a gate that accepts every mint, for configurations with risk
// screening disabled.
type PassAll struct{}

// Evaluate always passes.
func (PassAll) Evaluate(_ context.Context, _ string) (*domain.RiskVerdict, error) {
	return &domain.RiskVerdict{Passed: true, EvaluatedAt: time.Now().UnixMilli()}, nil
}

var _ Gate = PassAll{}
