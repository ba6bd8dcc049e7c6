package turn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Typed failure signals at the model boundary. ErrOverloaded is the
// transient-overload condition reported by the boundary adapter; it is
// the only signal that triggers the single fallback attempt.
// ErrGenerationFailed wraps every failure surfaced to the caller.
var (
	ErrOverloaded       = errors.New("model target overloaded")
	ErrGenerationFailed = errors.New("generation failed")
)

// Generator is the model boundary: it accepts an ordered tagged sequence
// and a model target and returns generated text or a typed failure.
type Generator interface {
	Generate(ctx context.Context, model string, seq Sequence) (string, error)
}

// Assembler sends assembled sequences to the model boundary with one
// fallback hop on overload.
type Assembler struct {
	gen      Generator
	primary  string
	fallback string
	logger   *slog.Logger
}

// NewAssembler creates an assembler bound to a generator and its
// primary/fallback model targets.
func NewAssembler(gen Generator, primary, fallback string, logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{
		gen:      gen,
		primary:  primary,
		fallback: fallback,
		logger:   logger.With("component", "turn_assembler"),
	}
}

// Send attempts the primary target first. On ErrOverloaded it retries
// exactly once against the fallback target with the identical sequence
// and parameters, strictly sequentially. Any other failure, and overload
// of both targets, returns ErrGenerationFailed without further retries.
// Persistence of the resulting turn is the caller's job.
func (a *Assembler) Send(ctx context.Context, seq Sequence) (string, error) {
	reply, err := a.gen.Generate(ctx, a.primary, seq)
	if err == nil {
		return reply, nil
	}

	if !errors.Is(err, ErrOverloaded) {
		a.logger.ErrorContext(ctx, "Primary model target failed", "model", a.primary, "error", err)
		return "", fmt.Errorf("%w: primary target %s: %v", ErrGenerationFailed, a.primary, err)
	}

	a.logger.WarnContext(ctx, "Primary model target overloaded, retrying on fallback",
		"primary", a.primary, "fallback", a.fallback)

	reply, err = a.gen.Generate(ctx, a.fallback, seq)
	if err != nil {
		a.logger.ErrorContext(ctx, "Fallback model target failed", "model", a.fallback, "error", err)
		return "", fmt.Errorf("%w: fallback target %s: %v", ErrGenerationFailed, a.fallback, err)
	}

	return reply, nil
}
