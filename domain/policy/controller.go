package policy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Mohammed-Akramuddin/agegate/config"
	"github.com/Mohammed-Akramuddin/agegate/domain/verdict"
	"github.com/Mohammed-Akramuddin/agegate/store"
)

// State enumerates the protective-policy states.
type State int

const (
	StateUnset State = iota
	StateEnforced
	StateCleared
)

func (s State) String() string {
	switch s {
	case StateUnset:
		return "unset"
	case StateEnforced:
		return "enforced"
	case StateCleared:
		return "cleared"
	default:
		return "unknown"
	}
}

// Outcome reports what one Apply did. SinkErr carries a recovered policy
// sink failure (wrapping ErrPolicyLocked); the verdict and window writes
// still happened when it is set.
type Outcome struct {
	State        State
	SinkCalled   bool
	SinkErr      error
	AllowedUntil time.Time
}

// Controller applies verdicts to the protective policy idempotently and
// maintains the verification window. It is the sole writer of the policy
// state and window; the consent flag is read-only here. One analysis cycle
// runs at a time, so Apply needs no internal locking.
type Controller struct {
	cfg    *config.Config
	store  store.Store
	sink   Sink
	logger *slog.Logger
	now    func() time.Time

	state State
}

// NewController returns a controller in the Unset state. Call Restore to
// resume the state persisted by an earlier process.
func NewController(cfg *config.Config, st store.Store, sink Sink, logger *slog.Logger) *Controller {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Controller{cfg: cfg, store: st, sink: sink, logger: logger, now: time.Now}
}

// SetNow overrides the clock, for tests.
func (c *Controller) SetNow(now func() time.Time) { c.now = now }

// State returns the current policy state.
func (c *Controller) State() State { return c.state }

// Restore loads the last persisted verdict so that idempotence holds across
// process restarts.
func (c *Controller) Restore(ctx context.Context) error {
	isMinor, ok, err := c.store.LastVerdictMinor(ctx)
	if err != nil {
		return fmt.Errorf("restore policy state: %w", err)
	}
	if !ok {
		c.state = StateUnset
		return nil
	}
	if isMinor {
		c.state = StateEnforced
	} else {
		c.state = StateCleared
	}
	return nil
}

// ConsentGiven reports whether the consent gate is satisfied. Callers check
// this once per invocation, before any pipeline work.
func (c *Controller) ConsentGiven(ctx context.Context) error {
	given, err := c.store.ConsentGiven(ctx)
	if err != nil {
		return fmt.Errorf("read consent: %w", err)
	}
	if !given {
		return ErrConsentMissing
	}
	return nil
}

// Apply transitions the policy for a new verdict. A Minor verdict targets
// Enforced, a Major verdict targets Cleared. When the policy is already in
// the target state the sink is not called. A sink failure is recovered: the
// verdict is still recorded and the verification window still extended,
// because classification success is independent of policy-application
// success. The window is set to now + the configured duration on every
// completed analysis regardless of verdict or sink outcome.
func (c *Controller) Apply(ctx context.Context, v verdict.Verdict) (Outcome, error) {
	target := StateCleared
	if v.Category == verdict.Minor {
		target = StateEnforced
	}

	out := Outcome{State: c.state}
	if c.state != target {
		out.SinkCalled = true
		var err error
		if target == StateEnforced {
			err = c.sink.EnableProtection(ctx)
		} else {
			err = c.sink.DisableProtection(ctx)
		}
		if err != nil {
			if !errors.Is(err, ErrPolicyLocked) {
				err = fmt.Errorf("%w: %v", ErrPolicyLocked, err)
			}
			out.SinkErr = err
			if c.logger != nil {
				c.logger.Warn("policy sink refused transition",
					"from", c.state.String(), "to", target.String(), "error", err)
			}
		} else {
			c.state = target
			out.State = target
			if c.logger != nil {
				c.logger.Info("policy state transition", "to", target.String(), "verdict", v.Category.String())
			}
		}
	} else if c.logger != nil {
		c.logger.Debug("policy already in target state", "state", target.String())
	}

	// Recorded regardless of the sink outcome.
	if err := c.store.SetLastVerdictMinor(ctx, v.Category == verdict.Minor); err != nil {
		return out, fmt.Errorf("persist verdict: %w", err)
	}
	until := c.now().Add(c.cfg.VerificationWindow())
	if err := c.store.SetVerificationAllowedUntil(ctx, until); err != nil {
		return out, fmt.Errorf("persist verification window: %w", err)
	}
	out.AllowedUntil = until
	return out, nil
}
