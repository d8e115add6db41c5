// Package latency injects artificial delays into oracle operations.
//
// Each operation class gets a Range. A zero range disables the delay, Min == Max
// sleeps a fixed duration, and Min < Max draws uniformly from [Min, Max].
package latency

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/ryandem1/minesweeper-async/engine"
)

// Range is an inclusive duration interval.
type Range struct {
	Min time.Duration `json:"min" env:"MIN"`
	Max time.Duration `json:"max" env:"MAX"`
}

// Fixed returns a range that always yields d.
func Fixed(d time.Duration) Range { return Range{Min: d, Max: d} }

// Validate requires 0 <= Min <= Max.
func (r Range) Validate() error {
	if r.Min < 0 || r.Max < 0 {
		return fmt.Errorf("latency must not be negative, got [%s, %s]", r.Min, r.Max)
	}
	if r.Min > r.Max {
		return fmt.Errorf("latency min %s exceeds max %s", r.Min, r.Max)
	}
	return nil
}

// Config holds per-operation latency ranges.
type Config struct {
	Create Range `json:"create" env:"CREATE"`
	Query  Range `json:"query" env:"QUERY"`
	Action Range `json:"action" env:"ACTION"`
	Check  Range `json:"check" env:"CHECK"`
}

// Validate checks every range.
func (c Config) Validate() error {
	var errs []string
	for name, r := range map[string]Range{"create": c.Create, "query": c.Query, "action": c.Action, "check": c.Check} {
		if err := r.Validate(); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", name, err))
		}
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// Injector implements engine.Pauser.
type Injector struct {
	ranges map[engine.Operation]Range

	mu  sync.Mutex
	rng *rand.Rand
}

// New builds an injector from cfg.
func New(cfg Config) *Injector {
	return &Injector{
		ranges: map[engine.Operation]Range{
			engine.OpCreate: cfg.Create,
			engine.OpQuery:  cfg.Query,
			engine.OpAction: cfg.Action,
			engine.OpCheck:  cfg.Check,
		},
		rng: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
}

// Duration draws the delay for op.
func (in *Injector) Duration(op engine.Operation) time.Duration {
	r := in.ranges[op]
	if r.Max <= r.Min {
		return r.Min
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	return r.Min + time.Duration(in.rng.Int64N(int64(r.Max-r.Min)+1))
}

// Pause sleeps for op's delay or until ctx is done.
func (in *Injector) Pause(ctx context.Context, op engine.Operation) {
	d := in.Duration(op)
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

var _ engine.Pauser = (*Injector)(nil)
