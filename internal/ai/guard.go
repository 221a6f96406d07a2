package ai

import (
	"context"
	"time"

	"github.com/sony/gobreaker"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type GuardOptions struct {
	Breaker      bool
	MaxRequests  uint32
	Interval     time.Duration
	Timeout      time.Duration
	MinRequests  uint32
	FailureRatio float64
	// RateLimit is the number of outbound calls per second, 0 disables it.
	RateLimit float64
	Burst     int
}

type guardedProvider struct {
	next    IProvider
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
}

// Guard wraps a provider with a circuit breaker and an outbound rate limiter.
// An open breaker fails the call immediately; calls are never retried.
func Guard(p IProvider, opts GuardOptions) IProvider {
	if p == nil || (!opts.Breaker && opts.RateLimit <= 0) {
		return p
	}
	g := &guardedProvider{next: p}
	if opts.Breaker {
		g.breaker = newBreaker(p.Name(), opts)
	}
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	return g
}

func newBreaker(name string, opts GuardOptions) *gobreaker.CircuitBreaker {
	minRequests := opts.MinRequests
	if minRequests == 0 {
		minRequests = 5
	}
	ratio := opts.FailureRatio
	if ratio <= 0 {
		ratio = 0.6
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: opts.MaxRequests,
		Interval:    opts.Interval,
		Timeout:     opts.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < minRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= ratio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logutil.GetLogger(context.Background()).Warn("ai circuit breaker state changed",
				zap.String("provider", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
}

func (g *guardedProvider) Name() string {
	return g.next.Name()
}

func (g *guardedProvider) Chat(ctx context.Context, model string, messages []Message) (string, error) {
	res, err := g.do(ctx, func() (interface{}, error) {
		return g.next.Chat(ctx, model, messages)
	})
	if err != nil {
		return "", err
	}
	return res.(string), nil
}

func (g *guardedProvider) Embed(ctx context.Context, model string, text string) ([]float32, error) {
	res, err := g.do(ctx, func() (interface{}, error) {
		return g.next.Embed(ctx, model, text)
	})
	if err != nil {
		return nil, err
	}
	return res.([]float32), nil
}

func (g *guardedProvider) do(ctx context.Context, fn func() (interface{}, error)) (interface{}, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	if g.breaker == nil {
		return fn()
	}
	return g.breaker.Execute(fn)
}
