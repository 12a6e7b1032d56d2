// internal/safety/checker.go
package safety

import (
	"context"
	"fmt"
	"time"

	"github.com/novasniper/novadash/internal/metrics"
	"github.com/novasniper/novadash/internal/types"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// SafetyService runs the pipeline's security audit for one token.
type SafetyService interface {
	PerformSafetyChecks(ctx context.Context, tokenAddress string) (*types.SafetyCheck, error)
}

// Checker de-duplicates safety check requests. N watchlist entries mounted
// at once used to fan out N identical remote calls per token; here
// concurrent requests for the same address share one in-flight call and
// results are served from a TTL cache afterwards.
type Checker struct {
	service SafetyService
	cache   *gocache.Cache
	group   singleflight.Group
	logger  *zap.Logger
}

// NewChecker creates a safety checker. ttl zero falls back to 5 minutes.
func NewChecker(service SafetyService, ttl time.Duration, logger *zap.Logger) *Checker {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Checker{
		service: service,
		cache:   gocache.New(ttl, 2*ttl),
		logger:  logger.Named("safety"),
	}
}

// Check returns the safety verdict for a token, from cache when fresh.
func (c *Checker) Check(ctx context.Context, tokenAddress string) (*types.SafetyCheck, error) {
	if tokenAddress == "" {
		return nil, fmt.Errorf("safety check: empty token address")
	}

	if cached, ok := c.cache.Get(tokenAddress); ok {
		metrics.SafetyCheckServed("cache")
		check := cached.(types.SafetyCheck)
		return &check, nil
	}

	v, err, shared := c.group.Do(tokenAddress, func() (interface{}, error) {
		check, err := c.service.PerformSafetyChecks(ctx, tokenAddress)
		if err != nil {
			return nil, err
		}
		c.cache.Set(tokenAddress, *check, gocache.DefaultExpiration)
		return *check, nil
	})
	if err != nil {
		return nil, err
	}

	if shared {
		metrics.SafetyCheckServed("shared")
		c.logger.Debug("Safety check shared with concurrent caller",
			zap.String("token", tokenAddress))
	} else {
		metrics.SafetyCheckServed("remote")
	}

	check := v.(types.SafetyCheck)
	return &check, nil
}

// Invalidate drops the cached verdict for a token, forcing the next Check
// to hit the pipeline.
func (c *Checker) Invalidate(tokenAddress string) {
	c.cache.Delete(tokenAddress)
}
