package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Strob0t/TestRelay/internal/port/cache"
	"github.com/Strob0t/TestRelay/internal/port/hosting"
	"github.com/Strob0t/TestRelay/internal/resilience"
)

// GuardedPermissions decorates a PermissionChecker with a circuit breaker
// and a cache. Definite answers are cached; lookup failures (including an
// open circuit) propagate as errors so the gate fails closed.
type GuardedPermissions struct {
	inner   hosting.PermissionChecker
	cache   cache.Cache
	ttl     time.Duration
	breaker *resilience.Breaker
}

// NewGuardedPermissions wraps inner. cache and breaker may be nil, in which
// case that layer is skipped.
func NewGuardedPermissions(inner hosting.PermissionChecker, c cache.Cache, ttl time.Duration, breaker *resilience.Breaker) *GuardedPermissions {
	return &GuardedPermissions{inner: inner, cache: c, ttl: ttl, breaker: breaker}
}

// HasWriteAccess implements hosting.PermissionChecker.
func (g *GuardedPermissions) HasWriteAccess(ctx context.Context, login string, repositoryID int64) (bool, error) {
	key := permKey(login, repositoryID)

	if g.cache != nil {
		// A cache failure is a miss, never a denial.
		if v, ok, err := g.cache.Get(ctx, key); err != nil {
			slog.Debug("permission cache read failed", "key", key, "error", err)
		} else if ok {
			return len(v) == 1 && v[0] == 't', nil
		}
	}

	var hasWrite bool
	lookup := func(ctx context.Context) error {
		v, err := g.inner.HasWriteAccess(ctx, login, repositoryID)
		hasWrite = v
		return err
	}

	var err error
	if g.breaker != nil {
		err = g.breaker.Do(ctx, lookup)
	} else {
		err = lookup(ctx)
	}
	if err != nil {
		return false, err
	}

	if g.cache != nil {
		v := []byte("f")
		if hasWrite {
			v = []byte("t")
		}
		if err := g.cache.Set(ctx, key, v, g.ttl); err != nil {
			slog.Debug("permission cache write failed", "key", key, "error", err)
		}
	}
	return hasWrite, nil
}

func permKey(login string, repositoryID int64) string {
	return fmt.Sprintf("perm:%d:%s", repositoryID, login)
}
