package fetch

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dealmungchi/mirascraper/helpers"
	"github.com/dealmungchi/mirascraper/logger"
	"github.com/dealmungchi/mirascraper/pkg/errors"
	"github.com/dealmungchi/mirascraper/services/cache"
)

// Cooldown records rate-limit pauses in a shared cache so that another
// process scraping the same source waits them out too. Markers this
// instance wrote itself are ignored, it already slept through them.
type Cooldown struct {
	cache cache.CacheService
	key   string
	owner string
	now   func() time.Time
	sleep helpers.Sleeper
}

var cooldownSeq atomic.Int64

// NewCooldown creates a cooldown stored under key
func NewCooldown(c cache.CacheService, key string, sleep helpers.Sleeper) *Cooldown {
	if sleep == nil {
		sleep = helpers.SleepContext
	}
	return &Cooldown{
		cache: c,
		key:   key,
		owner: strconv.FormatInt(time.Now().UnixNano(), 36) + "-" + strconv.FormatInt(cooldownSeq.Add(1), 36),
		now:   time.Now,
		sleep: sleep,
	}
}

// Mark stores a pause of d starting now
func (c *Cooldown) Mark(d time.Duration) {
	if c == nil || c.cache == nil || d <= 0 {
		return
	}
	until := c.now().Add(d).UnixNano()
	value := fmt.Sprintf("%d:%s", until, c.owner)
	if err := c.cache.Set(c.key, []byte(value), d); err != nil {
		logger.ForCache().Warn().Err(errors.NewCache(c.key, "failed to store cooldown marker", err)).Msg("Cooldown is not shared")
	}
}

// Remaining reports how long a marker left by someone else still holds
func (c *Cooldown) Remaining() time.Duration {
	if c == nil || c.cache == nil {
		return 0
	}
	raw, err := c.cache.Get(c.key)
	if err != nil {
		return 0
	}
	untilText, owner, _ := strings.Cut(string(raw), ":")
	if owner == c.owner {
		return 0
	}
	until, err := strconv.ParseInt(untilText, 10, 64)
	if err != nil {
		return 0
	}
	return time.Unix(0, until).Sub(c.now())
}

// Wait sleeps out a pending cooldown
func (c *Cooldown) Wait(ctx context.Context) error {
	remaining := c.Remaining()
	if remaining <= 0 {
		return nil
	}
	logger.ForCache().Info().Err(errors.NewRateLimit(c.key, remaining)).Msg("Waiting out cooldown")
	return c.sleep(ctx, remaining)
}
