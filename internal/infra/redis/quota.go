package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const defaultDailyLimit int64 = 1000

var quotaScript = goredis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("EXPIRE", KEYS[1], ARGV[2])
end
if current > tonumber(ARGV[1]) then
  return 0
end
return 1
`)

// DailyQuota is a per-organization daily message counter backed by Redis.
// Keys roll over at midnight UTC.
type DailyQuota struct {
	client *goredis.Client
	limit  int64
	now    func() time.Time
	script *goredis.Script
}

func NewDailyQuota(client *goredis.Client, limit int) (*DailyQuota, error) {
	return newDailyQuota(client, int64(limit), time.Now)
}

func newDailyQuota(client *goredis.Client, limit int64, nowFn func() time.Time) (*DailyQuota, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if limit <= 0 {
		limit = defaultDailyLimit
	}
	if nowFn == nil {
		nowFn = time.Now
	}

	return &DailyQuota{
		client: client,
		limit:  limit,
		now:    nowFn,
		script: quotaScript,
	}, nil
}

// Allow consumes one send from the organization's daily budget. It returns
// false when the organization is at or over its limit for the current day.
func (q *DailyQuota) Allow(ctx context.Context, organizationID string) (bool, error) {
	if q == nil || q.client == nil || q.script == nil {
		return false, fmt.Errorf("daily quota is not initialized")
	}
	if organizationID == "" {
		return false, fmt.Errorf("organization id is required")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	now := q.now().UTC()
	key := fmt.Sprintf("quota:msg:%s:%s", organizationID, now.Format("2006-01-02"))
	endOfDay := now.Truncate(24 * time.Hour).Add(24 * time.Hour)
	ttl := int64(endOfDay.Sub(now) / time.Second)
	if ttl <= 0 {
		ttl = 1
	}

	result, err := q.script.Run(ctx, q.client, []string{key}, q.limit, ttl).Int()
	if err != nil {
		return false, fmt.Errorf("failed to evaluate daily quota: %w", err)
	}

	return result == 1, nil
}
