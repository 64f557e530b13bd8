package quota

import (
	"context"
	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
	"github.com/veedubyou/stem-splitter-be/src/server/internal/lib/identity"
	"github.com/veedubyou/stem-splitter-be/src/shared/lib/errors/mark"
)

const (
	usesField     = "uses"
	unlockedField = "unlocked"

	unlockedResult = -1
	blockedResult  = -2
)

// consumeScript returns -1 when any key is unlocked, -2 when any key is out
// of free uses, and otherwise increments every key and returns what is left.
var consumeScript = redis.NewScript(`
local limit = tonumber(ARGV[1])
local lowest = limit
for _, key in ipairs(KEYS) do
	if redis.call('HGET', key, 'unlocked') == '1' then
		return -1
	end
	local uses = tonumber(redis.call('HGET', key, 'uses') or '0')
	if limit - uses < lowest then
		lowest = limit - uses
	end
end
if lowest <= 0 then
	return -2
end
for _, key in ipairs(KEYS) do
	redis.call('HINCRBY', key, 'uses', 1)
end
return lowest - 1
`)

var refundScript = redis.NewScript(`
for _, key in ipairs(KEYS) do
	if redis.call('HGET', key, 'unlocked') ~= '1' then
		local uses = tonumber(redis.call('HGET', key, 'uses') or '0')
		if uses > 0 then
			redis.call('HINCRBY', key, 'uses', -1)
		end
	end
end
return 0
`)

var _ Ledger = RedisLedger{}

// RedisLedger stores one hash per ledger key, so several server instances
// can share quotas.
type RedisLedger struct {
	client    *redis.Client
	keyPrefix string
	limit     int
}

func NewRedisLedger(client *redis.Client, keyPrefix string, limit int) RedisLedger {
	return RedisLedger{
		client:    client,
		keyPrefix: keyPrefix,
		limit:     limit,
	}
}

func NewRedisLedgerFromURL(url string, keyPrefix string, limit int) (RedisLedger, error) {
	options, err := redis.ParseURL(url)
	if err != nil {
		return RedisLedger{}, errors.Wrap(err, "Failed to parse redis URL")
	}

	return NewRedisLedger(redis.NewClient(options), keyPrefix, limit), nil
}

func (r RedisLedger) redisKeys(id identity.Identity) []string {
	keys := id.Keys()
	for i, key := range keys {
		keys[i] = r.keyPrefix + key
	}

	return keys
}

func (r RedisLedger) Consume(ctx context.Context, id identity.Identity) (Decision, error) {
	result, err := consumeScript.Run(ctx, r.client, r.redisKeys(id), r.limit).Int()
	if err != nil {
		return Decision{}, mark.Wrap(err, UnavailableMark, "Failed to run consume script")
	}

	switch result {
	case unlockedResult:
		return Decision{Allowed: true, Unlocked: true}, nil
	case blockedResult:
		return Decision{Allowed: false, Remaining: 0}, nil
	default:
		return Decision{Allowed: true, Remaining: result}, nil
	}
}

func (r RedisLedger) Unlock(ctx context.Context, id identity.Identity) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, key := range r.redisKeys(id) {
			pipe.HSet(ctx, key, unlockedField, "1", usesField, 0)
		}
		return nil
	})

	if err != nil {
		return mark.Wrap(err, UnavailableMark, "Failed to unlock identity")
	}

	return nil
}

func (r RedisLedger) Refund(ctx context.Context, id identity.Identity) error {
	err := refundScript.Run(ctx, r.client, r.redisKeys(id)).Err()
	if err != nil {
		return mark.Wrap(err, UnavailableMark, "Failed to run refund script")
	}

	return nil
}

func (r RedisLedger) Close() error {
	return r.client.Close()
}
