package cache

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Bets guarda o resultado de apostas resolvidas com TTL, pro status read
// não bater no Postgres a cada consulta.
type Bets struct{ R *redis.Client }

func New(r *redis.Client) *Bets { return &Bets{R: r} }

func keyBet(requestID uint64) string { return "bet:result:" + strconv.FormatUint(requestID, 10) }

func (c *Bets) GetResult(ctx context.Context, requestID uint64, dst any) (bool, error) {
	b, err := c.R.Get(ctx, keyBet(requestID)).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(b, dst)
}

func (c *Bets) SetResult(ctx context.Context, requestID uint64, v any, ttl time.Duration) error {
	b, _ := json.Marshal(v)
	return c.R.Set(ctx, keyBet(requestID), b, ttl).Err()
}
