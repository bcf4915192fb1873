package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"quizcraze/internal/app"
	"quizcraze/internal/domain"
)

const rankingVersionKey = "ranking:version"

// RankingCache shares built leaderboards across instances.
//
//	INCR ranking:version                 on every retained stats change
//	SET  ranking:{scope}:{amount} {json} EX ttl
//	SET  ranking:last:{scope}:{amount}   without expiry, for stale reads
type RankingCache struct {
	client *redis.Client
	ttl    time.Duration
}

type rankingPayload struct {
	Version int64                 `json:"version"`
	Entries []domain.RankingEntry `json:"entries"`
}

func NewRankingCache(client *redis.Client, ttl time.Duration) *RankingCache {
	return &RankingCache{client: client, ttl: ttl}
}

func (c *RankingCache) Version(ctx context.Context) (int64, error) {
	v, err := c.client.Get(ctx, rankingVersionKey).Int64()
	if isMiss(err) {
		return 0, nil
	}
	return v, err
}

func (c *RankingCache) Bump(ctx context.Context) error {
	return c.client.Incr(ctx, rankingVersionKey).Err()
}

func (c *RankingCache) Get(ctx context.Context, key app.RankingKey, version int64) ([]domain.RankingEntry, bool) {
	p, ok := c.read(ctx, c.key(key))
	if !ok || p.Version != version {
		return nil, false
	}
	return p.Entries, true
}

func (c *RankingCache) Put(ctx context.Context, key app.RankingKey, version int64, entries []domain.RankingEntry) error {
	payload, err := json.Marshal(rankingPayload{Version: version, Entries: entries})
	if err != nil {
		return err
	}
	pipe := c.client.TxPipeline()
	pipe.Set(ctx, c.key(key), payload, c.ttl)
	pipe.Set(ctx, c.lastKey(key), payload, 0)
	_, err = pipe.Exec(ctx)
	return err
}

func (c *RankingCache) Latest(ctx context.Context, key app.RankingKey) ([]domain.RankingEntry, bool) {
	p, ok := c.read(ctx, c.lastKey(key))
	if !ok {
		return nil, false
	}
	return p.Entries, true
}

func (c *RankingCache) read(ctx context.Context, key string) (rankingPayload, bool) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return rankingPayload{}, false
	}
	var p rankingPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return rankingPayload{}, false
	}
	return p, true
}

func (c *RankingCache) key(k app.RankingKey) string {
	return "ranking:" + k.String()
}

func (c *RankingCache) lastKey(k app.RankingKey) string {
	return "ranking:last:" + k.String()
}
