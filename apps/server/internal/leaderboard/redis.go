package leaderboard

import (
	"context"
	"errors"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// RedisBoard keeps best totals in a sorted set (member = user id) and the
// display names in a hash next to it. Redis orders equal scores by member
// bytes, so ties are re-ranked by numeric user id on read.
type RedisBoard struct {
	rdb      *redis.Client
	key      string
	namesKey string
}

func NewRedisBoard(ctx context.Context, opts *redis.Options, key string) (*RedisBoard, error) {
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return &RedisBoard{rdb: rdb, key: key, namesKey: key + ":names"}, nil
}

func (b *RedisBoard) Close() error { return b.rdb.Close() }

func (b *RedisBoard) Submit(ctx context.Context, userID uint64, username string, total int) (bool, error) {
	member := strconv.FormatUint(userID, 10)
	pipe := b.rdb.TxPipeline()
	changed := pipe.ZAddArgs(ctx, b.key, redis.ZAddArgs{
		GT:      true,
		Ch:      true,
		Members: []redis.Z{{Score: float64(total), Member: member}},
	})
	pipe.HSet(ctx, b.namesKey, member, username)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	return changed.Val() > 0, nil
}

func (b *RedisBoard) Top(ctx context.Context, n int) ([]Entry, error) {
	stop := int64(-1)
	if n > 0 {
		stop = int64(n - 1)
	}
	zs, err := b.rdb.ZRevRangeWithScores(ctx, b.key, 0, stop).Result()
	if err != nil {
		return nil, err
	}
	if len(zs) == 0 {
		return []Entry{}, nil
	}
	if n > 0 && len(zs) == n {
		// Members tied with the last one may sort ahead of it by id.
		zs, err = b.rdb.ZRevRangeByScoreWithScores(ctx, b.key, &redis.ZRangeBy{
			Min: scoreArg(zs[len(zs)-1].Score),
			Max: "+inf",
		}).Result()
		if err != nil {
			return nil, err
		}
	}

	out := make([]Entry, 0, len(zs))
	for _, z := range zs {
		member, _ := z.Member.(string)
		id, err := strconv.ParseUint(member, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, Entry{UserID: id, Best: int(z.Score)})
	}
	rank(out)
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	if len(out) == 0 {
		return out, nil
	}

	members := make([]string, len(out))
	for i, e := range out {
		members[i] = strconv.FormatUint(e.UserID, 10)
	}
	names, err := b.rdb.HMGet(ctx, b.namesKey, members...).Result()
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Username, _ = names[i].(string)
	}
	return out, nil
}

func (b *RedisBoard) Rank(ctx context.Context, userID uint64) (Entry, bool, error) {
	member := strconv.FormatUint(userID, 10)
	score, err := b.rdb.ZScore(ctx, b.key, member).Result()
	if errors.Is(err, redis.Nil) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}

	s := scoreArg(score)
	above, err := b.rdb.ZCount(ctx, b.key, "("+s, "+inf").Result()
	if err != nil {
		return Entry{}, false, err
	}
	tied, err := b.rdb.ZRangeByScore(ctx, b.key, &redis.ZRangeBy{Min: s, Max: s}).Result()
	if err != nil {
		return Entry{}, false, err
	}
	pos := int(above) + 1
	for _, m := range tied {
		if id, err := strconv.ParseUint(m, 10, 64); err == nil && id < userID {
			pos++
		}
	}

	name, err := b.rdb.HGet(ctx, b.namesKey, member).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return Entry{}, false, err
	}
	return Entry{Rank: pos, UserID: userID, Username: name, Best: int(score)}, true, nil
}

func scoreArg(score float64) string {
	return strconv.FormatFloat(score, 'f', -1, 64)
}
