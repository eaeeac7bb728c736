package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/redis/go-redis/v9"

	"kinobot/internal/catalog"
)

// Redis stores the catalog as a hash of code -> JSON parts, and channels and
// users as sets.
type Redis struct {
	rdb    *redis.Client
	prefix string
}

func NewRedis(ctx context.Context, addr, password string, db int, prefix string) (*Redis, error) {
	if addr == "" {
		return nil, errors.New("REDIS_ADDR is empty")
	}
	if prefix == "" {
		prefix = "kinobot"
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Redis{rdb: rdb, prefix: prefix}, nil
}

func (r *Redis) key(name string) string { return r.prefix + ":" + name }

func (r *Redis) Entries(ctx context.Context) ([]catalog.Entry, error) {
	all, err := r.rdb.HGetAll(ctx, r.key("catalog")).Result()
	if err != nil {
		return nil, err
	}
	out := make([]catalog.Entry, 0, len(all))
	for code, raw := range all {
		var parts []catalog.Part
		if err := json.Unmarshal([]byte(raw), &parts); err != nil {
			return nil, fmt.Errorf("decode %q: %w", code, err)
		}
		out = append(out, catalog.Entry{Code: code, Parts: parts})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (r *Redis) SaveEntry(ctx context.Context, e catalog.Entry) error {
	b, err := json.Marshal(e.Parts)
	if err != nil {
		return err
	}
	return r.rdb.HSet(ctx, r.key("catalog"), e.Code, b).Err()
}

func (r *Redis) DeleteEntry(ctx context.Context, code string) error {
	return r.rdb.HDel(ctx, r.key("catalog"), code).Err()
}

func (r *Redis) Channels(ctx context.Context) ([]string, error) {
	list, err := r.rdb.SMembers(ctx, r.key("channels")).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(list)
	return list, nil
}

func (r *Redis) SaveChannels(ctx context.Context, channels []string) error {
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.key("channels"))
		if len(channels) > 0 {
			members := make([]any, len(channels))
			for i, ch := range channels {
				members[i] = ch
			}
			pipe.SAdd(ctx, r.key("channels"), members...)
		}
		return nil
	})
	return err
}

func (r *Redis) AddUser(ctx context.Context, userID int64) error {
	return r.rdb.SAdd(ctx, r.key("users"), strconv.FormatInt(userID, 10)).Err()
}

func (r *Redis) CountUsers(ctx context.Context) (int, error) {
	n, err := r.rdb.SCard(ctx, r.key("users")).Result()
	return int(n), err
}

func (r *Redis) Close(context.Context) error {
	if r == nil || r.rdb == nil {
		return nil
	}
	return r.rdb.Close()
}
