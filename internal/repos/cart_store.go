package repos

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const (
	cartKeyPrefix     = "cart_"
	selectedKeyPrefix = "cart_selected_"
)

// RedisCartStore keeps per-user cart state outside the relational
// consistency domain: a hash of sku id -> count plus a set of selected ids.
type RedisCartStore struct {
	client *redis.Client
}

func NewRedisCartStore(client *redis.Client) *RedisCartStore {
	return &RedisCartStore{client: client}
}

func cartKey(userID int64) string     { return cartKeyPrefix + strconv.FormatInt(userID, 10) }
func selectedKey(userID int64) string { return selectedKeyPrefix + strconv.FormatInt(userID, 10) }

func (r *RedisCartStore) Add(ctx context.Context, userID, skuID int64, count int, selected bool) error {
	pl := r.client.Pipeline()
	pl.HIncrBy(ctx, cartKey(userID), strconv.FormatInt(skuID, 10), int64(count))
	if selected {
		pl.SAdd(ctx, selectedKey(userID), skuID)
	}
	_, err := pl.Exec(ctx)
	return err
}

// Update overwrites the count and selection flag for one entry.
func (r *RedisCartStore) Update(ctx context.Context, userID, skuID int64, count int, selected bool) error {
	pl := r.client.Pipeline()
	pl.HSet(ctx, cartKey(userID), strconv.FormatInt(skuID, 10), count)
	if selected {
		pl.SAdd(ctx, selectedKey(userID), skuID)
	} else {
		pl.SRem(ctx, selectedKey(userID), skuID)
	}
	_, err := pl.Exec(ctx)
	return err
}

func (r *RedisCartStore) Quantities(ctx context.Context, userID int64) (map[int64]int, error) {
	raw, err := r.client.HGetAll(ctx, cartKey(userID)).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[int64]int, len(raw))
	for k, v := range raw {
		skuID, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			continue
		}
		count, err := strconv.Atoi(v)
		if err != nil {
			continue
		}
		out[skuID] = count
	}
	return out, nil
}

func (r *RedisCartStore) SelectedIDs(ctx context.Context, userID int64) ([]int64, error) {
	raw, err := r.client.SMembers(ctx, selectedKey(userID)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]int64, 0, len(raw))
	for _, v := range raw {
		skuID, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, skuID)
	}
	return out, nil
}

// Remove deletes purchased (or explicitly removed) entries from both the
// quantity hash and the selection set.
func (r *RedisCartStore) Remove(ctx context.Context, userID int64, skuIDs []int64) error {
	if len(skuIDs) == 0 {
		return nil
	}
	fields := make([]string, len(skuIDs))
	members := make([]interface{}, len(skuIDs))
	for i, id := range skuIDs {
		fields[i] = strconv.FormatInt(id, 10)
		members[i] = id
	}
	pl := r.client.Pipeline()
	pl.HDel(ctx, cartKey(userID), fields...)
	pl.SRem(ctx, selectedKey(userID), members...)
	_, err := pl.Exec(ctx)
	return err
}
