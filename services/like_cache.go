package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	LIKE_CNT_KEY_PREFIX   = "like:cnt:post:"   // Префикс ключей счетчика лайков
	LIKE_GUARD_KEY_PREFIX = "like:guard:post:" // Метка недавней мутации: пока она жива, кеш не заполняется
	LIKE_CNT_FILL_GUARD   = 5 * time.Second    // Время жизни метки
)

// fillScript пишет счетчик, только если у поста нет свежей метки мутации.
// KEYS[1] - счетчик, KEYS[2] - метка, ARGV[1] - значение, ARGV[2] - TTL в мс (0 - без TTL)
var fillScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[2]) == 1 then
	return 0
end
if tonumber(ARGV[2]) > 0 then
	redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[2])
else
	redis.call('SET', KEYS[1], ARGV[1])
end
return 1
`)

// LikeCountCache кеширует число лайков поста. Источник истины - БД:
// после каждой мутации ключ удаляется, читатели заполняют его заново.
// Нулевой *LikeCountCache означает "кеш выключен".
type LikeCountCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewLikeCountCache(client *redis.Client, ttl time.Duration) *LikeCountCache {
	if client == nil {
		return nil
	}
	return &LikeCountCache{client: client, ttl: ttl}
}

func likeCntKey(postID int64) string {
	return fmt.Sprintf("%s%d", LIKE_CNT_KEY_PREFIX, postID)
}

func likeGuardKey(postID int64) string {
	return fmt.Sprintf("%s%d", LIKE_GUARD_KEY_PREFIX, postID)
}

// GetMany возвращает найденные в кеше счетчики; отсутствующие ключи просто не попадают в map
func (c *LikeCountCache) GetMany(ctx context.Context, postIDs []int64) (map[int64]int64, error) {
	result := make(map[int64]int64, len(postIDs))
	if c == nil || len(postIDs) == 0 {
		return result, nil
	}
	pipe := c.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(postIDs))
	for i, id := range postIDs {
		cmds[i] = pipe.Get(ctx, likeCntKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return result, err
	}
	for i, cmd := range cmds {
		val, err := cmd.Result()
		if err != nil {
			continue
		}
		n, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			continue
		}
		result[postIDs[i]] = n
	}
	return result, nil
}

// SetMany backfills counts read from the database.
// Posts mutated within LIKE_CNT_FILL_GUARD are skipped: the count may have been read before the mutation.
func (c *LikeCountCache) SetMany(ctx context.Context, counts map[int64]int64) error {
	if c == nil || len(counts) == 0 {
		return nil
	}
	ttl := c.ttl.Milliseconds()
	pipe := c.client.Pipeline()
	for id, n := range counts {
		fillScript.Eval(ctx, pipe, []string{likeCntKey(id), likeGuardKey(id)}, n, ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// Invalidate удаляет счетчик поста и ставит метку мутации; ошибки только логируются
func (c *LikeCountCache) Invalidate(ctx context.Context, postID int64) {
	if c == nil {
		return
	}
	pipe := c.client.TxPipeline()
	pipe.Set(ctx, likeGuardKey(postID), 1, LIKE_CNT_FILL_GUARD)
	pipe.Del(ctx, likeCntKey(postID))
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("ERROR: failed to invalidate like count for post %d: %v", postID, err)
	}
}
