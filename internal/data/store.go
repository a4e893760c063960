package data

import (
	"context"
	"fmt"
	"time"

	"slot4d/internal/biz/store"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/redis/go-redis/v9"
	"xorm.io/xorm"
)

const (
	playerKeyPrefix = "slot4d:player:"
	storeTimeout    = 3 * time.Second
)

// OpenPrefs 按配置的驱动打开玩家存储并加载
func (r *dataRepo) OpenPrefs(ctx context.Context, playerID string) (*store.Prefs, error) {
	backend, err := r.backend(playerID)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	prefs, err := store.Open(ctx, backend)
	if err != nil {
		return nil, errors.Newf(500, "STORE_LOAD_FAILED", "load player %s: %v", playerID, err)
	}
	return prefs, nil
}

func (r *dataRepo) backend(playerID string) (store.Backend, error) {
	switch r.data.store {
	case StoreRedis:
		return NewRedisBackend(r.data.rdb, playerID), nil
	case StoreMysql:
		return NewMysqlBackend(r.data.db, playerID), nil
	default:
		r.memMu.Lock()
		defer r.memMu.Unlock()
		m, ok := r.memory[playerID]
		if !ok {
			m = store.NewMemory()
			r.memory[playerID] = m
		}
		return m, nil
	}
}

// redisBackend 每个玩家一个 Hash
type redisBackend struct {
	rdb redis.UniversalClient
	key string
}

func NewRedisBackend(rdb redis.UniversalClient, playerID string) store.Backend {
	return &redisBackend{rdb: rdb, key: playerKeyPrefix + playerID}
}

func (b *redisBackend) Load(ctx context.Context) (map[string]string, error) {
	return b.rdb.HGetAll(ctx, b.key).Result()
}

func (b *redisBackend) Save(ctx context.Context, set map[string]string, del []string) error {
	if len(set) == 0 && len(del) == 0 {
		return nil
	}
	_, err := b.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(set) > 0 {
			pipe.HSet(ctx, b.key, set)
		}
		if len(del) > 0 {
			pipe.HDel(ctx, b.key, del...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis save %s: %w", b.key, err)
	}
	return nil
}

// PlayerPref 玩家键值表
type PlayerPref struct {
	Id        int64     `xorm:"pk autoincr"`
	PlayerId  string    `xorm:"varchar(64) notnull unique(player_key)"`
	PrefKey   string    `xorm:"varchar(64) notnull unique(player_key)"`
	PrefValue string    `xorm:"varchar(255) notnull"`
	UpdatedAt time.Time `xorm:"updated"`
}

func (PlayerPref) TableName() string { return "player_pref" }

const upsertPrefSQL = "INSERT INTO player_pref (player_id, pref_key, pref_value, updated_at) VALUES (?, ?, ?, ?) " +
	"ON DUPLICATE KEY UPDATE pref_value = VALUES(pref_value), updated_at = VALUES(updated_at)"

type mysqlBackend struct {
	db       *xorm.Engine
	playerID string
}

func NewMysqlBackend(db *xorm.Engine, playerID string) store.Backend {
	return &mysqlBackend{db: db, playerID: playerID}
}

func (b *mysqlBackend) Load(ctx context.Context) (map[string]string, error) {
	var rows []PlayerPref
	if err := b.db.Context(ctx).Where("player_id = ?", b.playerID).Find(&rows); err != nil {
		return nil, fmt.Errorf("mysql load %s: %w", b.playerID, err)
	}
	out := make(map[string]string, len(rows))
	for _, row := range rows {
		out[row.PrefKey] = row.PrefValue
	}
	return out, nil
}

func (b *mysqlBackend) Save(ctx context.Context, set map[string]string, del []string) error {
	if len(set) == 0 && len(del) == 0 {
		return nil
	}
	_, err := b.db.Transaction(func(sess *xorm.Session) (any, error) {
		sess = sess.Context(ctx)
		now := time.Now()
		for k, v := range set {
			if _, err := sess.Exec(upsertPrefSQL, b.playerID, k, v, now); err != nil {
				return nil, err
			}
		}
		if len(del) > 0 {
			if _, err := sess.Where("player_id = ?", b.playerID).In("pref_key", del).Delete(&PlayerPref{}); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("mysql save %s: %w", b.playerID, err)
	}
	return nil
}
