package data

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"slot4d/internal/biz"
	"slot4d/internal/biz/store"
	"slot4d/internal/conf"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	_ "github.com/go-sql-driver/mysql"
	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
	"xorm.io/xorm"
)

// ProviderSet is data providers.
var ProviderSet = wire.NewSet(NewData, NewRedis, NewMysql, NewDataRepo, NewS3Bucket)

// 玩家存储驱动
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
	StoreMysql  = "mysql"
)

type dataRepo struct {
	data *Data
	log  *log.Helper

	memMu  sync.Mutex
	memory map[string]*store.Memory
	seq    atomic.Int64
}

func NewDataRepo(data *Data, logger log.Logger) biz.DataRepo {
	return &dataRepo{
		data:   data,
		log:    log.NewHelper(logger),
		memory: make(map[string]*store.Memory),
	}
}

// Data .
type Data struct {
	store    string
	db       *xorm.Engine
	order    *xorm.Engine
	rdb      redis.UniversalClient
	s3Bucket *S3Bucket
}

// NewData 按 store 驱动检查依赖并同步表结构
func NewData(c *conf.Data, logger log.Logger, db *xorm.Engine, rdb redis.UniversalClient, s3 *S3Bucket) (*Data, func(), error) {
	l := log.NewHelper(logger)
	driver := StoreMemory
	if c != nil && c.Store != "" {
		driver = c.Store
	}
	switch driver {
	case StoreMemory:
	case StoreRedis:
		if rdb == nil {
			return nil, nil, errors.Newf(500, "STORE_DRIVER_UNAVAILABLE", "store driver %q requires redis", driver)
		}
	case StoreMysql:
		if db == nil {
			return nil, nil, errors.Newf(500, "STORE_DRIVER_UNAVAILABLE", "store driver %q requires database", driver)
		}
		if c.Database.Sync {
			if err := db.Sync(new(PlayerPref)); err != nil {
				return nil, nil, errors.Newf(500, "DB_SYNC_FAILED", "sync player_pref: %v", err)
			}
		}
	default:
		return nil, nil, errors.Newf(500, "STORE_DRIVER_UNKNOWN", "unknown store driver %q", driver)
	}

	var orderDB *xorm.Engine
	orderCleanup := func() {}
	if c != nil && c.OrderDatabase != nil {
		var err error
		orderDB, orderCleanup, err = newMysqlFromConf(c.OrderDatabase, logger, "order")
		if err != nil {
			return nil, nil, err
		}
		if c.OrderDatabase.Sync {
			if err := orderDB.Sync(new(SpinOrder)); err != nil {
				orderCleanup()
				return nil, nil, errors.Newf(500, "DB_SYNC_FAILED", "sync spin_order: %v", err)
			}
		}
	}

	cleanup := func() {
		l.Info("closing the data resources")
		orderCleanup()
	}
	l.Infof("player store driver: %s", driver)
	return &Data{store: driver, db: db, order: orderDB, rdb: rdb, s3Bucket: s3}, cleanup, nil
}

// NewRedis 创建并配置 Redis 客户端；未配置时返回 nil
func NewRedis(c *conf.Data, logger log.Logger) (redis.UniversalClient, func(), error) {
	l := log.NewHelper(logger)

	if c == nil || c.Redis == nil || len(c.Redis.Addr) == 0 {
		l.Warn("redis not configured")
		return nil, func() {}, nil
	}

	rdb := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:        c.Redis.Addr,
		Password:     c.Redis.Password,
		DB:           int(c.Redis.Db),
		ReadTimeout:  c.Redis.ReadTimeout.AsDuration(),
		WriteTimeout: c.Redis.WriteTimeout.AsDuration(),
		// 连接池配置
		PoolSize:        50,
		MinIdleConns:    10,
		PoolTimeout:     5 * time.Second,
		ConnMaxLifetime: 10 * time.Minute,
		ConnMaxIdleTime: 5 * time.Minute,
		MaxRetries:      3,
		MinRetryBackoff: 100 * time.Millisecond,
		MaxRetryBackoff: 500 * time.Millisecond,
	})

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		l.Errorf("failed pinging redis: %v", err)
		_ = rdb.Close()
		return nil, nil, errors.Newf(500, "REDIS_PING_FAILED", "failed pinging redis: %v", err)
	}

	cleanup := func() {
		l.Infof("closing redis connection")
		if err := rdb.Close(); err != nil {
			l.Error(err)
		}
	}

	l.Info("Redis connection established successfully")
	return rdb, cleanup, nil
}

// NewMysql 创建默认库 MySQL 连接；未配置时返回 nil
func NewMysql(c *conf.Data, logger log.Logger) (*xorm.Engine, func(), error) {
	if c == nil || c.Database == nil {
		log.NewHelper(logger).Warn("database not configured")
		return nil, func() {}, nil
	}
	return newMysqlFromConf(c.Database, logger, "default")
}

// newMysqlFromConf 创建并配置 MySQL 数据库连接
func newMysqlFromConf(c *conf.Data_Database, logger log.Logger, label string) (*xorm.Engine, func(), error) {
	l := log.NewHelper(logger)
	if c == nil {
		return nil, func() {}, nil
	}
	db, err := xorm.NewEngine(c.Driver, c.Source)
	if err != nil {
		l.Errorf("failed opening %s db: %v", label, err)
		return nil, nil, errors.Newf(500, "DB_OPEN_FAILED", "failed opening %s db: %v", label, err)
	}

	db.SetMaxIdleConns(defaultInt(c.MaxIdleConns, 5))
	db.SetMaxOpenConns(defaultInt(c.MaxOpenConns, 30))
	if db.DB() != nil {
		db.DB().SetConnMaxLifetime(3 * time.Minute)
		db.DB().SetConnMaxIdleTime(1 * time.Minute)
	}

	if err := db.Ping(); err != nil {
		l.Errorf("failed pinging, db=%q, err=%v", label, err)
		_ = db.Close()
		return nil, nil, errors.Newf(500, "DB_PING_FAILED", "failed pinging db=%q: %v", label, err)
	}
	cleanup := func() {
		l.Infof("closing mysql connection. db=%q", label)
		if err := db.Close(); err != nil {
			l.Error(err)
		}
	}
	l.Infof("MySQL connection established successfully. db=%q", label)
	return db, cleanup, nil
}

// defaultInt 返回配置值或默认值
func defaultInt(value int32, defaultValue int) int {
	if v := int(value); v > 0 {
		return v
	}
	return defaultValue
}

func (r *dataRepo) orderEngine() (*xorm.Engine, error) {
	if r.data.order == nil {
		return nil, fmt.Errorf("order database not configured")
	}
	return r.data.order, nil
}
