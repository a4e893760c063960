package data

import (
	"context"
	"fmt"
	"time"

	"github.com/go-kratos/kratos/v2/errors"
)

// NextTaskID Redis Hash slot4d-sim:count:YYYYMMDD，过期为次日 0 点；未配置 Redis 时使用进程内计数
func (r *dataRepo) NextTaskID(ctx context.Context) (string, error) {
	now := time.Now()
	date := now.Format("20060102")
	if r.data.rdb == nil {
		return fmt.Sprintf("%s-%d", date, r.seq.Add(1)), nil
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	key := fmt.Sprintf("slot4d-sim:count:%s", date)
	count, err := r.data.rdb.HIncrBy(ctx, key, "sim", 1).Result()
	if err != nil {
		return "", errors.Newf(500, "REDIS_COUNTER_FAILED", "redis counter: %v", err)
	}

	if count == 1 {
		tomorrow := now.AddDate(0, 0, 1)
		midnight := time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), 0, 0, 0, 0, now.Location())
		_ = r.data.rdb.ExpireAt(ctx, key, midnight).Err()
	}

	return fmt.Sprintf("%s-%d", date, count), nil
}
