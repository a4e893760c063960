package data

import (
	"context"
	"fmt"
	"time"

	"slot4d/internal/biz/chart"

	"github.com/go-kratos/kratos/v2/log"
)

const (
	orderUnit  = 1e4
	timeLayout = "2006-01-02 15:04:05"
	batchSize  = 50000
)

// QueryPlayerRTPPoints 按订单顺序累计玩家 RTP，分批读取并等距采样
func (r *dataRepo) QueryPlayerRTPPoints(ctx context.Context, playerID string) ([]chart.Point, error) {
	orderDB, err := r.orderEngine()
	if err != nil {
		return nil, err
	}
	if playerID == "" {
		return nil, fmt.Errorf("player_id is required")
	}

	type record struct {
		Id        int64   `xorm:"id"`
		Bet       float64 `xorm:"bet"`
		Win       float64 `xorm:"win"`
		CreatedAt int64   `xorm:"created_at"`
	}

	var (
		pts            []chart.Point
		cumBet, cumWin float64
		orders         int64
		lastID         int64
	)
	start := time.Now()
	for {
		var batch []record
		err := orderDB.Context(ctx).
			SQL("SELECT id, bet, win, created_at FROM spin_order WHERE player_id = ? AND id > ? ORDER BY id LIMIT ?",
				playerID, lastID, batchSize).
			Find(&batch)
		if err != nil {
			return nil, fmt.Errorf("query failed: %w", err)
		}
		if len(batch) == 0 {
			break
		}
		for _, rec := range batch {
			orders++
			lastID = rec.Id
			cumBet += rec.Bet
			cumWin += rec.Win
			rtp := 0.0
			if cumBet > 0 {
				rtp = cumWin / cumBet
			}
			pts = append(pts, chart.Point{
				X:    float64(orders) / orderUnit,
				Y:    rtp,
				Time: time.Unix(rec.CreatedAt, 0).In(time.Local).Format(timeLayout),
			})
		}
		if len(batch) < batchSize {
			break
		}
	}

	sampled := chart.Sample(pts, chart.SampleMax)
	log.Infof("player %s rtp points: orders=%d sampled=%d use=%v", playerID, orders, len(sampled), time.Since(start))
	return sampled, nil
}
