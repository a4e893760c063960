package data

import (
	"context"
	"strconv"
	"strings"

	"slot4d/internal/biz/game"
)

// SpinOrder 每局一条记录
type SpinOrder struct {
	Id          int64   `xorm:"pk autoincr"`
	PlayerId    string  `xorm:"varchar(64) notnull index(idx_player_id)"`
	Spun        string  `xorm:"char(4) notnull"`
	Bet         float64 `xorm:"decimal(18,2) notnull"`
	Win         float64 `xorm:"decimal(18,2) notnull"`
	Balance     float64 `xorm:"decimal(18,2) notnull"`
	BestMatch   int     `xorm:"tinyint notnull"`
	Hits        int     `xorm:"tinyint notnull"`
	JackpotDraw bool    `xorm:"notnull"`
	JackpotHit  bool    `xorm:"notnull"`
	Forced      bool    `xorm:"notnull"`
	KillDigits  string  `xorm:"varchar(32)"`
	Adjustment  string  `xorm:"varchar(64)"`
	CreatedAt   int64   `xorm:"notnull index(idx_player_id)"`
}

func (SpinOrder) TableName() string { return "spin_order" }

func newSpinOrder(playerID string, r *game.SpinResult) *SpinOrder {
	o := &SpinOrder{
		PlayerId:    playerID,
		Spun:        r.Spun,
		Bet:         r.Placed.InexactFloat64(),
		Win:         r.Total.InexactFloat64(),
		Balance:     r.Balance.InexactFloat64(),
		BestMatch:   r.BestMatch,
		Hits:        len(r.Hits),
		JackpotDraw: r.JackpotDraw,
		JackpotHit:  r.JackpotHit,
		Forced:      r.Forced,
		KillDigits:  joinDigits(r.KillDigits),
		CreatedAt:   r.Time.Unix(),
	}
	if r.Adjustment != nil {
		o.Adjustment = r.Adjustment.Reason
	}
	return o
}

func joinDigits(ds []int) string {
	parts := make([]string, len(ds))
	for i, d := range ds {
		parts[i] = strconv.Itoa(d)
	}
	return strings.Join(parts, ",")
}

// RecordSpin 写入订单库；未配置订单库时跳过
func (r *dataRepo) RecordSpin(ctx context.Context, playerID string, res *game.SpinResult) error {
	if r.data.order == nil {
		return nil
	}
	_, err := r.data.order.Context(ctx).Insert(newSpinOrder(playerID, res))
	return err
}
