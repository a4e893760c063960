package game

import (
	"slot4d/internal/biz/autospin"
	"slot4d/internal/biz/killdigit"
	"slot4d/internal/biz/ledger"
	"slot4d/internal/biz/prize"
	"slot4d/internal/biz/store"
	"slot4d/internal/biz/trainer"

	"github.com/shopspring/decimal"
)

const maskedNumber = "****"

// Snapshot 机器只读状态
type Snapshot struct {
	PlayerID          string                   `json:"player_id"`
	Balance           decimal.Decimal          `json:"balance"`
	Bet               decimal.Decimal          `json:"bet"`
	LastWin           decimal.Decimal          `json:"last_win"`
	TotalWin          decimal.Decimal          `json:"total_win"`
	CanSpin           bool                     `json:"can_spin"`
	Blocked           bool                     `json:"blocked"`
	Jackpot           prize.JackpotRecord      `json:"jackpot"`
	Saved             [store.SavedSlots]string `json:"saved"`
	Special           []string                 `json:"special"`
	Consolation       []string                 `json:"consolation"`
	SpinsSinceRefresh int                      `json:"spins_since_refresh"`
	KillDigits        killdigit.State          `json:"kill_digits"`
	Lifetime          ledger.Stats             `json:"lifetime"`
	Session           ledger.Stats             `json:"session"`
	RTP               float64                  `json:"rtp"`
	SessionRTP        float64                  `json:"session_rtp"`
	HitFrequency      float64                  `json:"hit_frequency"`
	AutoSpin          autospin.Status          `json:"auto_spin"`
	Trainer           trainer.State            `json:"trainer"`
	LastPresentation  *WinEvent                `json:"last_presentation,omitempty"`
}

// Snapshot admin 为 false 时隐藏头奖号码
func (m *Machine) Snapshot(admin bool) Snapshot {
	jp := m.prizes.Jackpot()
	if !admin {
		jp.Number = maskedNumber
	}
	special, consolation := m.prizes.Pools()
	s := Snapshot{
		PlayerID:          m.id,
		Balance:           m.account.Balance(),
		Bet:               m.account.Bet(),
		LastWin:           m.account.LastWin(),
		TotalWin:          m.account.TotalWin(),
		CanSpin:           m.CanSpin(),
		Blocked:           m.presenter.Blocked(),
		Jackpot:           jp,
		Saved:             m.prizes.Saved(),
		Special:           special,
		Consolation:       consolation,
		SpinsSinceRefresh: m.prizes.SpinsSinceRefresh(),
		KillDigits:        m.kill.State(),
		Lifetime:          m.ledger.Lifetime(),
		Session:           m.ledger.Session(),
		RTP:               m.ledger.CurrentRTP(),
		SessionRTP:        m.ledger.SessionRTP(),
		HitFrequency:      m.ledger.HitFrequency(),
		AutoSpin:          m.auto.Status(),
		Trainer:           m.trainer.State(),
	}
	if tp, ok := m.presenter.(*TimedPresenter); ok {
		s.LastPresentation = tp.LastWin()
	}
	return s
}
