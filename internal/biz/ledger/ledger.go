package ledger

import (
	"sync"

	"slot4d/internal/biz/store"

	"github.com/shopspring/decimal"
)

// Stats 投注与派彩统计
type Stats struct {
	Wagered  decimal.Decimal `json:"wagered"`
	Won      decimal.Decimal `json:"won"`
	Spins    int64           `json:"spins"`
	Wins     int64           `json:"wins"`
	Jackpots int64           `json:"jackpots"`
}

// RTP Won/Wagered，未下注时为 0
func (s Stats) RTP() float64 {
	if !s.Wagered.IsPositive() {
		return 0
	}
	return s.Won.Div(s.Wagered).InexactFloat64()
}

// HitFrequency Wins/Spins，未开局时为 0
func (s Stats) HitFrequency() float64 {
	if s.Spins <= 0 {
		return 0
	}
	return float64(s.Wins) / float64(s.Spins)
}

// Ledger 生命周期与本次会话的 RTP 账本
type Ledger struct {
	mu       sync.RWMutex
	prefs    *store.Prefs
	lifetime Stats
	session  Stats
}

// New 从 prefs 加载生命周期统计
func New(prefs *store.Prefs) *Ledger {
	if prefs == nil {
		prefs = store.NewMemoryPrefs()
	}
	l := &Ledger{prefs: prefs, session: zeroStats()}
	l.lifetime = Stats{
		Wagered:  loadDecimal(prefs, store.KeyTotalWagered),
		Won:      loadDecimal(prefs, store.KeyTotalWon),
		Spins:    prefs.GetInt(store.KeyTotalSpins, 0),
		Wins:     prefs.GetInt(store.KeyTotalWins, 0),
		Jackpots: prefs.GetInt(store.KeyTotalJackpots, 0),
	}
	return l
}

func zeroStats() Stats {
	return Stats{Wagered: decimal.Zero, Won: decimal.Zero}
}

func loadDecimal(prefs *store.Prefs, key string) decimal.Decimal {
	d, err := decimal.NewFromString(prefs.GetString(key, "0"))
	if err != nil || d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// RecordSpin 记录一次下注
func (l *Ledger) RecordSpin(bet decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lifetime.Wagered = l.lifetime.Wagered.Add(bet)
	l.lifetime.Spins++
	l.session.Wagered = l.session.Wagered.Add(bet)
	l.session.Spins++
	l.save()
}

// RecordWin 记录一次派彩
func (l *Ledger) RecordWin(amount decimal.Decimal, isJackpot bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lifetime.Won = l.lifetime.Won.Add(amount)
	l.lifetime.Wins++
	l.session.Won = l.session.Won.Add(amount)
	l.session.Wins++
	if isJackpot {
		l.lifetime.Jackpots++
		l.session.Jackpots++
	}
	l.save()
}

func (l *Ledger) save() {
	l.prefs.SetString(store.KeyTotalWagered, l.lifetime.Wagered.String())
	l.prefs.SetString(store.KeyTotalWon, l.lifetime.Won.String())
	l.prefs.SetInt(store.KeyTotalSpins, l.lifetime.Spins)
	l.prefs.SetInt(store.KeyTotalWins, l.lifetime.Wins)
	l.prefs.SetInt(store.KeyTotalJackpots, l.lifetime.Jackpots)
}

// CurrentRTP 生命周期 RTP
func (l *Ledger) CurrentRTP() float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.lifetime.RTP()
}

// SessionRTP 本次会话 RTP
func (l *Ledger) SessionRTP() float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.session.RTP()
}

// HitFrequency 生命周期命中率
func (l *Ledger) HitFrequency() float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.lifetime.HitFrequency()
}

func (l *Ledger) Lifetime() Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.lifetime
}

func (l *Ledger) Session() Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.session
}

func (l *Ledger) ResetSession() {
	l.mu.Lock()
	l.session = zeroStats()
	l.mu.Unlock()
}

// ResetAll 清空生命周期与会话统计
func (l *Ledger) ResetAll() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lifetime = zeroStats()
	l.session = zeroStats()
	l.save()
}
