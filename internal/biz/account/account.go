package account

import (
	"sync"

	"slot4d/internal/biz/store"

	"github.com/shopspring/decimal"
)

var (
	MinBet = decimal.RequireFromString("0.5")
	MaxBet = decimal.NewFromInt(100)

	tier1 = decimal.NewFromInt(5)
	tier2 = decimal.NewFromInt(10)

	stepHalf = decimal.RequireFromString("0.5")
	stepOne  = decimal.NewFromInt(1)
	stepTen  = decimal.NewFromInt(10)
)

// Direction 下注调整方向
type Direction int

const (
	Down Direction = -1
	Up   Direction = 1
)

// Account 玩家余额与当前下注
type Account struct {
	mu       sync.RWMutex
	prefs    *store.Prefs
	balance  decimal.Decimal
	bet      decimal.Decimal
	lastWin  decimal.Decimal
	totalWin decimal.Decimal
	bypass   bool
}

// New 读取持久化的余额与下注；没有记录时使用 starting
func New(prefs *store.Prefs, starting decimal.Decimal) *Account {
	if prefs == nil {
		prefs = store.NewMemoryPrefs()
	}
	a := &Account{
		prefs:    prefs,
		balance:  nonNegative(starting),
		bet:      MinBet,
		lastWin:  decimal.Zero,
		totalWin: decimal.Zero,
	}
	if d, err := decimal.NewFromString(prefs.GetString(store.KeyBalance, "")); err == nil {
		a.balance = nonNegative(d)
	}
	if d, err := decimal.NewFromString(prefs.GetString(store.KeyCurrentBet, "")); err == nil {
		a.bet = clampBet(d)
	}
	return a
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

func clampBet(d decimal.Decimal) decimal.Decimal {
	if d.LessThan(MinBet) {
		return MinBet
	}
	if d.GreaterThan(MaxBet) {
		return MaxBet
	}
	return d
}

func (a *Account) saveBalance() {
	a.prefs.SetString(store.KeyBalance, a.balance.String())
}

func (a *Account) saveBet() {
	a.prefs.SetString(store.KeyCurrentBet, a.bet.String())
}

// incrementStep 0.5 (<5)、1 (<10)、10
func incrementStep(bet decimal.Decimal) decimal.Decimal {
	switch {
	case bet.LessThan(tier1):
		return stepHalf
	case bet.LessThan(tier2):
		return stepOne
	default:
		return stepTen
	}
}

// decrementStep 按调整前的下注取步长：10 (>10)、1 (>5)、0.5 (>0.5)
func decrementStep(bet decimal.Decimal) decimal.Decimal {
	switch {
	case bet.GreaterThan(tier2):
		return stepTen
	case bet.GreaterThan(tier1):
		return stepOne
	case bet.GreaterThan(MinBet):
		return stepHalf
	default:
		return decimal.Zero
	}
}

// Increase 增加下注；超过上限或余额时拒绝
func (a *Account) Increase() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	next := a.bet.Add(incrementStep(a.bet))
	if next.GreaterThan(MaxBet) || next.GreaterThan(a.balance) {
		return false
	}
	a.bet = next
	a.saveBet()
	return true
}

// Decrease 减少下注；低于最小下注时拒绝
func (a *Account) Decrease() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	step := decrementStep(a.bet)
	if step.IsZero() {
		return false
	}
	next := a.bet.Sub(step)
	if next.LessThan(MinBet) {
		return false
	}
	a.bet = next
	a.saveBet()
	return true
}

// Adjust 按方向调整下注
func (a *Account) Adjust(d Direction) bool {
	if d == Up {
		return a.Increase()
	}
	return a.Decrease()
}

// CanSpin 余额足够或处于免扣费模式
func (a *Account) CanSpin() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.bypass {
		return true
	}
	return a.bet.GreaterThanOrEqual(MinBet) && a.balance.GreaterThanOrEqual(a.bet)
}

// PlaceBet 扣除下注并返回；余额不足返回 0 且不改变余额，免扣费模式下直接返回当前下注
func (a *Account) PlaceBet() decimal.Decimal {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.totalWin = decimal.Zero
	if a.bet.GreaterThanOrEqual(MinBet) && a.balance.GreaterThanOrEqual(a.bet) {
		a.balance = a.balance.Sub(a.bet)
		a.saveBalance()
		return a.bet
	}
	if a.bypass {
		return a.bet
	}
	return decimal.Zero
}

// ApplyWinnings 派彩并返还本金：余额 += amount + bet
func (a *Account) ApplyWinnings(amount decimal.Decimal) {
	a.mu.Lock()
	defer a.mu.Unlock()
	total := amount.Add(a.bet)
	a.balance = a.balance.Add(total)
	a.lastWin = amount
	a.totalWin = total
	a.saveBalance()
}

// TopUp 充值，仅接受正数
func (a *Account) TopUp(amount decimal.Decimal) bool {
	if !amount.IsPositive() {
		return false
	}
	a.mu.Lock()
	a.balance = a.balance.Add(amount)
	a.saveBalance()
	a.mu.Unlock()
	return true
}

func (a *Account) SetBalance(amount decimal.Decimal) {
	a.mu.Lock()
	a.balance = nonNegative(amount)
	a.saveBalance()
	a.mu.Unlock()
}

func (a *Account) SetBet(amount decimal.Decimal) {
	a.mu.Lock()
	a.bet = clampBet(amount)
	a.saveBet()
	a.mu.Unlock()
}

// SetBypass 免扣费模式：余额不足时仍可按当前下注开局
func (a *Account) SetBypass(on bool) {
	a.mu.Lock()
	a.bypass = on
	a.mu.Unlock()
}

func (a *Account) Bypass() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.bypass
}

func (a *Account) Balance() decimal.Decimal {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.balance
}

func (a *Account) Bet() decimal.Decimal {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.bet
}

func (a *Account) LastWin() decimal.Decimal {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lastWin
}

func (a *Account) TotalWin() decimal.Decimal {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.totalWin
}
