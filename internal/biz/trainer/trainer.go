package trainer

import (
	"strings"
	"sync"

	"slot4d/internal/biz/digits"

	"github.com/shopspring/decimal"
)

// ShuffleMode 受控出号方式
type ShuffleMode int

const (
	CustomNumber ShuffleMode = iota
	Random
	TwoDigitWin
	ThreeDigitWin
	FourDigitWin
)

var modeNames = [...]string{"custom", "random", "two_digit_win", "three_digit_win", "four_digit_win"}

func (m ShuffleMode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return "unknown"
	}
	return modeNames[m]
}

// ParseMode 解析模式名，未知名称返回 false
func ParseMode(s string) (ShuffleMode, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, n := range modeNames {
		if n == s {
			return ShuffleMode(i), true
		}
	}
	return CustomNumber, false
}

var (
	minTestBet = decimal.RequireFromString("0.5")
	maxTestBet = decimal.NewFromInt(100)
)

// State 训练器状态快照
type State struct {
	Control    bool            `json:"control"`
	Mode       string          `json:"mode"`
	NextNumber string          `json:"next_number"`
	TestBet    decimal.Decimal `json:"test_bet"`
	IgnoreFund bool            `json:"ignore_fund"`
}

// Trainer 测试用出号控制；开启后每局都使用受控号码，直到关闭
type Trainer struct {
	mu      sync.Mutex
	gen     *digits.Generator
	control bool
	mode    ShuffleMode
	next    string
	testBet decimal.Decimal
	ignore  bool
}

func New(gen *digits.Generator) *Trainer {
	if gen == nil {
		gen = digits.NewGenerator(nil)
	}
	return &Trainer{gen: gen, next: "0000", testBet: minTestBet}
}

func (t *Trainer) SetControl(on bool) {
	t.mu.Lock()
	t.control = on
	t.mu.Unlock()
}

func (t *Trainer) Control() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.control
}

func (t *Trainer) SetMode(m ShuffleMode) {
	if m < CustomNumber || m > FourDigitWin {
		return
	}
	t.mu.Lock()
	t.mode = m
	t.mu.Unlock()
}

// SetNextNumber 清洗后保存，并切换到 CustomNumber
func (t *Trainer) SetNextNumber(s string) string {
	n := digits.Clean(s)
	t.mu.Lock()
	t.next = n
	t.mode = CustomNumber
	t.mu.Unlock()
	return n
}

// SetTestBet 测试下注，限制在 [0.5, 100]
func (t *Trainer) SetTestBet(bet decimal.Decimal) decimal.Decimal {
	if bet.LessThan(minTestBet) {
		bet = minTestBet
	}
	if bet.GreaterThan(maxTestBet) {
		bet = maxTestBet
	}
	t.mu.Lock()
	t.testBet = bet
	t.mu.Unlock()
	return bet
}

func (t *Trainer) SetIgnoreFund(on bool) {
	t.mu.Lock()
	t.ignore = on
	t.mu.Unlock()
}

func (t *Trainer) IgnoreFund() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ignore
}

// Next 受控开启时返回下一局号码
func (t *Trainer) Next(saved [3]string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.control {
		return "", false
	}
	switch t.mode {
	case Random:
		return t.gen.Random(), true
	case TwoDigitWin:
		return t.winning(saved, 2), true
	case ThreeDigitWin:
		return t.winning(saved, 3), true
	case FourDigitWin:
		return t.winning(saved, 4), true
	default:
		return t.next, true
	}
}

// winning 取第一个有效保存号码的前 k 位，其余随机；没有保存号码时整体随机
func (t *Trainer) winning(saved [3]string, k int) string {
	for _, s := range saved {
		if digits.Valid(s) {
			return t.gen.RandomSuffix(s[:k])
		}
	}
	return t.gen.Random()
}

func (t *Trainer) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return State{
		Control:    t.control,
		Mode:       t.mode.String(),
		NextNumber: t.next,
		TestBet:    t.testBet,
		IgnoreFund: t.ignore,
	}
}
