package outcome

import (
	"slot4d/internal/biz/digits"
	"slot4d/internal/biz/prize"

	"github.com/shopspring/decimal"
)

// Paytable 倍数与 4 位命中的固定奖金
type Paytable struct {
	TwoDigit   decimal.Decimal
	ThreeDigit decimal.Decimal
	Bonus      map[prize.Category]decimal.Decimal
}

// DefaultPaytable 2 位 ×2，3 位 ×12，4 位 ×12 + 固定奖金
func DefaultPaytable() Paytable {
	return Paytable{
		TwoDigit:   decimal.NewFromInt(2),
		ThreeDigit: decimal.NewFromInt(12),
		Bonus: map[prize.Category]decimal.Decimal{
			prize.Jackpot:     decimal.NewFromInt(8888),
			prize.First:       decimal.NewFromInt(8888),
			prize.Second:      decimal.NewFromInt(2000),
			prize.Third:       decimal.NewFromInt(1000),
			prize.Special:     decimal.NewFromInt(200),
			prize.Consolation: decimal.NewFromInt(60),
		},
	}
}

// Payout 单个目标的派彩
func (p Paytable) Payout(bet decimal.Decimal, match int, c prize.Category) decimal.Decimal {
	switch {
	case match < 2:
		return decimal.Zero
	case match == 2:
		return bet.Mul(p.TwoDigit)
	case match == 3:
		return bet.Mul(p.ThreeDigit)
	default:
		return bet.Mul(p.ThreeDigit).Add(p.Bonus[c])
	}
}

// Hit 一个命中的目标
type Hit struct {
	Category prize.Category  `json:"category"`
	Index    int             `json:"index"`
	Number   string          `json:"number"`
	MatchLen int             `json:"match_len"`
	Payout   decimal.Decimal `json:"payout"`
}

// Result 单局开奖结果
type Result struct {
	Spun       string          `json:"spun"`
	Bet        decimal.Decimal `json:"bet"`
	Hits       []Hit           `json:"hits"`
	Total      decimal.Decimal `json:"total"`
	BestMatch  int             `json:"best_match"`
	FourDigit  bool            `json:"four_digit"`
	JackpotHit bool            `json:"jackpot_hit"`
}

// Won 是否有派彩
func (r *Result) Won() bool {
	return r.Total.IsPositive()
}

// Minor 仅 2 位命中的小奖，不阻塞
func (r *Result) Minor() bool {
	return r.Won() && r.BestMatch == 2
}

// Blocking 3 位及以上命中，需要展示弹窗
func (r *Result) Blocking() bool {
	return r.BestMatch >= 3
}

// Epic 最佳命中为 4 位
func (r *Result) Epic() bool {
	return r.BestMatch == 4
}

// Engine 开奖比对与派彩计算
type Engine struct {
	pay Paytable
}

func NewEngine(pay Paytable) *Engine {
	if pay.Bonus == nil {
		pay = DefaultPaytable()
	}
	return &Engine{pay: pay}
}

func (e *Engine) Paytable() Paytable {
	return e.pay
}

// Evaluate 纯函数：逐个目标比对前缀，所有命中目标的派彩求和
func (e *Engine) Evaluate(spun string, bet decimal.Decimal, targets []prize.Target) Result {
	res := Result{Spun: spun, Bet: bet, Total: decimal.Zero}
	for _, t := range targets {
		n := digits.PrefixMatch(spun, t.Number)
		if n < 2 {
			continue
		}
		amount := e.pay.Payout(bet, n, t.Category)
		res.Hits = append(res.Hits, Hit{
			Category: t.Category,
			Index:    t.Index,
			Number:   t.Number,
			MatchLen: n,
			Payout:   amount,
		})
		res.Total = res.Total.Add(amount)
		res.BestMatch = max(res.BestMatch, n)
		if n == digits.Length {
			res.FourDigit = true
			if t.Category == prize.Jackpot {
				res.JackpotHit = true
			}
		}
	}
	return res
}

// Registry Settle 依赖的奖池能力
type Registry interface {
	Targets() []prize.Target
	ConsumeJackpot() bool
}

// Settle 以当前目标计算结果；命中头奖时消费，已使用的头奖不在目标中，因此只会派发一次
func (e *Engine) Settle(spun string, bet decimal.Decimal, r Registry) Result {
	res := e.Evaluate(spun, bet, r.Targets())
	if res.JackpotHit {
		r.ConsumeJackpot()
	}
	return res
}
