package game

import (
	"sync"
	"time"

	"slot4d/internal/biz/outcome"

	"github.com/shopspring/decimal"
)

// Presenter 展示层回调
type Presenter interface {
	OnHit(hit outcome.Hit)
	ShowWin(total decimal.Decimal, epic, jackpot bool)
	Busy() bool
	Blocked() bool
}

type NopPresenter struct{}

func (NopPresenter) OnHit(outcome.Hit)                   {}
func (NopPresenter) ShowWin(decimal.Decimal, bool, bool) {}
func (NopPresenter) Busy() bool                          { return false }
func (NopPresenter) Blocked() bool                       { return false }

// WinEvent 一次大奖展示
type WinEvent struct {
	Total   decimal.Decimal `json:"total"`
	Epic    bool            `json:"epic"`
	Jackpot bool            `json:"jackpot"`
	Hits    []outcome.Hit   `json:"hits"`
	At      time.Time       `json:"at"`
}

const maxPendingHits = 64

// TimedPresenter 远端展示层的服务端代理：大奖弹窗持续到 Done 或超时
type TimedPresenter struct {
	mu      sync.Mutex
	timeout time.Duration
	now     func() time.Time
	until   time.Time
	pending []outcome.Hit
	last    *WinEvent
}

func NewTimedPresenter(timeout time.Duration) *TimedPresenter {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &TimedPresenter{timeout: timeout, now: time.Now}
}

func (p *TimedPresenter) OnHit(hit outcome.Hit) {
	p.mu.Lock()
	p.pending = append(p.pending, hit)
	if len(p.pending) > maxPendingHits {
		p.pending = p.pending[len(p.pending)-maxPendingHits:]
	}
	p.mu.Unlock()
}

func (p *TimedPresenter) ShowWin(total decimal.Decimal, epic, jackpot bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.now()
	p.last = &WinEvent{Total: total, Epic: epic, Jackpot: jackpot, Hits: p.pending, At: now}
	p.pending = nil
	p.until = now.Add(p.timeout)
}

func (p *TimedPresenter) Busy() bool { return false }

func (p *TimedPresenter) Blocked() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.now().Before(p.until)
}

// Done 提前结束弹窗
func (p *TimedPresenter) Done() {
	p.mu.Lock()
	p.until = time.Time{}
	p.mu.Unlock()
}

// LastWin 最近一次大奖展示
func (p *TimedPresenter) LastWin() *WinEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}
