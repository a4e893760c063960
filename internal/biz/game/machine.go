package game

import (
	"context"
	"sync"
	"time"

	"slot4d/internal/biz/account"
	"slot4d/internal/biz/autospin"
	"slot4d/internal/biz/digits"
	"slot4d/internal/biz/killdigit"
	"slot4d/internal/biz/ledger"
	"slot4d/internal/biz/outcome"
	"slot4d/internal/biz/prize"
	"slot4d/internal/biz/store"
	"slot4d/internal/biz/trainer"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/shopspring/decimal"
)

var (
	ErrInsufficientBalance = errors.New(400, "INSUFFICIENT_BALANCE", "balance is not enough for the current bet")
	ErrGameplayBlocked     = errors.New(409, "GAMEPLAY_BLOCKED", "a win presentation is still showing")
	ErrBetRejected         = errors.New(400, "BET_REJECTED", "bet cannot be changed in that direction")
	ErrInvalidAmount       = errors.New(400, "INVALID_AMOUNT", "amount must be positive")
)

// Config 单台机器参数
type Config struct {
	KillDigit          killdigit.Config
	Prize              prize.Config
	Paytable           outcome.Paytable
	StartingCredit     decimal.Decimal
	TopUpAmount        decimal.Decimal
	AutoSpinPause      time.Duration
	ApplyKillToJackpot bool
	Seed               uint64
}

func DefaultConfig() Config {
	return Config{
		KillDigit:          killdigit.DefaultConfig(),
		Prize:              prize.DefaultConfig(),
		Paytable:           outcome.DefaultPaytable(),
		StartingCredit:     decimal.Zero,
		TopUpAmount:        decimal.NewFromInt(100),
		AutoSpinPause:      autospin.DefaultPause,
		ApplyKillToJackpot: true,
	}
}

// OrderRecorder 记录每局结果
type OrderRecorder interface {
	RecordSpin(ctx context.Context, playerID string, r *SpinResult) error
}

type NopRecorder struct{}

func (NopRecorder) RecordSpin(context.Context, string, *SpinResult) error { return nil }

// SpinResult 一局的完整结果
type SpinResult struct {
	outcome.Result
	PlayerID       string                `json:"player_id"`
	Placed         decimal.Decimal       `json:"placed"`
	Balance        decimal.Decimal       `json:"balance"`
	KillDigits     []int                 `json:"kill_digits"`
	PoolsRefreshed bool                  `json:"pools_refreshed"`
	JackpotDraw    bool                  `json:"jackpot_draw"`
	Forced         bool                  `json:"forced"`
	Adjustment     *killdigit.Adjustment `json:"adjustment,omitempty"`
	Time           time.Time             `json:"time"`
}

type Option func(*Machine)

func WithPresenter(p Presenter) Option {
	return func(m *Machine) {
		if p != nil {
			m.presenter = p
		}
	}
}

func WithOrderRecorder(r OrderRecorder) Option {
	return func(m *Machine) {
		if r != nil {
			m.orders = r
		}
	}
}

func WithLogger(logger log.Logger) Option {
	return func(m *Machine) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// Machine 单个玩家的出号、派彩与自动旋转
type Machine struct {
	mu     sync.Mutex
	id     string
	c      Config
	prefs  *store.Prefs
	rnd    digits.Source
	gen    *digits.Generator
	logger log.Logger
	log    *log.Helper

	applyKillToJackpot bool

	kill      *killdigit.Controller
	prizes    *prize.Registry
	engine    *outcome.Engine
	ledger    *ledger.Ledger
	account   *account.Account
	trainer   *trainer.Trainer
	auto      *autospin.Sequencer
	presenter Presenter
	orders    OrderRecorder
}

// NewMachine 基于 prefs 组装一台机器
func NewMachine(id string, c Config, prefs *store.Prefs, opts ...Option) *Machine {
	if prefs == nil {
		prefs = store.NewMemoryPrefs()
	}
	m := &Machine{
		id:                 id,
		c:                  c,
		prefs:              prefs,
		logger:             log.GetLogger(),
		presenter:          NopPresenter{},
		orders:             NopRecorder{},
		applyKillToJackpot: c.ApplyKillToJackpot,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.log = log.NewHelper(log.With(m.logger, "player", id))
	m.rnd = digits.NewSource(c.Seed)
	m.gen = digits.NewGenerator(m.rnd)
	m.ledger = ledger.New(prefs)
	m.kill = killdigit.New(c.KillDigit, m.ledger, m.rnd, m.logger)
	if c.KillDigit.Automated {
		m.kill.Initialize()
	}
	m.prizes = prize.New(c.Prize, prefs, m.gen)
	m.engine = outcome.NewEngine(c.Paytable)
	m.account = account.New(prefs, c.StartingCredit)
	m.trainer = trainer.New(m.gen)
	m.auto = autospin.New(autoSpinner{m}, m.presenter, c.AutoSpinPause, m.logger)
	return m
}

func (m *Machine) ID() string { return m.id }

// CanSpin 展示阻塞时为 false，否则取决于余额
func (m *Machine) CanSpin() bool {
	if m.presenter.Blocked() {
		return false
	}
	return m.account.CanSpin()
}

// Busy 展示层是否仍在播放
func (m *Machine) Busy() bool {
	return m.presenter.Busy()
}

// Spin 执行一局；授权失败时不改变任何状态
func (m *Machine) Spin(ctx context.Context) (*SpinResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.presenter.Blocked() {
		return nil, ErrGameplayBlocked
	}
	if !m.account.CanSpin() {
		return nil, ErrInsufficientBalance
	}

	refreshed := m.prizes.CheckAndCycle()
	placed := m.account.PlaceBet()
	if !placed.IsPositive() {
		return nil, ErrInsufficientBalance
	}

	var killUsed []int
	if m.kill.Enabled() {
		killUsed = m.kill.KillDigits()
	}
	spun, fromJackpot, forced := m.generate()
	m.kill.CountSpin()
	m.ledger.RecordSpin(placed)

	res := m.engine.Settle(spun, placed, m.prizes)
	for _, h := range res.Hits {
		m.presenter.OnHit(h)
	}
	if res.Won() {
		if res.Blocking() {
			m.presenter.ShowWin(res.Total, res.Epic(), res.JackpotHit)
		}
		m.account.ApplyWinnings(res.Total)
		m.ledger.RecordWin(res.Total, res.JackpotHit)
	}
	if res.JackpotHit {
		m.log.Infof("jackpot hit: number=%s bet=%s total=%s", spun, placed, res.Total)
	}

	sr := &SpinResult{
		Result:         res,
		PlayerID:       m.id,
		Placed:         placed,
		Balance:        m.account.Balance(),
		KillDigits:     killUsed,
		PoolsRefreshed: refreshed,
		JackpotDraw:    fromJackpot,
		Forced:         forced,
		Time:           time.Now(),
	}
	if adj, ok := m.kill.OnOutcome(res.Total.InexactFloat64(), res.FourDigit, spun); ok {
		sr.Adjustment = &adj
	}
	m.prizes.OnSpinCompleted()

	m.flush(ctx)
	if err := m.orders.RecordSpin(ctx, m.id, sr); err != nil {
		m.log.Warnf("record spin order: %v", err)
	}
	return sr, nil
}

// generate 依次尝试：训练器、头奖抽取、杀号约束、普通随机
func (m *Machine) generate() (number string, fromJackpot, forced bool) {
	if n, ok := m.trainer.Next(m.prizes.Saved()); ok {
		return n, false, true
	}
	jp := m.prizes.Jackpot()
	killOn := m.kill.Enabled()
	if !jp.Used && digits.Valid(jp.Number) && m.rnd.Float64()*100 < jp.Chance {
		if m.applyKillToJackpot && killOn && digits.Contains(jp.Number, m.kill.KillDigits()) {
			return m.gen.Generate(m.kill.Allowed()), false, false
		}
		return jp.Number, true, false
	}
	if killOn {
		return m.gen.Generate(m.kill.Allowed()), false, false
	}
	for {
		if n := m.gen.Random(); n != jp.Number {
			return n, false, false
		}
	}
}

// Flush 持久化未写入的状态，退出前调用
func (m *Machine) Flush(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.prefs.Flush(ctx)
}

func (m *Machine) flush(ctx context.Context) {
	if err := m.prefs.Flush(ctx); err != nil {
		m.log.Warnf("flush prefs: %v", err)
	}
}

// AdjustBet 展示阻塞期间不允许调整
func (m *Machine) AdjustBet(dir account.Direction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.presenter.Blocked() {
		return ErrGameplayBlocked
	}
	if !m.account.Adjust(dir) {
		return ErrBetRejected
	}
	m.flush(context.Background())
	return nil
}

// TopUp amount 为零时使用配置的充值额
func (m *Machine) TopUp(ctx context.Context, amount decimal.Decimal) error {
	if amount.IsZero() {
		amount = m.c.TopUpAmount
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.account.TopUp(amount) {
		return ErrInvalidAmount
	}
	m.flush(ctx)
	return nil
}

func (m *Machine) SetSaved(ctx context.Context, i int, number string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.prizes.SetSaved(i, number); err != nil {
		return err
	}
	m.flush(ctx)
	return nil
}

func (m *Machine) ClearSaved(ctx context.Context, i int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.prizes.ClearSaved(i); err != nil {
		return err
	}
	m.flush(ctx)
	return nil
}

// SetJackpot 管理员设置头奖
func (m *Machine) SetJackpot(ctx context.Context, number string, chance float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.prizes.SetJackpot(number, chance); err != nil {
		return err
	}
	m.flush(ctx)
	m.log.Infof("jackpot updated by admin: chance=%.2f", chance)
	return nil
}

func (m *Machine) ResetJackpot(ctx context.Context) prize.JackpotRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	jp := m.prizes.ResetJackpot()
	m.flush(ctx)
	return jp
}

// ResetStats 清空 RTP 统计
func (m *Machine) ResetStats(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ledger.ResetAll()
	m.flush(ctx)
}

// PresentationDone 展示层通知弹窗结束
func (m *Machine) PresentationDone() {
	if d, ok := m.presenter.(interface{ Done() }); ok {
		d.Done()
	}
}

func (m *Machine) AutoSpin() *autospin.Sequencer { return m.auto }

func (m *Machine) Ledger() *ledger.Ledger { return m.ledger }

func (m *Machine) Account() *account.Account { return m.account }

func (m *Machine) Prizes() *prize.Registry { return m.prizes }

func (m *Machine) KillDigits() *killdigit.Controller { return m.kill }

func (m *Machine) Trainer() *trainer.Trainer { return m.trainer }

// autoSpinner 适配 autospin.Spinner
type autoSpinner struct{ m *Machine }

func (a autoSpinner) CanSpin() bool { return a.m.CanSpin() }
func (a autoSpinner) Busy() bool    { return a.m.Busy() }
func (a autoSpinner) Spin() error {
	_, err := a.m.Spin(context.Background())
	return err
}
