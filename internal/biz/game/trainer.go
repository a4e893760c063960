package game

import (
	"context"

	"slot4d/internal/biz/trainer"

	"github.com/shopspring/decimal"
)

// TrainerSettings 训练器批量设置，nil 字段不修改
type TrainerSettings struct {
	Control            *bool
	Mode               *trainer.ShuffleMode
	NextNumber         *string
	TestBet            *decimal.Decimal
	IgnoreFund         *bool
	Balance            *decimal.Decimal
	KillDigits         []int
	KillEnabled        *bool
	KillAutomated      *bool
	TargetRTP          *float64
	ApplyKillToJackpot *bool
}

// ApplyTrainer 应用训练器设置
func (m *Machine) ApplyTrainer(ctx context.Context, s TrainerSettings) trainer.State {
	if s.Control != nil {
		m.trainer.SetControl(*s.Control)
	}
	// 设置号码会切到自定义模式，显式给出的 Mode 优先
	if s.NextNumber != nil {
		m.trainer.SetNextNumber(*s.NextNumber)
	}
	if s.Mode != nil {
		m.trainer.SetMode(*s.Mode)
	}
	if s.TestBet != nil {
		m.SetBet(ctx, m.trainer.SetTestBet(*s.TestBet))
	}
	if s.IgnoreFund != nil {
		m.SetBypassCredit(*s.IgnoreFund)
	}
	if s.Balance != nil {
		m.SetBalance(ctx, *s.Balance)
	}
	if s.KillDigits != nil {
		m.ForceKillDigits(s.KillDigits)
	}
	if s.KillEnabled != nil {
		m.kill.SetEnabled(*s.KillEnabled)
	}
	if s.KillAutomated != nil {
		m.kill.SetAutomated(*s.KillAutomated)
	}
	if s.TargetRTP != nil {
		m.kill.SetTargetRTP(*s.TargetRTP)
	}
	if s.ApplyKillToJackpot != nil {
		m.SetApplyKillToJackpot(*s.ApplyKillToJackpot)
	}
	return m.trainer.State()
}

// ForceKillDigits 手动指定杀号
func (m *Machine) ForceKillDigits(kill []int) {
	m.kill.SetKillDigits(kill)
	m.log.Infof("kill digits forced: %v", kill)
}

// SetBypassCredit 余额不足时也允许开局
func (m *Machine) SetBypassCredit(on bool) {
	m.trainer.SetIgnoreFund(on)
	m.account.SetBypass(on)
}

func (m *Machine) SetBalance(ctx context.Context, amount decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.account.SetBalance(amount)
	m.flush(ctx)
}

func (m *Machine) SetBet(ctx context.Context, amount decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.account.SetBet(amount)
	m.flush(ctx)
}

func (m *Machine) SetApplyKillToJackpot(on bool) {
	m.mu.Lock()
	m.applyKillToJackpot = on
	m.mu.Unlock()
}

// TrainerSpin 使用训练器的测试下注开一局
func (m *Machine) TrainerSpin(ctx context.Context) (*SpinResult, error) {
	bet := m.trainer.State().TestBet
	if !m.account.Bet().Equal(bet) {
		m.SetBet(ctx, bet)
	}
	return m.Spin(ctx)
}
