package killdigit

import (
	"slices"
	"testing"

	"slot4d/internal/biz/digits"
)

type fixedRTP float64

func (f *fixedRTP) CurrentRTP() float64 { return float64(*f) }

func newTestController(rtp *fixedRTP, seed uint64, mutate func(*Config)) *Controller {
	c := DefaultConfig()
	c.MinSpinsForAdjust = 0
	if mutate != nil {
		mutate(&c)
	}
	return New(c, rtp, digits.NewSource(seed), nil)
}

func spin(k *Controller, n int) {
	for i := 0; i < n; i++ {
		k.CountSpin()
	}
}

func TestInitializePicksTwo(t *testing.T) {
	rtp := fixedRTP(0.95)
	k := newTestController(&rtp, 1, nil)
	k.Initialize()
	kill := k.KillDigits()
	if len(kill) != 2 {
		t.Fatalf("初始杀号数 = %d, want 2", len(kill))
	}
	if !k.Enabled() {
		t.Errorf("自动模式初始化后应开启杀号")
	}
	if len(k.Allowed()) != 8 {
		t.Errorf("allowed = %v", k.Allowed())
	}
}

func TestTriggerPriorityRTPFirst(t *testing.T) {
	rtp := fixedRTP(1.5)
	k := newTestController(&rtp, 2, nil)
	k.Initialize()
	spin(k, 60)
	adj, ok := k.OnOutcome(9000, false, "1234")
	if !ok {
		t.Fatalf("应触发调整")
	}
	if adj.Reason != ReasonRTPHigh {
		t.Errorf("reason = %q, want %q", adj.Reason, ReasonRTPHigh)
	}
	if len(adj.KillDigits) != 1 {
		t.Errorf("RTP 偏高应减少杀号: %v", adj.KillDigits)
	}
	if k.State().SpinsSinceAdjustment != 0 {
		t.Errorf("调整后计数应归零")
	}
}

func TestRTPLowGrowsUpToMax(t *testing.T) {
	rtp := fixedRTP(0.2)
	k := newTestController(&rtp, 3, nil)
	k.Initialize()
	for i := 0; i < 10; i++ {
		k.CountSpin()
		adj, ok := k.OnOutcome(0, false, "0000")
		if !ok || adj.Reason != ReasonRTPLow {
			t.Fatalf("第 %d 次应为 RTP too low: %+v", i, adj)
		}
	}
	if n := len(k.KillDigits()); n != 4 {
		t.Errorf("杀号数 = %d, want 4 (max)", n)
	}
}

func TestCycleCheck(t *testing.T) {
	rtp := fixedRTP(0.95)
	k := newTestController(&rtp, 4, nil)
	k.Initialize()
	spin(k, 49)
	if _, ok := k.OnOutcome(0, false, "1111"); ok {
		t.Fatalf("49 局不应触发")
	}
	k.CountSpin()
	adj, ok := k.OnOutcome(0, false, "1111")
	if !ok || adj.Reason != ReasonCycle {
		t.Fatalf("50 局应触发 Cycle check: %+v %v", adj, ok)
	}
	if n := len(adj.KillDigits); n < 1 || n > 4 {
		t.Errorf("随机杀号数应在 [1,4]: %d", n)
	}
}

func TestFourDigitTriggerOnEvenCount(t *testing.T) {
	rtp := fixedRTP(0.95)
	k := newTestController(&rtp, 5, nil)
	k.Initialize()
	spin(k, 2)
	if _, ok := k.OnOutcome(100, true, "1234"); ok {
		t.Fatalf("第一次 4 位中奖（奇数）不应触发")
	}
	adj, ok := k.OnOutcome(100, true, "5678")
	if !ok || adj.Reason != ReasonFourDigit {
		t.Fatalf("第二次 4 位中奖应触发: %+v", adj)
	}
	st := k.State()
	if len(st.RecentWinDigits) != 8 {
		t.Errorf("近期中奖数字 = %v", st.RecentWinDigits)
	}
	for _, d := range adj.KillDigits {
		if slices.Contains(st.RecentWinDigits, d) {
			t.Errorf("杀号 %d 不应来自近期中奖数字", d)
		}
	}
}

func TestBigWinTrigger(t *testing.T) {
	rtp := fixedRTP(0.95)
	k := newTestController(&rtp, 6, nil)
	k.Initialize()
	spin(k, 1)
	if _, ok := k.OnOutcome(5000, false, "1234"); ok {
		t.Fatalf("5000 不超过阈值")
	}
	adj, ok := k.OnOutcome(5000.5, false, "1234")
	if !ok || adj.Reason != ReasonBigWin {
		t.Fatalf("大奖应触发: %+v", adj)
	}
}

func TestMinSpinsGate(t *testing.T) {
	rtp := fixedRTP(3)
	k := newTestController(&rtp, 7, func(c *Config) { c.MinSpinsForAdjust = 20 })
	k.Initialize()
	spin(k, 19)
	if _, ok := k.OnOutcome(0, false, "1234"); ok {
		t.Fatalf("未达到最少局数不应调整")
	}
	k.CountSpin()
	if _, ok := k.OnOutcome(0, false, "1234"); !ok {
		t.Fatalf("达到最少局数应调整")
	}
}

func TestNeverKillsAllDigits(t *testing.T) {
	rtp := fixedRTP(0.1)
	k := newTestController(&rtp, 8, func(c *Config) { c.MaxKillDigits = 9 })
	k.Initialize()
	for i := 0; i < 200; i++ {
		k.CountSpin()
		k.OnOutcome(0, i%3 == 0, "0123")
		if len(k.Allowed()) == 0 {
			t.Fatalf("可用数字为空: kill=%v", k.KillDigits())
		}
	}
}

func TestRecentDigitsExhaustCandidates(t *testing.T) {
	rtp := fixedRTP(0.95)
	k := newTestController(&rtp, 9, nil)
	// 近期中奖覆盖 0-9，候选为空时杀号数为 0
	k.OnOutcome(0, true, "0123")
	k.OnOutcome(0, true, "4567")
	k.OnOutcome(0, true, "8901")
	k.Initialize()
	if n := len(k.KillDigits()); n != 0 {
		t.Errorf("候选不足时杀号应为空: %v", k.KillDigits())
	}
}

func TestManualOverrideAndDisable(t *testing.T) {
	rtp := fixedRTP(0.95)
	k := newTestController(&rtp, 10, nil)
	k.SetKillDigits(digits.AllDigits)
	if len(k.Allowed()) != 0 {
		t.Errorf("手动覆盖全部数字后 Allowed 应为空（由生成器回退）")
	}
	k.SetEnabled(false)
	if len(k.Allowed()) != 10 {
		t.Errorf("关闭杀号后应允许全部数字")
	}
	k.SetTargetRTP(2)
	if k.State().TargetRTP != 0.99 {
		t.Errorf("target rtp 应被限制为 0.99")
	}
}
