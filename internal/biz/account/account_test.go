package account

import (
	"testing"

	"slot4d/internal/biz/store"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestPlaceBetInsufficient(t *testing.T) {
	a := New(nil, d("0.4"))
	if a.CanSpin() {
		t.Errorf("余额 0.4 不应允许下注 0.5")
	}
	if got := a.PlaceBet(); !got.IsZero() {
		t.Errorf("PlaceBet = %s, want 0", got)
	}
	if !a.Balance().Equal(d("0.4")) {
		t.Errorf("余额不应变化: %s", a.Balance())
	}
}

func TestPlaceBetAndWinnings(t *testing.T) {
	a := New(nil, d("10"))
	if got := a.PlaceBet(); !got.Equal(d("0.5")) {
		t.Fatalf("PlaceBet = %s", got)
	}
	if !a.Balance().Equal(d("9.5")) {
		t.Fatalf("balance = %s", a.Balance())
	}
	a.ApplyWinnings(d("6"))
	if !a.Balance().Equal(d("16")) {
		t.Errorf("balance = %s, want 16", a.Balance())
	}
	if !a.LastWin().Equal(d("6")) || !a.TotalWin().Equal(d("6.5")) {
		t.Errorf("last=%s total=%s", a.LastWin(), a.TotalWin())
	}
	a.PlaceBet()
	if !a.TotalWin().IsZero() {
		t.Errorf("下注时应清零总赢显示")
	}
}

func TestIncreaseTiers(t *testing.T) {
	a := New(nil, d("1000"))
	a.SetBet(d("4.5"))
	steps := []string{"5", "6", "7", "8", "9", "10", "20"}
	for _, want := range steps {
		if !a.Increase() {
			t.Fatalf("Increase 失败于 %s", a.Bet())
		}
		if !a.Bet().Equal(d(want)) {
			t.Fatalf("bet = %s, want %s", a.Bet(), want)
		}
	}
	a.SetBet(d("100"))
	if a.Increase() {
		t.Errorf("超过 100 应拒绝")
	}
}

func TestIncreaseLimitedByBalance(t *testing.T) {
	a := New(nil, d("0.8"))
	if a.Increase() {
		t.Errorf("下注 1 超过余额 0.8 应拒绝")
	}
	if !a.Bet().Equal(MinBet) {
		t.Errorf("bet = %s", a.Bet())
	}
}

func TestDecreaseTiers(t *testing.T) {
	cases := []struct{ from, want string }{
		{"10", "9"},
		{"5", "4.5"},
		{"20", "10"},
		{"1", "0.5"},
	}
	for _, c := range cases {
		a := New(nil, d("1000"))
		a.SetBet(d(c.from))
		if !a.Decrease() {
			t.Fatalf("Decrease(%s) 被拒绝", c.from)
		}
		if !a.Bet().Equal(d(c.want)) {
			t.Errorf("Decrease(%s) = %s, want %s", c.from, a.Bet(), c.want)
		}
	}
	a := New(nil, d("1000"))
	if a.Decrease() {
		t.Errorf("最小下注不可再减")
	}
	if !a.Adjust(Up) || !a.Bet().Equal(d("1")) {
		t.Errorf("Adjust(Up) = %s", a.Bet())
	}
}

func TestTopUpAndSetters(t *testing.T) {
	a := New(nil, decimal.Zero)
	if a.TopUp(d("-1")) || a.TopUp(decimal.Zero) {
		t.Errorf("非正数充值应拒绝")
	}
	if !a.TopUp(d("100")) || !a.Balance().Equal(d("100")) {
		t.Errorf("balance = %s", a.Balance())
	}
	a.SetBalance(d("-5"))
	if !a.Balance().IsZero() {
		t.Errorf("余额不应为负")
	}
	a.SetBet(d("0.1"))
	if !a.Bet().Equal(MinBet) {
		t.Errorf("bet = %s", a.Bet())
	}
	a.SetBet(d("500"))
	if !a.Bet().Equal(MaxBet) {
		t.Errorf("bet = %s", a.Bet())
	}
}

func TestBypass(t *testing.T) {
	a := New(nil, decimal.Zero)
	a.SetBypass(true)
	if !a.CanSpin() {
		t.Fatalf("免扣费模式应允许开局")
	}
	if got := a.PlaceBet(); !got.Equal(MinBet) {
		t.Errorf("PlaceBet = %s", got)
	}
	if !a.Balance().IsZero() {
		t.Errorf("免扣费模式不应扣除余额")
	}
}

func TestPersistence(t *testing.T) {
	prefs := store.NewMemoryPrefs()
	a := New(prefs, d("50"))
	a.SetBet(d("2"))
	a.PlaceBet()

	b := New(prefs, d("999"))
	if !b.Balance().Equal(d("48")) || !b.Bet().Equal(d("2")) {
		t.Errorf("reload balance=%s bet=%s", b.Balance(), b.Bet())
	}
}
