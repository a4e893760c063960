package trainer

import (
	"testing"

	"slot4d/internal/biz/digits"

	"github.com/shopspring/decimal"
)

func TestNextRequiresControl(t *testing.T) {
	tr := New(digits.NewGenerator(digits.NewSource(1)))
	tr.SetNextNumber("1234")
	if _, ok := tr.Next([3]string{}); ok {
		t.Fatalf("未开启控制时不应返回号码")
	}
	tr.SetControl(true)
	for i := 0; i < 3; i++ {
		n, ok := tr.Next([3]string{})
		if !ok || n != "1234" {
			t.Fatalf("第 %d 次 Next = %q, %v", i, n, ok)
		}
	}
}

func TestSetNextNumberCleans(t *testing.T) {
	tr := New(nil)
	tr.SetMode(FourDigitWin)
	if got := tr.SetNextNumber("7a"); got != "0007" {
		t.Errorf("SetNextNumber = %q", got)
	}
	if tr.State().Mode != CustomNumber.String() {
		t.Errorf("设置号码后应切换为 custom")
	}
}

func TestWinningModes(t *testing.T) {
	tr := New(digits.NewGenerator(digits.NewSource(5)))
	tr.SetControl(true)
	saved := [3]string{"", "56x8", "5678"}
	for _, c := range []struct {
		mode ShuffleMode
		k    int
	}{{TwoDigitWin, 2}, {ThreeDigitWin, 3}, {FourDigitWin, 4}} {
		tr.SetMode(c.mode)
		for i := 0; i < 50; i++ {
			n, _ := tr.Next(saved)
			if digits.PrefixMatch(n, "5678") < c.k {
				t.Fatalf("%s: %s 与 5678 前缀不足 %d 位", c.mode, n, c.k)
			}
		}
	}
	tr.SetMode(ThreeDigitWin)
	n, ok := tr.Next([3]string{})
	if !ok || !digits.Valid(n) {
		t.Errorf("无保存号码时应整体随机: %q", n)
	}
}

func TestParseModeAndBetClamp(t *testing.T) {
	if m, ok := ParseMode("Three_Digit_Win"); !ok || m != ThreeDigitWin {
		t.Errorf("ParseMode = %v %v", m, ok)
	}
	if _, ok := ParseMode("jackpot"); ok {
		t.Errorf("未知模式应返回 false")
	}
	tr := New(nil)
	if got := tr.SetTestBet(decimal.NewFromInt(1000)); !got.Equal(decimal.NewFromInt(100)) {
		t.Errorf("test bet = %s", got)
	}
	if got := tr.SetTestBet(decimal.Zero); !got.Equal(decimal.RequireFromString("0.5")) {
		t.Errorf("test bet = %s", got)
	}
}
