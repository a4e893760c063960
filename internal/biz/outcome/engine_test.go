package outcome

import (
	"testing"

	"slot4d/internal/biz/digits"
	"slot4d/internal/biz/prize"
	"slot4d/internal/biz/store"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestEvaluatePayouts(t *testing.T) {
	e := NewEngine(DefaultPaytable())
	bet := dec("1")
	cases := []struct {
		name    string
		spun    string
		target  prize.Target
		want    string
		best    int
		four    bool
		jackpot bool
	}{
		{"miss", "5678", prize.Target{Category: prize.Special, Number: "1234"}, "0", 0, false, false},
		{"one digit", "1999", prize.Target{Category: prize.Special, Number: "1234"}, "0", 0, false, false},
		{"two digits", "1299", prize.Target{Category: prize.Special, Number: "1234"}, "2", 2, false, false},
		{"three digits", "1239", prize.Target{Category: prize.Consolation, Number: "1234"}, "12", 3, false, false},
		{"four jackpot", "1234", prize.Target{Category: prize.Jackpot, Number: "1234"}, "8900", 4, true, true},
		{"four first", "1234", prize.Target{Category: prize.First, Number: "1234"}, "8900", 4, true, false},
		{"four second", "1234", prize.Target{Category: prize.Second, Index: 1, Number: "1234"}, "2012", 4, true, false},
		{"four third", "1234", prize.Target{Category: prize.Third, Index: 2, Number: "1234"}, "1012", 4, true, false},
		{"four special", "1234", prize.Target{Category: prize.Special, Number: "1234"}, "212", 4, true, false},
		{"four consolation", "1234", prize.Target{Category: prize.Consolation, Number: "1234"}, "72", 4, true, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			r := e.Evaluate(c.spun, bet, []prize.Target{c.target})
			if !r.Total.Equal(dec(c.want)) {
				t.Errorf("total = %s, want %s", r.Total, c.want)
			}
			if r.BestMatch != c.best || r.FourDigit != c.four || r.JackpotHit != c.jackpot {
				t.Errorf("result = %+v", r)
			}
		})
	}
}

func TestEvaluateSumsAllTargets(t *testing.T) {
	e := NewEngine(DefaultPaytable())
	targets := []prize.Target{
		{Category: prize.Jackpot, Number: "1234"},
		{Category: prize.First, Number: "5679"},
		{Category: prize.Special, Index: 3, Number: "5600"},
		{Category: prize.Consolation, Index: 1, Number: "5678"},
	}
	r := e.Evaluate("5678", dec("0.5"), targets)
	// 5679: 3 位 0.5*12=6；5600: 2 位 1；5678: 4 位 6+60=66
	if !r.Total.Equal(dec("73")) {
		t.Errorf("total = %s, want 73", r.Total)
	}
	if len(r.Hits) != 3 || r.BestMatch != 4 || !r.FourDigit || r.JackpotHit {
		t.Errorf("result = %+v", r)
	}
	if !r.Blocking() || r.Minor() {
		t.Errorf("4 位命中应阻塞")
	}
}

func TestMinorAndBlocking(t *testing.T) {
	e := NewEngine(DefaultPaytable())
	r := e.Evaluate("1200", dec("1"), []prize.Target{{Category: prize.Special, Number: "1299"}})
	if !r.Minor() || r.Blocking() {
		t.Errorf("2 位命中应为小奖: %+v", r)
	}
	r = e.Evaluate("0000", dec("1"), []prize.Target{{Category: prize.Special, Number: "1299"}})
	if r.Minor() || r.Blocking() || r.Won() {
		t.Errorf("未命中: %+v", r)
	}
}

func TestSettleScenarioNoJackpotConsumption(t *testing.T) {
	prefs := store.NewMemoryPrefs()
	prefs.SetString(store.KeyJackpotNumber, "1234")
	reg := prize.New(prize.Config{SpecialCount: 0, ConsolationCount: 0, RefreshEvery: 3, DefaultChance: 1}, prefs, digits.NewGenerator(digits.NewSource(1)))
	if err := reg.SetSaved(0, "5679"); err != nil {
		t.Fatal(err)
	}
	if sp, co := reg.Pools(); len(sp) != 0 || len(co) != 0 {
		t.Fatalf("奖池应为空: %v %v", sp, co)
	}
	e := NewEngine(DefaultPaytable())
	r := e.Settle("5678", dec("1"), reg)
	if !r.Total.Equal(dec("12")) || r.BestMatch != 3 {
		t.Errorf("result = %+v, want total 12", r)
	}
	if reg.Jackpot().Used {
		t.Errorf("未命中头奖不应消费")
	}
}

func TestSettleConsumesJackpotOnce(t *testing.T) {
	prefs := store.NewMemoryPrefs()
	prefs.SetString(store.KeyJackpotNumber, "4321")
	reg := prize.New(prize.Config{SpecialCount: 0, ConsolationCount: 0, RefreshEvery: 3, DefaultChance: 1}, prefs, digits.NewGenerator(digits.NewSource(2)))
	e := NewEngine(DefaultPaytable())

	first := e.Settle("4321", dec("1"), reg)
	if !first.JackpotHit || !first.Total.Equal(dec("8900")) {
		t.Fatalf("首次应命中头奖: %+v", first)
	}
	if !reg.Jackpot().Used {
		t.Fatalf("命中后应标记已使用")
	}
	second := e.Settle("4321", dec("1"), reg)
	if second.JackpotHit || second.Total.Equal(dec("8900")) {
		t.Errorf("头奖只能派发一次: %+v", second)
	}
}
