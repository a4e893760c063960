package xgo

import (
	"sync"
	"testing"
	"time"
)

func TestShortDuration(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{0, "0"},
		{-time.Second, "0"},
		{250 * time.Microsecond, "250µs"},
		{12345 * time.Microsecond, "12.3ms"},
		{1500 * time.Millisecond, "1.50s"},
		{36 * time.Hour, "1.50d"},
	}
	for _, c := range cases {
		if got := ShortDuration(c.d); got != c.want {
			t.Errorf("ShortDuration(%v) = %s, want %s", c.d, got, c.want)
		}
	}
	if got := AvgDuration(3*time.Second, 2); got != "1.50s" {
		t.Errorf("AvgDuration = %s", got)
	}
	if AvgDuration(time.Second, 0) != "0" {
		t.Errorf("n 为 0 时应返回 0")
	}
}

func TestFormatDuration(t *testing.T) {
	if got := FormatDuration(90 * time.Minute); got != "1.5h" {
		t.Errorf("got %s", got)
	}
	if got := FormatDuration(150 * time.Second); got != "2.5m" {
		t.Errorf("got %s", got)
	}
	if got := FormatDuration(3400 * time.Millisecond); got != "3.4s" {
		t.Errorf("got %s", got)
	}
}

func TestPct(t *testing.T) {
	if Pct(1, 4) != 25 || Pct(1, 0) != 0 {
		t.Errorf("Pct 计算错误")
	}
	if PctCap100(5, 4) != 100 {
		t.Errorf("PctCap100 应封顶 100")
	}
}

func TestGoRecovers(t *testing.T) {
	var wg sync.WaitGroup
	wg.Add(1)
	var got any
	Go(func() { panic("boom") }, func(e any) {
		got = e
		wg.Done()
	})
	wg.Wait()
	if got != "boom" {
		t.Errorf("panic 值 = %v", got)
	}
}

func TestToJSON(t *testing.T) {
	if got := ToJSON(map[string]int{"spins": 3}); got != `{"spins":3}` {
		t.Errorf("got %s", got)
	}
	if got := ToJSON(make(chan int)); got == "" {
		t.Errorf("编码失败应返回错误文本")
	}
}
