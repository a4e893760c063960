package ledger

import (
	"testing"

	"slot4d/internal/biz/store"

	"github.com/shopspring/decimal"
)

func TestRTP(t *testing.T) {
	l := New(nil)
	if l.CurrentRTP() != 0 || l.SessionRTP() != 0 || l.HitFrequency() != 0 {
		t.Fatalf("空账本应全部为 0")
	}
	for i := 0; i < 10; i++ {
		l.RecordSpin(decimal.NewFromInt(1))
	}
	l.RecordWin(decimal.RequireFromString("9.5"), false)
	if got := l.CurrentRTP(); got != 0.95 {
		t.Errorf("RTP = %v, want 0.95", got)
	}
	if got := l.HitFrequency(); got != 0.1 {
		t.Errorf("hit frequency = %v, want 0.1", got)
	}
	if got := l.SessionRTP(); got != 0.95 {
		t.Errorf("session RTP = %v", got)
	}
}

func TestPersistAndReload(t *testing.T) {
	prefs := store.NewMemoryPrefs()
	l := New(prefs)
	l.RecordSpin(decimal.RequireFromString("0.5"))
	l.RecordSpin(decimal.RequireFromString("0.5"))
	l.RecordWin(decimal.NewFromInt(8900), true)

	m := New(prefs)
	st := m.Lifetime()
	if !st.Wagered.Equal(decimal.NewFromInt(1)) || !st.Won.Equal(decimal.NewFromInt(8900)) {
		t.Errorf("lifetime = %+v", st)
	}
	if st.Spins != 2 || st.Wins != 1 || st.Jackpots != 1 {
		t.Errorf("counters = %+v", st)
	}
	if m.Session().Spins != 0 || m.SessionRTP() != 0 {
		t.Errorf("新会话应从 0 开始")
	}
}

func TestReset(t *testing.T) {
	prefs := store.NewMemoryPrefs()
	l := New(prefs)
	l.RecordSpin(decimal.NewFromInt(2))
	l.RecordWin(decimal.NewFromInt(1), false)
	l.ResetSession()
	if l.Session().Spins != 0 || l.Lifetime().Spins != 1 {
		t.Errorf("ResetSession 只清会话")
	}
	l.ResetAll()
	if l.Lifetime().Spins != 0 || prefs.GetInt(store.KeyTotalSpins, -1) != 0 {
		t.Errorf("ResetAll 应清空并持久化")
	}
}
