package store

import (
	"context"
	"errors"
	"testing"
)

type failingBackend struct {
	fail bool
	*Memory
}

func (f *failingBackend) Save(ctx context.Context, set map[string]string, del []string) error {
	if f.fail {
		return errors.New("backend down")
	}
	return f.Memory.Save(ctx, set, del)
}

func TestPrefsTypedAccess(t *testing.T) {
	p := NewMemoryPrefs()
	p.SetString(KeyJackpotNumber, "1234")
	p.SetFloat(KeyJackpotChance, 2.5)
	p.SetInt(KeyTotalSpins, 42)

	if got := p.GetString(KeyJackpotNumber, ""); got != "1234" {
		t.Errorf("GetString = %q", got)
	}
	if got := p.GetFloat(KeyJackpotChance, 1); got != 2.5 {
		t.Errorf("GetFloat = %v", got)
	}
	if got := p.GetInt(KeyTotalSpins, 0); got != 42 {
		t.Errorf("GetInt = %v", got)
	}
	p.SetString(KeyTotalWins, "abc")
	if got := p.GetInt(KeyTotalWins, 7); got != 7 {
		t.Errorf("格式错误应返回缺省值, got %v", got)
	}
	if got := p.GetFloat("missing", 1); got != 1 {
		t.Errorf("缺失键应返回缺省值, got %v", got)
	}
}

func TestPrefsFlushAndReload(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	p, err := Open(ctx, mem)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	p.SetString(SavedNumberKey(0), "5679")
	p.SetString(SavedNumberKey(1), "0001")
	if !p.Dirty() {
		t.Fatalf("写入后应为脏")
	}
	if err := p.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if p.Dirty() {
		t.Errorf("Flush 后不应为脏")
	}
	p.Delete(SavedNumberKey(1))
	if err := p.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	q, err := Open(ctx, mem)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if got := q.GetString("SavedNumber1", ""); got != "5679" {
		t.Errorf("SavedNumber1 = %q", got)
	}
	if q.Has("SavedNumber2") {
		t.Errorf("SavedNumber2 应已删除")
	}
	if mem.Saves() != 2 {
		t.Errorf("saves = %d, want 2", mem.Saves())
	}
	if err := q.Flush(ctx); err != nil || mem.Saves() != 2 {
		t.Errorf("无修改时不应写后端")
	}
}

func TestPrefsFlushFailureKeepsDirty(t *testing.T) {
	ctx := context.Background()
	b := &failingBackend{fail: true, Memory: NewMemory()}
	p, err := Open(ctx, b)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	p.SetInt(KeyTotalSpins, 1)
	p.Delete(KeyJackpotNumber)
	if err := p.Flush(ctx); err == nil {
		t.Fatalf("应返回错误")
	}
	if !p.Dirty() {
		t.Fatalf("失败后应保留脏标记")
	}
	b.fail = false
	if err := p.Flush(ctx); err != nil {
		t.Fatalf("重试 Flush: %v", err)
	}
	if got := b.values[KeyTotalSpins]; got != "1" {
		t.Errorf("TotalSpins = %q", got)
	}
}
