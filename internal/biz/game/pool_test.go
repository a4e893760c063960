package game

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestPoolGetOrCreate(t *testing.T) {
	p := NewPool()
	calls := 0
	factory := func(ctx context.Context, id string) (*Machine, error) {
		calls++
		return NewMachine(id, testConfig(), nil), nil
	}
	m1, created, err := p.GetOrCreate(context.Background(), "b", factory)
	if err != nil || !created {
		t.Fatalf("created = %v err = %v", created, err)
	}
	m2, created, _ := p.GetOrCreate(context.Background(), "b", factory)
	if created || m1 != m2 || calls != 1 {
		t.Errorf("同一玩家应复用机器")
	}
	_, _, _ = p.GetOrCreate(context.Background(), "a", factory)
	list := p.List()
	if len(list) != 2 || list[0].ID() != "a" || list[1].ID() != "b" {
		t.Errorf("List 应按 ID 排序")
	}
}

func TestPoolFactoryError(t *testing.T) {
	p := NewPool()
	boom := errors.New("boom")
	_, _, err := p.GetOrCreate(context.Background(), "x", func(context.Context, string) (*Machine, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) || p.Len() != 0 {
		t.Errorf("工厂失败时不应写入: %v", err)
	}
}

func TestPoolConcurrentCreate(t *testing.T) {
	p := NewPool()
	var wg sync.WaitGroup
	got := make([]*Machine, 16)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m, _, _ := p.GetOrCreate(context.Background(), "same", func(_ context.Context, id string) (*Machine, error) {
				return NewMachine(id, testConfig(), nil), nil
			})
			got[i] = m
		}(i)
	}
	wg.Wait()
	for _, m := range got {
		if m != got[0] {
			t.Fatalf("并发创建应返回同一台机器")
		}
	}
}
