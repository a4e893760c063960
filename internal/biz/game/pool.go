package game

import (
	"context"
	"sort"
	"sync"
)

// Factory 按玩家 ID 创建机器
type Factory func(ctx context.Context, playerID string) (*Machine, error)

// Pool 玩家机器池
type Pool struct {
	mu   sync.RWMutex
	byID map[string]*Machine
}

func NewPool() *Pool {
	return &Pool{byID: make(map[string]*Machine)}
}

func (p *Pool) Get(playerID string) (*Machine, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	m, ok := p.byID[playerID]
	return m, ok
}

// GetOrCreate 不存在时通过 factory 创建；并发创建时以先写入者为准
func (p *Pool) GetOrCreate(ctx context.Context, playerID string, factory Factory) (*Machine, bool, error) {
	if m, ok := p.Get(playerID); ok {
		return m, false, nil
	}
	m, err := factory(ctx, playerID)
	if err != nil {
		return nil, false, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if exist, ok := p.byID[playerID]; ok {
		return exist, false, nil
	}
	p.byID[playerID] = m
	return m, true, nil
}

// List 按玩家 ID 升序返回副本
func (p *Pool) List() []*Machine {
	p.mu.RLock()
	out := make([]*Machine, 0, len(p.byID))
	for _, m := range p.byID {
		out = append(out, m)
	}
	p.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID() < out[j].ID()
	})
	return out
}

func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.byID)
}
