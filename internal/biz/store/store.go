package store

import (
	"context"
	"fmt"
	"maps"
	"strconv"
	"sync"
)

// 持久化键
const (
	KeyJackpotNumber = "JackpotNumber"
	KeyJackpotUsed   = "JackpotUsed"
	KeyJackpotChance = "JackpotChance"

	KeyTotalWagered  = "TotalWagered"
	KeyTotalWon      = "TotalWon"
	KeyTotalSpins    = "TotalSpins"
	KeyTotalWins     = "TotalWins"
	KeyTotalJackpots = "TotalJackpots"

	KeyBalance    = "Balance"
	KeyCurrentBet = "CurrentBet"
)

// SavedSlots 保存号码槽位数
const SavedSlots = 3

// SavedNumberKey 第 i 个保存号码的键（i 从 0 开始）
func SavedNumberKey(i int) string {
	return "SavedNumber" + strconv.Itoa(i+1)
}

// Backend 持久化后端
type Backend interface {
	Load(ctx context.Context) (map[string]string, error)
	Save(ctx context.Context, set map[string]string, del []string) error
}

// Prefs 带本地缓存的键值存储，写入先标脏，Flush 时统一落盘
type Prefs struct {
	mu      sync.Mutex
	backend Backend
	values  map[string]string
	dirty   map[string]struct{}
	deleted map[string]struct{}
}

// Open 从 backend 加载全部键
func Open(ctx context.Context, backend Backend) (*Prefs, error) {
	if backend == nil {
		backend = NewMemory()
	}
	values, err := backend.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load prefs: %w", err)
	}
	if values == nil {
		values = make(map[string]string)
	}
	return &Prefs{
		backend: backend,
		values:  values,
		dirty:   make(map[string]struct{}),
		deleted: make(map[string]struct{}),
	}, nil
}

// NewMemoryPrefs 仅内存的存储，用于模拟与测试
func NewMemoryPrefs() *Prefs {
	p, _ := Open(context.Background(), NewMemory())
	return p
}

func (p *Prefs) Has(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.values[key]
	return ok
}

func (p *Prefs) GetString(key, def string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if v, ok := p.values[key]; ok {
		return v
	}
	return def
}

// GetFloat 读取浮点值，格式错误按缺省处理
func (p *Prefs) GetFloat(key string, def float64) float64 {
	s := p.GetString(key, "")
	if s == "" {
		return def
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return v
}

// GetInt 读取整数值，格式错误按缺省处理
func (p *Prefs) GetInt(key string, def int64) int64 {
	s := p.GetString(key, "")
	if s == "" {
		return def
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return def
	}
	return v
}

func (p *Prefs) SetString(key, value string) {
	p.mu.Lock()
	p.values[key] = value
	p.dirty[key] = struct{}{}
	delete(p.deleted, key)
	p.mu.Unlock()
}

func (p *Prefs) SetFloat(key string, value float64) {
	p.SetString(key, strconv.FormatFloat(value, 'f', -1, 64))
}

func (p *Prefs) SetInt(key string, value int64) {
	p.SetString(key, strconv.FormatInt(value, 10))
}

func (p *Prefs) Delete(key string) {
	p.mu.Lock()
	delete(p.values, key)
	delete(p.dirty, key)
	p.deleted[key] = struct{}{}
	p.mu.Unlock()
}

// Dirty 是否有未落盘的修改
func (p *Prefs) Dirty() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.dirty) > 0 || len(p.deleted) > 0
}

// Snapshot 当前缓存副本
func (p *Prefs) Snapshot() map[string]string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return maps.Clone(p.values)
}

// Flush 将脏数据写入 backend；失败时保留脏标记，下次重试
func (p *Prefs) Flush(ctx context.Context) error {
	p.mu.Lock()
	if len(p.dirty) == 0 && len(p.deleted) == 0 {
		p.mu.Unlock()
		return nil
	}
	set := make(map[string]string, len(p.dirty))
	for k := range p.dirty {
		set[k] = p.values[k]
	}
	del := make([]string, 0, len(p.deleted))
	for k := range p.deleted {
		del = append(del, k)
	}
	p.dirty = make(map[string]struct{})
	p.deleted = make(map[string]struct{})
	p.mu.Unlock()

	if err := p.backend.Save(ctx, set, del); err != nil {
		p.mu.Lock()
		for k := range set {
			if _, ok := p.values[k]; ok {
				p.dirty[k] = struct{}{}
			}
		}
		for _, k := range del {
			if _, ok := p.values[k]; !ok {
				p.deleted[k] = struct{}{}
			}
		}
		p.mu.Unlock()
		return fmt.Errorf("flush prefs: %w", err)
	}
	return nil
}

// Memory 内存后端
type Memory struct {
	mu     sync.Mutex
	values map[string]string
	saves  int
}

func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

func (m *Memory) Load(context.Context) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return maps.Clone(m.values), nil
}

func (m *Memory) Save(_ context.Context, set map[string]string, del []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range set {
		m.values[k] = v
	}
	for _, k := range del {
		delete(m.values, k)
	}
	m.saves++
	return nil
}

// Saves 调用 Save 的次数
func (m *Memory) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
