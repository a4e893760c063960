package prize

import (
	"slices"
	"sync"

	"slot4d/internal/biz/digits"
	"slot4d/internal/biz/store"

	"github.com/go-kratos/kratos/v2/errors"
)

// Category 奖项类别
type Category int

const (
	Jackpot Category = iota
	First
	Second
	Third
	Special
	Consolation
)

var categoryNames = [...]string{"jackpot", "first", "second", "third", "special", "consolation"}

func (c Category) String() string {
	if c < 0 || int(c) >= len(categoryNames) {
		return "unknown"
	}
	return categoryNames[c]
}

func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// ParseCategory 按名称解析类别
func ParseCategory(s string) (Category, bool) {
	for i, n := range categoryNames {
		if n == s {
			return Category(i), true
		}
	}
	return 0, false
}

// SlotCategory 保存号码槽位对应的类别
func SlotCategory(i int) Category {
	return First + Category(i)
}

// Target 参与比对的目标号码
type Target struct {
	Category Category `json:"category"`
	Index    int      `json:"index"`
	Number   string   `json:"number"`
}

// JackpotRecord 头奖记录
type JackpotRecord struct {
	Number string  `json:"number"`
	Used   bool    `json:"used"`
	Chance float64 `json:"chance"`
}

// Config 奖池参数
type Config struct {
	SpecialCount     int
	ConsolationCount int
	RefreshEvery     int
	DefaultChance    float64
}

func DefaultConfig() Config {
	return Config{SpecialCount: 10, ConsolationCount: 10, RefreshEvery: 3, DefaultChance: 1}
}

var (
	ErrInvalidNumber = errors.New(400, "INVALID_NUMBER", "number must be exactly 4 digits")
	ErrInvalidChance = errors.New(400, "INVALID_CHANCE", "chance must be between 0 and 100")
	ErrInvalidSlot   = errors.New(400, "INVALID_SLOT", "saved slot index out of range")
)

// Registry 头奖、保存号码与特别/安慰奖池
type Registry struct {
	mu    sync.RWMutex
	c     Config
	prefs *store.Prefs
	gen   *digits.Generator

	jackpot      JackpotRecord
	saved        [store.SavedSlots]string
	special      []string
	consolation  []string
	sinceRefresh int
}

// New 从 prefs 加载并生成初始奖池
func New(c Config, prefs *store.Prefs, gen *digits.Generator) *Registry {
	if c.SpecialCount < 0 {
		c.SpecialCount = 0
	}
	if c.ConsolationCount < 0 {
		c.ConsolationCount = 0
	}
	if c.RefreshEvery <= 0 {
		c.RefreshEvery = 3
	}
	if prefs == nil {
		prefs = store.NewMemoryPrefs()
	}
	if gen == nil {
		gen = digits.NewGenerator(nil)
	}
	r := &Registry{c: c, prefs: prefs, gen: gen}
	r.loadJackpot()
	r.loadSaved()
	r.regenerate()
	return r
}

// loadJackpot 号码缺失或非法时重新生成并标记未使用
func (r *Registry) loadJackpot() {
	number := r.prefs.GetString(store.KeyJackpotNumber, "")
	if !digits.Valid(number) {
		number = r.gen.Random()
		r.prefs.SetString(store.KeyJackpotNumber, number)
		r.prefs.SetInt(store.KeyJackpotUsed, 0)
	}
	chance := r.prefs.GetFloat(store.KeyJackpotChance, r.c.DefaultChance)
	if chance < 0 || chance > 100 {
		chance = r.c.DefaultChance
	}
	r.jackpot = JackpotRecord{
		Number: number,
		Used:   r.prefs.GetInt(store.KeyJackpotUsed, 0) != 0,
		Chance: chance,
	}
}

func (r *Registry) loadSaved() {
	for i := range r.saved {
		key := store.SavedNumberKey(i)
		v := r.prefs.GetString(key, "")
		if v != "" && !digits.Valid(v) {
			r.prefs.SetString(key, "")
			v = ""
		}
		r.saved[i] = v
	}
}

func (r *Registry) regenerate() {
	r.special = r.fill(r.c.SpecialCount)
	r.consolation = r.fill(r.c.ConsolationCount)
	r.sinceRefresh = 0
}

func (r *Registry) fill(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = r.gen.Random()
	}
	return out
}

// CheckAndCycle 距上次刷新达到阈值时重新生成两个奖池
func (r *Registry) CheckAndCycle() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sinceRefresh < r.c.RefreshEvery {
		return false
	}
	r.regenerate()
	return true
}

// OnSpinCompleted 每局结束调用
func (r *Registry) OnSpinCompleted() {
	r.mu.Lock()
	r.sinceRefresh++
	r.mu.Unlock()
}

// Targets 按 头奖、保存号码、特别奖、安慰奖 顺序返回
func (r *Registry) Targets() []Target {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Target, 0, 1+len(r.saved)+len(r.special)+len(r.consolation))
	if !r.jackpot.Used && digits.Valid(r.jackpot.Number) {
		out = append(out, Target{Category: Jackpot, Number: r.jackpot.Number})
	}
	for i, v := range r.saved {
		if v != "" {
			out = append(out, Target{Category: SlotCategory(i), Index: i, Number: v})
		}
	}
	for i, v := range r.special {
		out = append(out, Target{Category: Special, Index: i, Number: v})
	}
	for i, v := range r.consolation {
		out = append(out, Target{Category: Consolation, Index: i, Number: v})
	}
	return out
}

// Jackpot 当前头奖记录
func (r *Registry) Jackpot() JackpotRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.jackpot
}

// ConsumeJackpot 标记头奖已使用；已使用时返回 false
func (r *Registry) ConsumeJackpot() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.jackpot.Used {
		return false
	}
	r.jackpot.Used = true
	r.prefs.SetInt(store.KeyJackpotUsed, 1)
	return true
}

// Saved 三个保存号码，未设置为空串
func (r *Registry) Saved() [store.SavedSlots]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.saved
}

func (r *Registry) SetSaved(i int, number string) error {
	if i < 0 || i >= store.SavedSlots {
		return ErrInvalidSlot
	}
	if !digits.Valid(number) {
		return ErrInvalidNumber
	}
	r.mu.Lock()
	r.saved[i] = number
	r.prefs.SetString(store.SavedNumberKey(i), number)
	r.mu.Unlock()
	return nil
}

func (r *Registry) ClearSaved(i int) error {
	if i < 0 || i >= store.SavedSlots {
		return ErrInvalidSlot
	}
	r.mu.Lock()
	r.saved[i] = ""
	r.prefs.SetString(store.SavedNumberKey(i), "")
	r.mu.Unlock()
	return nil
}

// Pools 特别奖与安慰奖副本
func (r *Registry) Pools() (special, consolation []string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.special), slices.Clone(r.consolation)
}

// SpinsSinceRefresh 距上次刷新的局数
func (r *Registry) SpinsSinceRefresh() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sinceRefresh
}

// SetJackpot 管理员设置头奖号码与概率，并重置为未使用
func (r *Registry) SetJackpot(number string, chance float64) error {
	if !digits.Valid(number) {
		return ErrInvalidNumber
	}
	if chance < 0 || chance > 100 {
		return ErrInvalidChance
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jackpot = JackpotRecord{Number: number, Chance: chance}
	r.prefs.SetString(store.KeyJackpotNumber, number)
	r.prefs.SetFloat(store.KeyJackpotChance, chance)
	r.prefs.SetInt(store.KeyJackpotUsed, 0)
	return nil
}

// ResetJackpot 删除头奖相关键并重新生成
func (r *Registry) ResetJackpot() JackpotRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prefs.Delete(store.KeyJackpotNumber)
	r.prefs.Delete(store.KeyJackpotChance)
	r.prefs.Delete(store.KeyJackpotUsed)
	r.loadJackpot()
	return r.jackpot
}
