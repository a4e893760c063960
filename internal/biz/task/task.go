package task

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/panjf2000/ants/v2"
	"github.com/shopspring/decimal"
)

var maxWorkerPerTask = runtime.NumCPU() * 4

// Status 任务状态
type Status int32

const (
	StatusPending Status = iota
	StatusRunning
	StatusProcessing
	StatusCompleted
	StatusFailed
	StatusCancelled
)

var statusNames = [...]string{"pending", "running", "processing", "completed", "failed", "cancelled"}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return "unknown"
	}
	return statusNames[s]
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Terminal 是否为终态（完成/失败/取消）
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Config 模拟任务参数
type Config struct {
	Players        int             `json:"players"`
	SpinsPerPlayer int             `json:"spins_per_player"`
	Bet            decimal.Decimal `json:"bet"`
	StartingCredit decimal.Decimal `json:"starting_credit"`
	Bypass         bool            `json:"bypass"`
	KillDigits     bool            `json:"kill_digits"`
	JackpotChance  float64         `json:"jackpot_chance"`
	Seed           uint64          `json:"seed"`
	SampleEvery    int64           `json:"sample_every"`
}

// Target 总目标局数
func (c *Config) Target() int64 {
	return int64(c.Players) * int64(c.SpinsPerPlayer)
}

// taskMeta 任务元数据，Task 与 TaskStats 共享
type taskMeta struct {
	mu          sync.RWMutex
	id          string
	description string
	status      Status
	config      *Config
	createdAt   time.Time
	startAt     time.Time
	finishedAt  time.Time
	recordURL   string
}

// Task RTP 模拟任务
type Task struct {
	meta *taskMeta

	mu     sync.RWMutex
	pool   *ants.Pool
	ctx    context.Context
	cancel context.CancelFunc
	log    *log.Helper

	stats *TaskStats
}

// NewTask 创建新任务，parent 取消时任务随之结束
func NewTask(parent context.Context, id, description string, config *Config, logger log.Logger) (*Task, error) {
	if config == nil || config.Players <= 0 || config.SpinsPerPlayer <= 0 {
		return nil, fmt.Errorf("players and spins_per_player must be positive")
	}
	if logger == nil {
		logger = log.GetLogger()
	}
	pool, err := ants.NewPool(min(config.Players, maxWorkerPerTask))
	if err != nil {
		return nil, fmt.Errorf("failed to create ants pool: %v", err)
	}
	ctx, cancel := context.WithCancel(parent)

	meta := &taskMeta{
		id: id, description: description, status: StatusPending,
		config: config, createdAt: time.Now(),
	}
	return &Task{
		meta:   meta,
		pool:   pool,
		ctx:    ctx,
		cancel: cancel,
		log:    log.NewHelper(logger),
		stats:  NewTaskStats(config.Target(), config.SampleEvery, meta),
	}, nil
}

func (t *Task) GetID() string {
	t.meta.mu.RLock()
	defer t.meta.mu.RUnlock()
	return t.meta.id
}

func (t *Task) GetDescription() string {
	t.meta.mu.RLock()
	defer t.meta.mu.RUnlock()
	return t.meta.description
}

func (t *Task) GetConfig() *Config {
	t.meta.mu.RLock()
	defer t.meta.mu.RUnlock()
	return t.meta.config
}

func (t *Task) GetCreatedAt() time.Time {
	t.meta.mu.RLock()
	defer t.meta.mu.RUnlock()
	return t.meta.createdAt
}

func (t *Task) GetStartAt() time.Time {
	t.meta.mu.RLock()
	defer t.meta.mu.RUnlock()
	return t.meta.startAt
}

func (t *Task) GetFinishedAt() time.Time {
	t.meta.mu.RLock()
	defer t.meta.mu.RUnlock()
	return t.meta.finishedAt
}

func (t *Task) GetRecordURL() string {
	t.meta.mu.RLock()
	defer t.meta.mu.RUnlock()
	return t.meta.recordURL
}

func (t *Task) SetRecordURL(url string) {
	t.meta.mu.Lock()
	t.meta.recordURL = url
	t.meta.mu.Unlock()
}

func (t *Task) GetStatus() Status {
	t.meta.mu.RLock()
	defer t.meta.mu.RUnlock()
	return t.meta.status
}

func (t *Task) Context() context.Context {
	return t.ctx
}

func (t *Task) SetStatus(status Status) {
	t.meta.mu.Lock()
	defer t.meta.mu.Unlock()
	if t.meta.status == status {
		return
	}
	if status.Terminal() && t.meta.finishedAt.IsZero() {
		t.meta.finishedAt = time.Now()
	}
	t.meta.status = status
}

// CompareAndSetStatus 状态为 from 时切换到 to
func (t *Task) CompareAndSetStatus(from, to Status) bool {
	t.meta.mu.Lock()
	defer t.meta.mu.Unlock()
	if t.meta.status != from {
		return false
	}
	t.meta.status = to
	switch {
	case to == StatusRunning && t.meta.startAt.IsZero():
		t.meta.startAt = time.Now()
	case to.Terminal() && t.meta.finishedAt.IsZero():
		t.meta.finishedAt = time.Now()
	}
	return true
}

func (t *Task) Cancel() error {
	t.meta.mu.Lock()
	if t.meta.status.Terminal() {
		t.meta.mu.Unlock()
		return fmt.Errorf("task already finished")
	}
	t.meta.status = StatusCancelled
	if t.meta.finishedAt.IsZero() {
		t.meta.finishedAt = time.Now()
	}
	id := t.meta.id
	t.meta.mu.Unlock()
	if t.cancel != nil {
		t.cancel()
	}
	t.log.Infof("[task %s] cancelled", id)
	return nil
}

// Stop 取消上下文并释放协程池
func (t *Task) Stop() {
	t.mu.Lock()
	if t.cancel != nil {
		t.cancel()
	}
	p := t.pool
	t.pool = nil
	t.mu.Unlock()
	if p != nil {
		p.Release()
	}
	t.log.Infof("[%s] task stopped", t.GetID())
}

func (t *Task) Submit(fn func()) error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.pool == nil {
		return fmt.Errorf("task pool already released")
	}
	return t.pool.Submit(fn)
}

// GetStats 返回任务统计信息
func (t *Task) GetStats() *TaskStats {
	return t.stats
}
