package task

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/go-kratos/kratos/v2/log"
)

// Pool 任务池
type Pool struct {
	mu       sync.RWMutex
	tasks    map[string]*Task
	pending  []string
	onRemove func(id string)
}

// NewTaskPool 创建任务池
func NewTaskPool() *Pool {
	return &Pool{
		tasks: make(map[string]*Task),
	}
}

// OnRemove 任务被删除或过期清理后回调，不持有锁
func (p *Pool) OnRemove(fn func(id string)) {
	p.mu.Lock()
	p.onRemove = fn
	p.mu.Unlock()
}

func (p *Pool) notifyRemoved(ids ...string) {
	p.mu.RLock()
	fn := p.onRemove
	p.mu.RUnlock()
	if fn == nil {
		return
	}
	for _, id := range ids {
		fn(id)
	}
}

// Add 添加任务到池中并排入待调度队列
func (p *Pool) Add(t *Task) {
	p.mu.Lock()
	p.tasks[t.GetID()] = t
	p.pending = append(p.pending, t.GetID())
	p.mu.Unlock()
}

// Get 获取任务
func (p *Pool) Get(id string) (*Task, bool) {
	p.mu.RLock()
	t, ok := p.tasks[id]
	p.mu.RUnlock()
	return t, ok
}

// List 列出所有任务（按创建时间倒序）
func (p *Pool) List() []*Task {
	p.mu.RLock()
	out := make([]*Task, 0, len(p.tasks))
	for _, t := range p.tasks {
		out = append(out, t)
	}
	p.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].GetCreatedAt().After(out[j].GetCreatedAt())
	})
	return out
}

// Remove 移除任务，同时从 pending 中移除
func (p *Pool) Remove(id string) (*Task, bool) {
	p.mu.Lock()
	t, ok := p.tasks[id]
	if ok {
		delete(p.tasks, id)
		p.dropPendingLocked(id)
	}
	p.mu.Unlock()
	if ok {
		p.notifyRemoved(id)
	}
	return t, ok
}

// RunningCount 运行中（含收尾）的任务数
func (p *Pool) RunningCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	n := 0
	for _, t := range p.tasks {
		if s := t.GetStatus(); s == StatusRunning || s == StatusProcessing {
			n++
		}
	}
	return n
}

// IsRateLimited 运行中任务数已达上限
func (p *Pool) IsRateLimited(limit int) bool {
	return p.RunningCount() >= limit
}

// PeekPending 取队首待调度任务（不出队）
func (p *Pool) PeekPending() (taskID string, t *Task, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for len(p.pending) > 0 {
		taskID = p.pending[0]
		t, ok = p.tasks[taskID]
		if !ok {
			p.pending = p.pending[1:]
			continue
		}
		return taskID, t, true
	}
	return "", nil, false
}

// DequeuePending 队首出队，仅当 taskID 与队首一致时执行
func (p *Pool) DequeuePending(taskID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.pending) == 0 || p.pending[0] != taskID {
		return false
	}
	p.pending = p.pending[1:]
	return true
}

// RequeueAtHead 将 taskID 重新放回队首
func (p *Pool) RequeueAtHead(taskID string) {
	p.mu.Lock()
	p.pending = append([]string{taskID}, p.pending...)
	p.mu.Unlock()
}

// DropPendingHead 丢弃队首（跳过无效任务）
func (p *Pool) DropPendingHead() {
	p.mu.Lock()
	if len(p.pending) > 0 {
		p.pending = p.pending[1:]
	}
	p.mu.Unlock()
}

// DropPending 从待调度队列移除
func (p *Pool) DropPending(id string) {
	p.mu.Lock()
	p.dropPendingLocked(id)
	p.mu.Unlock()
}

func (p *Pool) dropPendingLocked(id string) {
	for i, pid := range p.pending {
		if pid == id {
			p.pending = append(p.pending[:i], p.pending[i+1:]...)
			return
		}
	}
}

// PendingLen 待调度任务数
func (p *Pool) PendingLen() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.pending)
}

func (p *Pool) StartAutoCleanup(ctx context.Context, logger log.Logger, retention time.Duration, interval time.Duration) {
	logHelper := log.NewHelper(logger)
	logHelper.Infof("Task cleaner started, retention=%v, interval=%v", retention, interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logHelper.Info("closing task cleaner")
			return
		case <-ticker.C:
			if deleted := p.CleanupExpiredTasks(retention); deleted > 0 {
				logHelper.Infof("Task cleanup: deleted %d expired tasks", deleted)
			}
		}
	}
}

// CleanupExpiredTasks 清理完成时间早于 retention 之前的终态任务，返回清理数量
func (p *Pool) CleanupExpiredTasks(retention time.Duration) int {
	cutoff := time.Now().Add(-retention)

	p.mu.Lock()
	var removed []string
	for id, t := range p.tasks {
		if !t.GetStatus().Terminal() {
			continue
		}
		finishedAt := t.GetFinishedAt()
		if finishedAt.IsZero() {
			continue
		}
		if finishedAt.Before(cutoff) {
			delete(p.tasks, id)
			removed = append(removed, id)
		}
	}
	p.mu.Unlock()

	p.notifyRemoved(removed...)
	return len(removed)
}
