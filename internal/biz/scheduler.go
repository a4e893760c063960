package biz

import (
	"context"

	"slot4d/internal/biz/task"

	"github.com/go-kratos/kratos/v2/errors"
)

var (
	ErrTaskNotFound    = errors.New(404, "TASK_NOT_FOUND", "task not found")
	ErrTaskLimitExceed = errors.New(400, "TASK_LIMIT_EXCEEDED", "simulation size exceeds the configured limit")
)

// scheduleLoop 调度器主循环，阻塞等待任务变更信号
func (uc *UseCase) scheduleLoop() {
	for {
		select {
		case <-uc.ctx.Done():
			return
		case <-uc.scheduleCh:
			uc.doSchedule()
		}
	}
}

// doSchedule 执行实际调度逻辑
func (uc *UseCase) doSchedule() {
	for {
		select {
		case <-uc.ctx.Done():
			return
		default:
		}

		// 单线程，控制宿主机cpu+内存; 控制一个任务在跑
		if uc.taskPool.IsRateLimited(1) {
			return
		}

		taskID, t, ok := uc.taskPool.PeekPending()
		if !ok {
			return
		}
		if t == nil || t.GetStatus() != task.StatusPending || t.GetConfig() == nil {
			uc.taskPool.DropPendingHead()
			continue
		}
		if !uc.taskPool.DequeuePending(taskID) {
			continue
		}
		if !t.CompareAndSetStatus(task.StatusPending, task.StatusRunning) {
			continue
		}
		go uc.runTask(t)
	}
}

// WakeScheduler 唤醒调度器（非阻塞）
func (uc *UseCase) WakeScheduler() {
	select {
	case uc.scheduleCh <- struct{}{}:
	default: // channel 已满，已有待处理信号
	}
}

// runTask 执行任务，cleanup 后通过回调唤醒调度
func (uc *UseCase) runTask(t *task.Task) {
	deps := &task.ExecDeps{
		Machine:     uc.machineConf,
		UploadBytes: uc.repo.UploadBytes,
		Conf:        uc.sim,
		Notify:      uc.notify,
		Chart:       uc.chart,
		Report:      newTaskReporter(),
		OnComplete:  uc.WakeScheduler,
	}
	t.Execute(deps)
}

// CreateTask 校验规模后入队等待调度
func (uc *UseCase) CreateTask(ctx context.Context, description string, config *task.Config) (*task.Task, error) {
	if config == nil {
		return nil, errors.New(400, "INVALID_TASK_CONFIG", "config is required")
	}
	if limit := int(uc.sim.MaxPlayers); limit > 0 && config.Players > limit {
		return nil, ErrTaskLimitExceed.WithMetadata(map[string]string{"field": "players"})
	}
	if limit := int(uc.sim.MaxSpinsPerPlayer); limit > 0 && config.SpinsPerPlayer > limit {
		return nil, ErrTaskLimitExceed.WithMetadata(map[string]string{"field": "spins_per_player"})
	}
	if config.SampleEvery <= 0 && uc.sim.SampleEvery > 0 {
		config.SampleEvery = int64(uc.sim.SampleEvery)
	}

	taskID, err := uc.repo.NextTaskID(ctx)
	if err != nil {
		return nil, err
	}

	t, err := task.NewTask(uc.ctx, taskID, description, config, uc.logger)
	if err != nil {
		return nil, errors.Newf(400, "INVALID_TASK_CONFIG", "%v", err)
	}

	uc.taskPool.Add(t)
	uc.WakeScheduler()
	return t, nil
}

// DeleteTask 删除任务（异步，不等待 Execute 退出）
func (uc *UseCase) DeleteTask(id string) error {
	t, ok := uc.taskPool.Remove(id)
	if !ok {
		return nil
	}
	t.Stop()
	return nil
}

// CancelTask 取消任务（异步，不等待 Execute 退出）
func (uc *UseCase) CancelTask(id string) error {
	t, ok := uc.taskPool.Get(id)
	if !ok {
		return ErrTaskNotFound
	}
	pending := t.GetStatus() == task.StatusPending
	if err := t.Cancel(); err != nil {
		return errors.Newf(409, "TASK_FINISHED", "%v", err)
	}
	uc.taskPool.DropPending(id)
	// 未调度的任务不会进入 Execute，需自行释放协程池
	if pending {
		t.Stop()
	}
	uc.WakeScheduler()
	return nil
}
