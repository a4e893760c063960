package service

import (
	"context"
	"strings"
	"time"

	"slot4d/internal/biz"
	"slot4d/internal/biz/task"
	"slot4d/pkg/xgo"
)

type CreateTaskRequest struct {
	Description string      `json:"description"`
	Config      task.Config `json:"config"`
}

type TaskRequest struct {
	TaskID string `json:"task_id"`
}

type ListTasksRequest struct {
	Status string `json:"status"`
}

// TaskView 任务详情
type TaskView struct {
	TaskID      string           `json:"task_id"`
	Description string           `json:"description"`
	Status      task.Status      `json:"status"`
	Config      *task.Config     `json:"config"`
	Process     int64            `json:"process"`
	Target      int64            `json:"target"`
	ProgressPct float64          `json:"progress_pct"`
	RTP         float64          `json:"rtp"`
	HitRate     float64          `json:"hit_rate"`
	Wagered     float64          `json:"wagered"`
	Won         float64          `json:"won"`
	Match2      int64            `json:"match2"`
	Match3      int64            `json:"match3"`
	Match4      int64            `json:"match4"`
	Jackpots    int64            `json:"jackpots"`
	Adjustments int64            `json:"adjustments"`
	ForcedStops int64            `json:"forced_stops"`
	SPS         float64          `json:"sps"`
	Elapsed     string           `json:"elapsed"`
	RecordURL   string           `json:"record_url,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	FinishedAt  *time.Time       `json:"finished_at,omitempty"`
	Errors      map[string]int64 `json:"errors,omitempty"`
}

// CreateTask 创建 RTP 模拟任务
func (s *SlotService) CreateTask(ctx context.Context, in *CreateTaskRequest) (*Reply, error) {
	cfg := in.Config
	t, err := s.uc.CreateTask(ctx, in.Description, &cfg)
	if err != nil {
		s.log.Errorf("CreateTask failed: %v", err)
		return fail(err), nil
	}
	return ok(buildTask(t)), nil
}

// TaskInfo 获取任务详情
func (s *SlotService) TaskInfo(_ context.Context, in *TaskRequest) (*Reply, error) {
	t, err := s.getTask(in.TaskID)
	if err != nil {
		return fail(err), nil
	}
	return ok(buildTask(t)), nil
}

// ListTasks status 为空时返回全部
func (s *SlotService) ListTasks(_ context.Context, in *ListTasksRequest) (*Reply, error) {
	status := strings.ToLower(strings.TrimSpace(in.Status))
	all := s.uc.ListTasks()
	tasks := make([]*TaskView, 0, len(all))
	for _, t := range all {
		if status != "" && t.GetStatus().String() != status {
			continue
		}
		tasks = append(tasks, buildTask(t))
	}
	return ok(tasks), nil
}

// CancelTask 取消任务
func (s *SlotService) CancelTask(_ context.Context, in *TaskRequest) (*Reply, error) {
	t, err := s.getTask(in.TaskID)
	if err != nil {
		return fail(err), nil
	}
	if err = s.uc.CancelTask(t.GetID()); err != nil {
		return fail(err), nil
	}
	return ok(nil), nil
}

// DeleteTask 删除任务
func (s *SlotService) DeleteTask(_ context.Context, in *TaskRequest) (*Reply, error) {
	t, err := s.getTask(in.TaskID)
	if err != nil {
		return fail(err), nil
	}
	if err := s.uc.DeleteTask(t.GetID()); err != nil {
		s.log.Errorf("DeleteTask failed: %v", err)
		return fail(err), nil
	}
	return ok(nil), nil
}

func (s *SlotService) getTask(taskID string) (*task.Task, error) {
	if taskID = strings.TrimSpace(taskID); taskID == "" {
		return nil, biz.ErrTaskNotFound.WithMetadata(map[string]string{"task_id": ""})
	}
	if t, found := s.uc.GetTask(taskID); found {
		return t, nil
	}
	return nil, biz.ErrTaskNotFound
}

func buildTask(t *task.Task) *TaskView {
	snap := t.GetStats().StatsSnapshot()
	v := &TaskView{
		TaskID:      snap.ID,
		Description: snap.Description,
		Status:      snap.Status,
		Config:      snap.Config,
		Process:     snap.Process,
		Target:      snap.Target,
		ProgressPct: snap.ProgressPct(),
		RTP:         snap.RTP(),
		HitRate:     snap.HitFrequency(),
		Wagered:     float64(snap.WageredCents) / 100,
		Won:         float64(snap.WonCents) / 100,
		Match2:      snap.Match2,
		Match3:      snap.Match3,
		Match4:      snap.Match4,
		Jackpots:    snap.Jackpots,
		Adjustments: snap.Adjustments,
		ForcedStops: snap.ForcedStops,
		SPS:         snap.SPS(),
		Elapsed:     xgo.FormatDuration(snap.Elapsed()),
		RecordURL:   snap.RecordURL,
		CreatedAt:   snap.CreatedAt,
		Errors:      snap.ErrorCounts,
	}
	if !snap.FinishedAt.IsZero() {
		finished := snap.FinishedAt
		v.FinishedAt = &finished
	}
	return v
}
