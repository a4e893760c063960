package notify

import (
	"context"
)

type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelWarn
)

// Message 通知消息
type Message struct {
	Title   string
	Content string
	Level   Level
}

// Notifier 通知发送接口
type Notifier interface {
	Send(ctx context.Context, msg *Message) error
}

// SimulationReport RTP 模拟结束报告
type SimulationReport struct {
	TaskID         string
	Description    string
	Status         string
	Players        int
	SpinsPerPlayer int
	Process        int64
	Target         int64
	ProgressPct    float64
	Duration       string
	SPS            float64
	AvgLatency     string
	Wagered        float64
	Won            float64
	RTPPct         float64
	HitPct         float64
	Match2         int64
	Match3         int64
	Match4         int64
	Jackpots       int64
	Adjustments    int64
	ForcedStops    int64
	Completed      int64
	Failed         int64
	URL            string
}

// Noop 空实现
type Noop struct{}

func (Noop) Send(context.Context, *Message) error { return nil }
