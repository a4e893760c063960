package task

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"slot4d/internal/biz/chart"
	"slot4d/internal/biz/game"
	"slot4d/pkg/xgo"

	"github.com/go-kratos/kratos/v2/log"
)

const (
	defaultSampleEvery = 1000
	pointUnit          = 1e4
	timeLayout         = "2006-01-02 15:04:05"
)

// StatsSnapshot 完整快照（元数据+统计），一次性返回
type StatsSnapshot struct {
	ID                                             string
	Description                                    string
	Status                                         Status
	Config                                         *Config
	Process, Target                                int64
	WageredCents, WonCents                         int64
	Wins                                           int64
	Match2, Match3, Match4                         int64
	Jackpots                                       int64
	Adjustments                                    int64
	ForcedStops                                    int64
	TotalDuration                                  time.Duration
	ActivePlayers, CompletedPlayers, FailedPlayers int64
	CreatedAt, StartAt, FinishedAt                 time.Time
	RecordURL                                      string
	ErrorCounts                                    map[string]int64
}

// TaskStats 任务统计
type TaskStats struct {
	meta *taskMeta // 与 Task 共享

	process      atomic.Int64
	target       atomic.Int64
	wageredCents atomic.Int64
	wonCents     atomic.Int64
	wins         atomic.Int64
	match2       atomic.Int64
	match3       atomic.Int64
	match4       atomic.Int64
	jackpots     atomic.Int64
	adjustments  atomic.Int64
	forcedStops  atomic.Int64

	totalDuration atomic.Int64

	activePlayers    atomic.Int64
	completedPlayers atomic.Int64
	failedPlayers    atomic.Int64

	sampleEvery int64
	pointMu     sync.Mutex
	points      []chart.Point

	errorMu     sync.Mutex
	errorCounts map[string]int64
}

func NewTaskStats(target, sampleEvery int64, meta *taskMeta) *TaskStats {
	if sampleEvery <= 0 {
		sampleEvery = defaultSampleEvery
	}
	s := &TaskStats{
		meta:        meta,
		sampleEvery: sampleEvery,
		errorCounts: make(map[string]int64),
	}
	s.target.Store(target)
	return s
}

func (s *TaskStats) MarkPlayerStart() {
	s.activePlayers.Add(1)
}

func (s *TaskStats) MarkPlayerDone(failed bool) {
	s.activePlayers.Add(-1)
	if failed {
		s.failedPlayers.Add(1)
	} else {
		s.completedPlayers.Add(1)
	}
}

// MarkForcedStop 余额不足提前结束
func (s *TaskStats) MarkForcedStop() {
	s.forcedStops.Add(1)
}

// Record 记录一局结果；每 sampleEvery 局采样一次累计 RTP
func (s *TaskStats) Record(r *game.SpinResult, duration time.Duration) {
	s.wageredCents.Add(r.Placed.Shift(2).IntPart())
	if r.Won() {
		s.wonCents.Add(r.Total.Shift(2).IntPart())
		s.wins.Add(1)
	}
	switch r.BestMatch {
	case 2:
		s.match2.Add(1)
	case 3:
		s.match3.Add(1)
	case 4:
		s.match4.Add(1)
	}
	if r.JackpotHit {
		s.jackpots.Add(1)
	}
	if r.Adjustment != nil {
		s.adjustments.Add(1)
	}
	s.totalDuration.Add(duration.Nanoseconds())

	if n := s.process.Add(1); n%s.sampleEvery == 0 {
		s.addPoint(n)
	}
}

func (s *TaskStats) addPoint(n int64) {
	p := chart.Point{
		X:    float64(n) / pointUnit,
		Y:    rtp(s.wonCents.Load(), s.wageredCents.Load()),
		Time: time.Now().Format(timeLayout),
	}
	s.pointMu.Lock()
	s.points = append(s.points, p)
	s.pointMu.Unlock()
}

// Points 按局数升序返回采样点，末尾补一个当前点
func (s *TaskStats) Points() []chart.Point {
	s.pointMu.Lock()
	out := slices.Clone(s.points)
	s.pointMu.Unlock()
	slices.SortFunc(out, func(a, b chart.Point) int {
		switch {
		case a.X < b.X:
			return -1
		case a.X > b.X:
			return 1
		}
		return 0
	})
	if n := s.process.Load(); n > 0 && (len(out) == 0 || out[len(out)-1].X < float64(n)/pointUnit) {
		out = append(out, chart.Point{
			X:    float64(n) / pointUnit,
			Y:    rtp(s.wonCents.Load(), s.wageredCents.Load()),
			Time: time.Now().Format(timeLayout),
		})
	}
	return out
}

func (s *TaskStats) AddError(errMsg string) {
	s.errorMu.Lock()
	s.errorCounts[errMsg]++
	s.errorMu.Unlock()
}

// StatsSnapshot 一次性返回完整快照（元数据+统计）
func (s *TaskStats) StatsSnapshot() StatsSnapshot {
	s.meta.mu.RLock()
	id, desc, status, cfg := s.meta.id, s.meta.description, s.meta.status, s.meta.config
	createdAt, startAt, finishedAt, url := s.meta.createdAt, s.meta.startAt, s.meta.finishedAt, s.meta.recordURL
	s.meta.mu.RUnlock()

	s.errorMu.Lock()
	ec := make(map[string]int64, len(s.errorCounts))
	for k, v := range s.errorCounts {
		ec[k] = v
	}
	s.errorMu.Unlock()

	return StatsSnapshot{
		ID:               id,
		Description:      desc,
		Status:           status,
		Config:           cfg,
		Process:          s.process.Load(),
		Target:           s.target.Load(),
		WageredCents:     s.wageredCents.Load(),
		WonCents:         s.wonCents.Load(),
		Wins:             s.wins.Load(),
		Match2:           s.match2.Load(),
		Match3:           s.match3.Load(),
		Match4:           s.match4.Load(),
		Jackpots:         s.jackpots.Load(),
		Adjustments:      s.adjustments.Load(),
		ForcedStops:      s.forcedStops.Load(),
		TotalDuration:    time.Duration(s.totalDuration.Load()),
		ActivePlayers:    s.activePlayers.Load(),
		CompletedPlayers: s.completedPlayers.Load(),
		FailedPlayers:    s.failedPlayers.Load(),
		CreatedAt:        createdAt,
		StartAt:          startAt,
		FinishedAt:       finishedAt,
		RecordURL:        url,
		ErrorCounts:      ec,
	}
}

func rtp(won, wagered int64) float64 {
	if wagered <= 0 {
		return 0
	}
	return float64(won) / float64(wagered)
}

// RTP 累计返奖率
func (s *StatsSnapshot) RTP() float64 {
	return rtp(s.WonCents, s.WageredCents)
}

// HitFrequency 中奖局占比
func (s *StatsSnapshot) HitFrequency() float64 {
	if s.Process <= 0 {
		return 0
	}
	return float64(s.Wins) / float64(s.Process)
}

// ProgressPct 进度百分比
func (s *StatsSnapshot) ProgressPct() float64 {
	return xgo.PctCap100(s.Process, s.Target)
}

// Elapsed 从开始到结束（未结束取当前时间）
func (s *StatsSnapshot) Elapsed() time.Duration {
	start := s.StartAt
	if start.IsZero() {
		start = s.CreatedAt
	}
	end := time.Now()
	if !s.FinishedAt.IsZero() {
		end = s.FinishedAt
	}
	if end.Before(start) {
		return 0
	}
	return end.Sub(start)
}

// SPS 每秒局数
func (s *StatsSnapshot) SPS() float64 {
	d := s.Elapsed().Seconds()
	if d <= 0 {
		return 0
	}
	return float64(s.Process) / d
}

// AvgLatency 单局平均耗时
func (s *StatsSnapshot) AvgLatency() string {
	return xgo.AvgDuration(s.TotalDuration, s.Process)
}

// Monitor 启动进度监控，ctx 取消后输出最终统计
func (s *TaskStats) Monitor(ctx context.Context) {
	start := time.Now()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.printFinalStats(start)
			return
		case <-ticker.C:
			s.printProgress(start)
		}
	}
}

func (s *TaskStats) printProgress(start time.Time) {
	snap := s.StatsSnapshot()
	elapsed := time.Since(start)
	pct := snap.ProgressPct()
	remaining := time.Duration(0)
	if pct > 0 {
		remaining = time.Duration(int64(float64(elapsed)/pct*100)) - elapsed
	}
	log.Infof("[%s]: 进度:%d/%d(%.2f%%), 用时:%s, 剩余:%s, SPS:%.2f, RTP:%.4f, 命中率:%.4f    ",
		snap.ID, snap.Process, snap.Target, pct,
		xgo.ShortDuration(elapsed), xgo.ShortDuration(remaining),
		float64(snap.Process)/elapsed.Seconds(), snap.RTP(), snap.HitFrequency(),
	)
}

func (s *TaskStats) printFinalStats(start time.Time) {
	snap := s.StatsSnapshot()
	elapsed := time.Since(start)
	log.Infof("[%s] 任务结束: 进度:%d/%d, 耗时:%v, SPS:%.2f, RTP:%.4f, 头奖:%d, 调整:%d, 提前结束:%d, 平均耗时:%s",
		snap.ID, snap.Process, snap.Target, elapsed,
		float64(snap.Process)/elapsed.Seconds(), snap.RTP(),
		snap.Jackpots, snap.Adjustments, snap.ForcedStops,
		snap.AvgLatency(),
	)
}
