package task

import (
	"context"
	"fmt"
	"sync"
	"time"

	"slot4d/internal/biz/chart"
	"slot4d/internal/biz/game"
	"slot4d/internal/biz/store"
	"slot4d/internal/conf"
	"slot4d/internal/notify"
	"slot4d/pkg/xgo"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
)

const reportInterval = 5 * time.Second

// UploadBytesFunc 上传并返回可访问地址
type UploadBytesFunc func(ctx context.Context, bucket, key, contentType string, data []byte) (string, error)

// ExecDeps 任务执行依赖
type ExecDeps struct {
	Machine     game.Config
	UploadBytes UploadBytesFunc
	Conf        *conf.Simulation
	Notify      notify.Notifier
	Chart       chart.IGenerator
	Report      func(snap StatsSnapshot)
	OnComplete  func()
}

// machineConfig 以 base 为基础套用任务参数，第 i 个玩家使用独立种子
func (c *Config) machineConfig(base game.Config, i int) game.Config {
	mc := base
	mc.KillDigit.Enabled = c.KillDigits
	mc.KillDigit.Automated = c.KillDigits && base.KillDigit.Automated
	mc.Prize.DefaultChance = c.JackpotChance
	mc.StartingCredit = c.StartingCredit
	mc.Seed = 0
	if c.Seed != 0 {
		mc.Seed = c.Seed + uint64(i)
	}
	return mc
}

// Execute 运行全部玩家，结束后生成图表、通知并回调 OnComplete
func (t *Task) Execute(deps *ExecDeps) {
	if t.GetStatus() != StatusRunning {
		if !t.CompareAndSetStatus(StatusPending, StatusRunning) {
			t.log.Warnf("[%s] task status changed, skip execution", t.GetID())
			return
		}
	}

	monitorCtx, stopMonitor := context.WithCancel(context.Background())
	go t.stats.Monitor(monitorCtx)

	stopReporter, wg := t.startReporter(deps)

	t.runPlayers(deps)

	stopMonitor()
	stopReporter()
	wg.Wait()

	t.cleanup(deps)
}

// runPlayers 每个玩家一台独立机器，提交到 ants 池
func (t *Task) runPlayers(deps *ExecDeps) {
	cfg := t.GetConfig()
	var wg sync.WaitGroup
	submitErrCount := 0

	for i := 0; i < cfg.Players; i++ {
		if t.ctx.Err() != nil {
			break
		}
		playerID := fmt.Sprintf("%s-%d", t.GetID(), i+1)
		mc := cfg.machineConfig(deps.Machine, i)
		wg.Add(1)
		t.stats.MarkPlayerStart()
		if err := t.Submit(func() {
			defer wg.Done()
			failed := false
			defer func() { t.stats.MarkPlayerDone(failed) }()
			defer xgo.RecoverFromError(func(e any) {
				failed = true
				t.stats.AddError(fmt.Sprint(e))
			})
			failed = t.runPlayer(playerID, mc) != nil
		}); err != nil {
			wg.Done()
			t.stats.MarkPlayerDone(true)
			t.stats.AddError(err.Error())
			submitErrCount++
		}
	}

	if submitErrCount > 0 {
		t.log.Infof("[%s] failed to submit %d players to ants pool", t.GetID(), submitErrCount)
	}

	wg.Wait()
}

// runPlayer 连续旋转直到目标局数、余额不足或任务取消
func (t *Task) runPlayer(playerID string, mc game.Config) error {
	cfg := t.GetConfig()
	quiet := log.NewFilter(t.log.Logger(), log.FilterLevel(log.LevelWarn))
	m := game.NewMachine(playerID, mc, store.NewMemoryPrefs(), game.WithLogger(quiet))
	if cfg.Bet.IsPositive() {
		m.SetBet(t.ctx, cfg.Bet)
	}
	m.SetBypassCredit(cfg.Bypass)

	for i := 0; i < cfg.SpinsPerPlayer; i++ {
		if t.ctx.Err() != nil {
			return nil
		}
		start := time.Now()
		res, err := m.Spin(t.ctx)
		if err != nil {
			if errors.Is(err, game.ErrInsufficientBalance) {
				t.stats.MarkForcedStop()
				return nil
			}
			t.stats.AddError(err.Error())
			return err
		}
		t.stats.Record(res, time.Since(start))
	}
	return nil
}

func (t *Task) startReporter(deps *ExecDeps) (context.CancelFunc, *sync.WaitGroup) {
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)

	go func() {
		defer wg.Done()

		ticker := time.NewTicker(reportInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				t.report(deps, true)
				return
			case <-ticker.C:
				t.report(deps, false)
			}
		}
	}()

	return cancel, &wg
}

// report 上报任务指标；completed 时完成收尾
func (t *Task) report(deps *ExecDeps, completed bool) {
	if deps.Report != nil {
		deps.Report(t.stats.StatsSnapshot())
	}
	if !completed {
		return
	}

	ctx := context.Background()
	if t.CompareAndSetStatus(StatusRunning, StatusProcessing) {
		t.uploadChart(ctx, deps)
		snap := t.stats.StatsSnapshot()
		if snap.Config != nil && snap.FailedPlayers >= int64(snap.Config.Players) {
			t.SetStatus(StatusFailed)
		} else {
			t.SetStatus(StatusCompleted)
		}
	}

	snap := t.stats.StatsSnapshot()
	if deps.Report != nil {
		deps.Report(snap)
	}
	t.sendNotification(ctx, deps, snap)
	t.log.Infof("[%s] task %s, rtp=%.4f, use=%v", snap.ID, snap.Status, snap.RTP(), snap.Elapsed())
}

// uploadChart 生成 RTP 曲线并按配置上传 S3
func (t *Task) uploadChart(ctx context.Context, deps *ExecDeps) {
	c := deps.Conf
	if deps.Chart == nil || c == nil || (!c.GenerateLocal && !c.UploadToS3) {
		return
	}

	result, err := deps.Chart.Generate(t.stats.Points(), chart.Options{
		TaskID:    t.GetID(),
		Title:     "slot4d RTP 模拟",
		TargetRTP: deps.Machine.KillDigit.TargetRTP,
		Deviation: deps.Machine.KillDigit.Deviation,
		SaveLocal: c.GenerateLocal,
	})
	if err != nil {
		t.log.Errorf("failed to generate chart: %v", err)
		return
	}

	if !c.UploadToS3 || deps.UploadBytes == nil {
		return
	}

	htmlKey := "charts/" + t.GetID() + ".html"
	htmlURL, err := deps.UploadBytes(ctx, "", htmlKey, "text/html; charset=utf-8", []byte(result.HTMLContent))
	if err != nil {
		t.log.Errorf("failed to upload HTML to S3: %v", err)
		return
	}
	t.SetRecordURL(htmlURL)
}

// sendNotification 发送通知
func (t *Task) sendNotification(ctx context.Context, deps *ExecDeps, snap StatsSnapshot) {
	if deps.Notify == nil {
		return
	}
	msg := notify.BuildSimulationReport(buildReport(snap))
	xgo.Go(func() {
		if err := deps.Notify.Send(ctx, msg); err != nil {
			t.log.Warnf("[%s] notify task completion: %v", snap.ID, err)
		}
	}, nil)
}

func buildReport(snap StatsSnapshot) *notify.SimulationReport {
	r := &notify.SimulationReport{
		TaskID:      snap.ID,
		Description: snap.Description,
		Status:      snap.Status.String(),
		Process:     snap.Process,
		Target:      snap.Target,
		ProgressPct: snap.ProgressPct(),
		Duration:    xgo.FormatDuration(snap.Elapsed()),
		SPS:         snap.SPS(),
		AvgLatency:  snap.AvgLatency(),
		Wagered:     float64(snap.WageredCents) / 100,
		Won:         float64(snap.WonCents) / 100,
		RTPPct:      snap.RTP() * 100,
		HitPct:      snap.HitFrequency() * 100,
		Match2:      snap.Match2,
		Match3:      snap.Match3,
		Match4:      snap.Match4,
		Jackpots:    snap.Jackpots,
		Adjustments: snap.Adjustments,
		ForcedStops: snap.ForcedStops,
		Completed:   snap.CompletedPlayers,
		Failed:      snap.FailedPlayers,
		URL:         snap.RecordURL,
	}
	if snap.Config != nil {
		r.Players = snap.Config.Players
		r.SpinsPerPlayer = snap.Config.SpinsPerPlayer
	}
	return r
}

// cleanup 释放协程池并通知调度
func (t *Task) cleanup(deps *ExecDeps) {
	t.Stop()
	if deps.OnComplete != nil {
		deps.OnComplete()
	}
}
