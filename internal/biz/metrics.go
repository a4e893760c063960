package biz

import (
	"strconv"

	"slot4d/internal/biz/game"
	"slot4d/internal/biz/task"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 通用标签
const labelTaskID, labelPlayer = "task_id", "player"

// RTP 里程碑间隔：每 50 万局标注一次
const rtpMilestoneStep = int64(500000)

// 玩家机器
var (
	gPlayerBalance    = newPlayerGauge("slot4d_player_balance", "当前余额")
	gPlayerRTP        = newPlayerGauge("slot4d_player_rtp", "累计 RTP")
	gPlayerSessionRTP = newPlayerGauge("slot4d_player_session_rtp", "本次会话 RTP")
	gPlayerHitFreq    = newPlayerGauge("slot4d_player_hit_frequency", "命中率")
	gPlayerSpins      = newPlayerGauge("slot4d_player_spins", "累计局数")
	gPlayerJackpots   = newPlayerGauge("slot4d_player_jackpots", "累计头奖次数")
	gPlayerKillDigits = newPlayerGauge("slot4d_player_kill_digits", "当前杀号个数")
	gActivePlayers    = promauto.NewGauge(prometheus.GaugeOpts{Name: "slot4d_active_players", Help: "已加载的玩家机器数"})
)

// 模拟任务进度与 RTP
var (
	gProgressPct  = newTaskGauge("slot4d_sim_progress_pct", "任务进度 (0-100)")
	gSPS          = newTaskGauge("slot4d_sim_sps", "每秒局数")
	gActive       = newTaskGauge("slot4d_sim_active_players", "运行中玩家数")
	gCompleted    = newTaskGauge("slot4d_sim_completed_players", "已完成玩家数")
	gFailed       = newTaskGauge("slot4d_sim_failed_players", "失败玩家数")
	gForcedStops  = newTaskGauge("slot4d_sim_forced_stops", "余额不足结束数")
	gDurationSec  = newTaskGauge("slot4d_sim_duration_seconds", "运行时长(秒)")
	gTotalBet     = newTaskGauge("slot4d_sim_total_bet", "总下注")
	gTotalWin     = newTaskGauge("slot4d_sim_total_win", "总赢")
	gRTPPct       = newTaskGauge("slot4d_sim_rtp_pct", "RTP %")
	gHitPct       = newTaskGauge("slot4d_sim_hit_pct", "命中率 %")
	gJackpots     = newTaskGauge("slot4d_sim_jackpots", "头奖次数")
	gAdjustments  = newTaskGauge("slot4d_sim_adjustments", "杀号调整次数")
	gRTPMilestone = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "slot4d_sim_rtp_milestone",
		Help: "RTP at 500k spin milestones (for annotations)",
	}, []string{labelTaskID, "milestone"})
)

func newPlayerGauge(name, help string) *prometheus.GaugeVec {
	return promauto.NewGaugeVec(prometheus.GaugeOpts{Name: name, Help: help}, []string{labelPlayer})
}

func newTaskGauge(name, help string) *prometheus.GaugeVec {
	return promauto.NewGaugeVec(prometheus.GaugeOpts{Name: name, Help: help}, []string{labelTaskID})
}

func set(g *prometheus.GaugeVec, labels prometheus.Labels, v float64) { g.With(labels).Set(v) }

// ReportMachine 每局结束后刷新玩家指标
func ReportMachine(m *game.Machine) {
	labels := prometheus.Labels{labelPlayer: m.ID()}
	life := m.Ledger().Lifetime()
	set(gPlayerBalance, labels, m.Account().Balance().InexactFloat64())
	set(gPlayerRTP, labels, m.Ledger().CurrentRTP())
	set(gPlayerSessionRTP, labels, m.Ledger().SessionRTP())
	set(gPlayerHitFreq, labels, m.Ledger().HitFrequency())
	set(gPlayerSpins, labels, float64(life.Spins))
	set(gPlayerJackpots, labels, float64(life.Jackpots))
	set(gPlayerKillDigits, labels, float64(len(m.KillDigits().KillDigits())))
}

// taskReporter 记录上次里程碑，供 ExecDeps.Report 周期调用
type taskReporter struct {
	lastMilestone int64
}

func newTaskReporter() func(snap task.StatsSnapshot) {
	r := &taskReporter{}
	return r.report
}

func (r *taskReporter) report(snap task.StatsSnapshot) {
	labels := prometheus.Labels{labelTaskID: snap.ID}
	rtp := snap.RTP() * 100

	for m := r.lastMilestone + rtpMilestoneStep; m <= snap.Process; m += rtpMilestoneStep {
		gRTPMilestone.With(prometheus.Labels{labelTaskID: snap.ID, "milestone": strconv.FormatInt(m, 10)}).Set(rtp)
		r.lastMilestone = m
	}

	set(gProgressPct, labels, snap.ProgressPct())
	set(gSPS, labels, snap.SPS())
	set(gActive, labels, float64(snap.ActivePlayers))
	set(gCompleted, labels, float64(snap.CompletedPlayers))
	set(gFailed, labels, float64(snap.FailedPlayers))
	set(gForcedStops, labels, float64(snap.ForcedStops))
	set(gDurationSec, labels, snap.Elapsed().Seconds())
	set(gTotalBet, labels, float64(snap.WageredCents)/100)
	set(gTotalWin, labels, float64(snap.WonCents)/100)
	set(gRTPPct, labels, rtp)
	set(gHitPct, labels, snap.HitFrequency()*100)
	set(gJackpots, labels, float64(snap.Jackpots))
	set(gAdjustments, labels, float64(snap.Adjustments))
}

// dropTaskMetrics 任务被清理后移除标签
func dropTaskMetrics(taskID string) {
	labels := prometheus.Labels{labelTaskID: taskID}
	for _, g := range []*prometheus.GaugeVec{
		gProgressPct, gSPS, gActive, gCompleted, gFailed, gForcedStops, gDurationSec,
		gTotalBet, gTotalWin, gRTPPct, gHitPct, gJackpots, gAdjustments,
	} {
		g.Delete(labels)
	}
	gRTPMilestone.DeletePartialMatch(labels)
}
