package killdigit

import (
	"math"
	"slices"
	"sync"
	"time"

	"slot4d/internal/biz/digits"

	"github.com/go-kratos/kratos/v2/log"
)

// 调整原因
const (
	ReasonInitial   = "Initial random setup"
	ReasonRTPHigh   = "RTP too high"
	ReasonRTPLow    = "RTP too low"
	ReasonCycle     = "Cycle check"
	ReasonFourDigit = "4-digit win trigger"
	ReasonBigWin    = "Big win detected"
	ReasonManual    = "Manual override"
)

const maxAdjustmentLog = 50

// RTPSource 提供当前 RTP（由 ledger 实现）
type RTPSource interface {
	CurrentRTP() float64
}

// Config 杀号控制参数
type Config struct {
	Enabled            bool
	Automated          bool
	TargetRTP          float64
	Deviation          float64
	CycleSpins         int
	MaxKillDigits      int
	MinSpinsForAdjust  int
	InitialKillDigits  int
	RecentDigitsMemory int
	BigWinThreshold    float64
}

// DefaultConfig 默认参数
func DefaultConfig() Config {
	return Config{
		Enabled:            true,
		Automated:          true,
		TargetRTP:          0.95,
		Deviation:          0.03,
		CycleSpins:         50,
		MaxKillDigits:      4,
		MinSpinsForAdjust:  20,
		InitialKillDigits:  2,
		RecentDigitsMemory: 20,
		BigWinThreshold:    5000,
	}
}

// Adjustment 一次杀号调整记录
type Adjustment struct {
	Time       time.Time `json:"time"`
	Reason     string    `json:"reason"`
	RTP        float64   `json:"rtp"`
	KillDigits []int     `json:"kill_digits"`
}

// State 控制器状态快照
type State struct {
	Enabled              bool         `json:"enabled"`
	Automated            bool         `json:"automated"`
	KillDigits           []int        `json:"kill_digits"`
	Reason               string       `json:"reason"`
	TargetRTP            float64      `json:"target_rtp"`
	LastRTP              float64      `json:"last_rtp"`
	TotalSpins           int64        `json:"total_spins"`
	SpinsSinceAdjustment int          `json:"spins_since_adjustment"`
	FourDigitWins        int          `json:"four_digit_wins"`
	RecentWinDigits      []int        `json:"recent_win_digits"`
	Adjustments          []Adjustment `json:"adjustments"`
}

// Controller 根据 RTP 与事件触发调整杀号集合
type Controller struct {
	mu  sync.Mutex
	c   Config
	rtp RTPSource
	rnd digits.Source
	log *log.Helper

	kill          []int
	reason        string
	lastRTP       float64
	totalSpins    int64
	sinceAdjust   int
	fourDigitWins int
	recent        []int
	adjustments   []Adjustment
}

// New 创建控制器
func New(c Config, rtp RTPSource, rnd digits.Source, logger log.Logger) *Controller {
	c.MaxKillDigits = clamp(c.MaxKillDigits, 0, 9)
	if c.RecentDigitsMemory <= 0 {
		c.RecentDigitsMemory = 20
	}
	if rnd == nil {
		rnd = digits.NewSource(0)
	}
	if logger == nil {
		logger = log.GetLogger()
	}
	return &Controller{
		c:   c,
		rtp: rtp,
		rnd: rnd,
		log: log.NewHelper(logger),
	}
}

// Initialize 初始随机选取杀号；自动模式下同时开启杀号
func (k *Controller) Initialize() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.pick(k.c.InitialKillDigits, ReasonInitial)
	if k.c.Automated {
		k.c.Enabled = true
	}
}

// CountSpin 每次出号调用一次
func (k *Controller) CountSpin() {
	k.mu.Lock()
	k.totalSpins++
	k.sinceAdjust++
	k.mu.Unlock()
}

// OnOutcome 记录开奖结果并按优先级检查触发条件，只执行第一个命中的调整
func (k *Controller) OnOutcome(winAmount float64, fourDigit bool, spun string) (Adjustment, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if fourDigit {
		k.fourDigitWins++
		for i := 0; i < len(spun); i++ {
			if spun[i] < '0' || spun[i] > '9' {
				continue
			}
			k.recent = append(k.recent, int(spun[i]-'0'))
			if len(k.recent) > k.c.RecentDigitsMemory {
				k.recent = k.recent[1:]
			}
		}
	}

	if !k.c.Automated || k.totalSpins < int64(k.c.MinSpinsForAdjust) {
		return Adjustment{}, false
	}

	rtp := 0.0
	if k.rtp != nil {
		rtp = k.rtp.CurrentRTP()
	}
	k.lastRTP = rtp

	reason := ""
	switch {
	case math.Abs(rtp-k.c.TargetRTP) > k.c.Deviation:
		reason = ReasonRTPLow
		if rtp > k.c.TargetRTP {
			reason = ReasonRTPHigh
		}
	case k.sinceAdjust >= k.c.CycleSpins:
		reason = ReasonCycle
	case fourDigit && k.fourDigitWins%2 == 0:
		reason = ReasonFourDigit
	case winAmount > k.c.BigWinThreshold:
		reason = ReasonBigWin
	default:
		return Adjustment{}, false
	}

	adj := k.adjust(rtp, reason)
	k.sinceAdjust = 0
	return adj, true
}

// adjust 依据 RTP 偏离方向决定新杀号数量
func (k *Controller) adjust(rtp float64, reason string) Adjustment {
	n := len(k.kill)
	switch {
	case rtp > k.c.TargetRTP+k.c.Deviation:
		n = max(n-1, 0)
	case rtp < k.c.TargetRTP-k.c.Deviation:
		n = min(n+1, k.c.MaxKillDigits)
	default:
		if k.c.MaxKillDigits > 0 {
			n = 1 + k.rnd.IntN(k.c.MaxKillDigits)
		} else {
			n = 0
		}
	}
	k.pick(n, reason)
	adj := Adjustment{Time: time.Now(), Reason: reason, RTP: rtp, KillDigits: slices.Clone(k.kill)}
	k.adjustments = append(k.adjustments, adj)
	if len(k.adjustments) > maxAdjustmentLog {
		k.adjustments = k.adjustments[1:]
	}
	k.log.Debugf("kill digits adjusted: reason=%q rtp=%.4f kill=%v", reason, rtp, k.kill)
	return adj
}

// pick 从非近期中奖数字中不放回地抽取 count 个杀号，至少保留一个可用数字
func (k *Controller) pick(count int, reason string) {
	candidates := make([]int, 0, 10)
	for d := 0; d <= 9; d++ {
		if !slices.Contains(k.recent, d) {
			candidates = append(candidates, d)
		}
	}
	count = min(count, min(k.c.MaxKillDigits, len(candidates)-1))
	if count < 0 {
		count = 0
	}
	kill := make([]int, 0, count)
	for i := 0; i < count && len(candidates) > 0; i++ {
		j := k.rnd.IntN(len(candidates))
		kill = append(kill, candidates[j])
		candidates = append(candidates[:j], candidates[j+1:]...)
	}
	k.kill = kill
	k.reason = reason
}

// Allowed 当前可用数字；杀号关闭时为 0-9
func (k *Controller) Allowed() []int {
	k.mu.Lock()
	defer k.mu.Unlock()
	if !k.c.Enabled {
		return slices.Clone(digits.AllDigits)
	}
	return digits.Allowed(k.kill)
}

// KillDigits 当前杀号
func (k *Controller) KillDigits() []int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return slices.Clone(k.kill)
}

// Enabled 杀号是否生效
func (k *Controller) Enabled() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.c.Enabled
}

// SetKillDigits 手动指定杀号（允许覆盖全部 10 个数字，生成器负责回退）
func (k *Controller) SetKillDigits(kill []int) {
	k.mu.Lock()
	defer k.mu.Unlock()
	out := make([]int, 0, len(kill))
	for _, d := range kill {
		if d >= 0 && d <= 9 && !slices.Contains(out, d) {
			out = append(out, d)
		}
	}
	k.kill = out
	k.reason = ReasonManual
}

// SetEnabled 开关杀号
func (k *Controller) SetEnabled(enabled bool) {
	k.mu.Lock()
	k.c.Enabled = enabled
	k.mu.Unlock()
}

// SetAutomated 开关自动调整；开启时重新初始化
func (k *Controller) SetAutomated(automated bool) {
	k.mu.Lock()
	k.c.Automated = automated
	k.mu.Unlock()
	if automated {
		k.Initialize()
	}
}

// SetTargetRTP 设置目标 RTP，限制在 [0.8, 0.99]
func (k *Controller) SetTargetRTP(target float64) {
	k.mu.Lock()
	k.c.TargetRTP = math.Min(math.Max(target, 0.8), 0.99)
	k.mu.Unlock()
}

// State 返回状态快照
func (k *Controller) State() State {
	k.mu.Lock()
	defer k.mu.Unlock()
	return State{
		Enabled:              k.c.Enabled,
		Automated:            k.c.Automated,
		KillDigits:           slices.Clone(k.kill),
		Reason:               k.reason,
		TargetRTP:            k.c.TargetRTP,
		LastRTP:              k.lastRTP,
		TotalSpins:           k.totalSpins,
		SpinsSinceAdjustment: k.sinceAdjust,
		FourDigitWins:        k.fourDigitWins,
		RecentWinDigits:      slices.Clone(k.recent),
		Adjustments:          slices.Clone(k.adjustments),
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
