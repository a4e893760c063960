package autospin

import (
	"context"
	"sync"
	"time"

	"github.com/go-kratos/kratos/v2/log"
)

// Infinite 无限自动旋转
const Infinite = -1

// Options 自动旋转档位
var Options = []int{10, 25, 50, 100, Infinite}

// DefaultPause 每局展示结束后的间隔
const DefaultPause = 1200 * time.Millisecond

// 停止原因
const (
	StopCompleted  = "completed"
	StopManual     = "stopped"
	StopCannotSpin = "cannot spin"
	StopSpinFailed = "spin failed"
)

type State int

const (
	Idle State = iota
	Running
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "idle"
}

type Phase int

const (
	PhaseReady Phase = iota
	PhaseAwaiting
	PhaseCooldown
)

func (p Phase) String() string {
	switch p {
	case PhaseAwaiting:
		return "awaiting"
	case PhaseCooldown:
		return "cooldown"
	default:
		return "ready"
	}
}

// Spinner 被驱动的机台
type Spinner interface {
	CanSpin() bool
	Spin() error
	Busy() bool
}

// Blocker 展示层是否阻塞（大奖弹窗）
type Blocker interface {
	Blocked() bool
}

// Status 状态快照
type Status struct {
	State      string `json:"state"`
	Phase      string `json:"phase"`
	Paused     bool   `json:"paused"`
	Infinite   bool   `json:"infinite"`
	Total      int    `json:"total"`
	Done       int    `json:"done"`
	Remaining  int    `json:"remaining"`
	StopReason string `json:"stop_reason,omitempty"`
}

// Sequencer 由 Tick 驱动的自动旋转状态机
type Sequencer struct {
	mu      sync.Mutex
	spinner Spinner
	blocker Blocker
	pause   time.Duration
	log     *log.Helper

	state      State
	phase      Phase
	paused     bool
	infinite   bool
	total      int
	done       int
	readyAt    time.Time
	stopReason string
	// gen 每次开始或停止递增，用于丢弃旧一轮在途 Spin 的结果
	gen uint64
}

// New 创建自动旋转器；blocker 可为空
func New(spinner Spinner, blocker Blocker, pause time.Duration, logger log.Logger) *Sequencer {
	if pause <= 0 {
		pause = DefaultPause
	}
	if logger == nil {
		logger = log.GetLogger()
	}
	return &Sequencer{
		spinner: spinner,
		blocker: blocker,
		pause:   pause,
		log:     log.NewHelper(logger),
	}
}

// Start 开始 count 局；count 为 Infinite 时等同 StartInfinite
func (s *Sequencer) Start(count int) bool {
	if count == Infinite {
		s.StartInfinite()
		return true
	}
	if count <= 0 {
		return false
	}
	s.mu.Lock()
	s.begin(false, count)
	s.mu.Unlock()
	return true
}

func (s *Sequencer) StartInfinite() {
	s.mu.Lock()
	s.begin(true, 0)
	s.mu.Unlock()
}

func (s *Sequencer) begin(infinite bool, count int) {
	s.gen++
	s.state = Running
	s.phase = PhaseReady
	s.paused = false
	s.infinite = infinite
	s.total = count
	s.done = 0
	s.stopReason = ""
}

// Stop 停止自动旋转，不回滚进行中的一局
func (s *Sequencer) Stop() {
	s.mu.Lock()
	s.stop(StopManual)
	s.mu.Unlock()
}

func (s *Sequencer) stop(reason string) {
	if s.state == Idle {
		return
	}
	s.gen++
	s.state = Idle
	s.phase = PhaseReady
	s.paused = false
	s.stopReason = reason
	s.log.Debugf("auto spin stopped: reason=%s done=%d", reason, s.done)
}

func (s *Sequencer) Pause() {
	s.mu.Lock()
	if s.state == Running {
		s.paused = true
	}
	s.mu.Unlock()
}

func (s *Sequencer) Resume() {
	s.mu.Lock()
	s.paused = false
	s.mu.Unlock()
}

func (s *Sequencer) blocked() bool {
	return s.blocker != nil && s.blocker.Blocked()
}

// Tick 推进一步
func (s *Sequencer) Tick(now time.Time) {
	s.mu.Lock()
	if s.state == Idle || s.paused || s.blocked() {
		s.mu.Unlock()
		return
	}
	switch s.phase {
	case PhaseReady:
		if !s.spinner.CanSpin() {
			s.stop(StopCannotSpin)
			s.mu.Unlock()
			return
		}
		s.phase = PhaseAwaiting
		s.done++
		gen := s.gen
		s.mu.Unlock()

		err := s.spinner.Spin()

		s.mu.Lock()
		if gen != s.gen {
			if err != nil {
				s.log.Debugf("stale auto spin failed after restart: %v", err)
			}
			s.mu.Unlock()
			return
		}
		if err != nil {
			s.done--
			s.log.Warnf("auto spin failed: %v", err)
			s.stop(StopSpinFailed)
		}
		s.mu.Unlock()
		return
	case PhaseAwaiting:
		if !s.spinner.Busy() {
			s.phase = PhaseCooldown
			s.readyAt = now.Add(s.pause)
		}
	case PhaseCooldown:
		if now.Before(s.readyAt) {
			break
		}
		if !s.infinite && s.done >= s.total {
			s.stop(StopCompleted)
			break
		}
		s.phase = PhaseReady
	}
	s.mu.Unlock()
}

// Run 按 interval 驱动 Tick，直到 ctx 结束
func (s *Sequencer) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.Tick(now)
		}
	}
}

func (s *Sequencer) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == Running
}

func (s *Sequencer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Sequencer) Infinite() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.infinite
}

// Remaining 剩余局数，无限模式返回 Infinite
func (s *Sequencer) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remaining()
}

func (s *Sequencer) remaining() int {
	if s.infinite {
		return Infinite
	}
	return max(s.total-s.done, 0)
}

func (s *Sequencer) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		State:      s.state.String(),
		Phase:      s.phase.String(),
		Paused:     s.paused,
		Infinite:   s.infinite,
		Total:      s.total,
		Done:       s.done,
		Remaining:  s.remaining(),
		StopReason: s.stopReason,
	}
}
