package autospin

import (
	"errors"
	"testing"
	"time"
)

type fakeSpinner struct {
	canSpin bool
	busy    bool
	spins   int
	failAt  int
	blocked bool
}

func (f *fakeSpinner) CanSpin() bool { return f.canSpin }
func (f *fakeSpinner) Busy() bool    { return f.busy }
func (f *fakeSpinner) Blocked() bool { return f.blocked }
func (f *fakeSpinner) Spin() error {
	if f.failAt > 0 && f.spins+1 == f.failAt {
		return errors.New("insufficient balance")
	}
	f.spins++
	return nil
}

// drive 每次推进 100ms，直到停止或达到步数上限
func drive(s *Sequencer, start time.Time, steps int) time.Time {
	now := start
	for i := 0; i < steps && s.Running(); i++ {
		s.Tick(now)
		now = now.Add(100 * time.Millisecond)
	}
	return now
}

func TestFiniteRunCompletes(t *testing.T) {
	f := &fakeSpinner{canSpin: true}
	s := New(f, f, 0, nil)
	if !s.Start(10) {
		t.Fatalf("Start 失败")
	}
	drive(s, time.Unix(0, 0), 10000)
	if s.Running() {
		t.Fatalf("应已结束")
	}
	if f.spins != 10 {
		t.Errorf("spins = %d, want 10", f.spins)
	}
	st := s.Status()
	if st.StopReason != StopCompleted || st.Remaining != 0 {
		t.Errorf("status = %+v", st)
	}
}

func TestCooldownPause(t *testing.T) {
	f := &fakeSpinner{canSpin: true}
	s := New(f, f, 1200*time.Millisecond, nil)
	s.Start(2)
	now := time.Unix(100, 0)
	s.Tick(now) // 第一局
	s.Tick(now) // 进入冷却
	if s.Status().Phase != "cooldown" {
		t.Fatalf("phase = %s", s.Status().Phase)
	}
	s.Tick(now.Add(time.Second))
	s.Tick(now.Add(time.Second))
	if f.spins != 1 {
		t.Fatalf("冷却期间不应开局, spins=%d", f.spins)
	}
	s.Tick(now.Add(1200 * time.Millisecond))
	s.Tick(now.Add(1200 * time.Millisecond))
	if f.spins != 2 {
		t.Errorf("冷却结束后应开第二局, spins=%d", f.spins)
	}
}

func TestForcedStopWhenCannotSpin(t *testing.T) {
	f := &fakeSpinner{canSpin: true}
	s := New(f, f, 0, nil)
	s.Start(50)
	now := drive(s, time.Unix(0, 0), 30)
	done := f.spins
	f.canSpin = false
	drive(s, now, 100)
	if s.Running() {
		t.Fatalf("余额不足应强制停止")
	}
	if f.spins != done {
		t.Errorf("强制停止后不应再开局")
	}
	if s.Status().StopReason != StopCannotSpin {
		t.Errorf("reason = %s", s.Status().StopReason)
	}
}

func TestSpinErrorStops(t *testing.T) {
	f := &fakeSpinner{canSpin: true, failAt: 3}
	s := New(f, f, 0, nil)
	s.Start(10)
	drive(s, time.Unix(0, 0), 1000)
	if s.Running() || f.spins != 2 {
		t.Errorf("running=%v spins=%d", s.Running(), f.spins)
	}
	if st := s.Status(); st.StopReason != StopSpinFailed || st.Done != 2 {
		t.Errorf("status = %+v", st)
	}
}

func TestWaitsWhileBusyBlockedOrPaused(t *testing.T) {
	f := &fakeSpinner{canSpin: true}
	s := New(f, f, 0, nil)
	s.StartInfinite()
	now := time.Unix(0, 0)
	s.Tick(now)
	f.busy = true
	for i := 0; i < 5; i++ {
		s.Tick(now)
	}
	if s.Status().Phase != "awaiting" {
		t.Fatalf("busy 时应保持 awaiting")
	}
	f.busy = false
	f.blocked = true
	for i := 0; i < 5; i++ {
		s.Tick(now)
	}
	if s.Status().Phase != "awaiting" || f.spins != 1 {
		t.Fatalf("阻塞时不应推进")
	}
	f.blocked = false
	s.Pause()
	drive(s, now, 50)
	if f.spins != 1 {
		t.Fatalf("暂停时不应开局")
	}
	s.Resume()
	drive(s, now, 50)
	if f.spins < 2 {
		t.Errorf("恢复后应继续")
	}
	if s.Remaining() != Infinite || !s.Infinite() {
		t.Errorf("无限模式剩余应为 Infinite")
	}
	s.Stop()
	if s.State() != Idle || s.Status().StopReason != StopManual {
		t.Errorf("Stop 后应为 idle")
	}
}

func TestStartRejectsInvalidCount(t *testing.T) {
	s := New(&fakeSpinner{}, nil, 0, nil)
	if s.Start(0) || s.Running() {
		t.Errorf("count=0 不应启动")
	}
	if !s.Start(Infinite) || !s.Infinite() {
		t.Errorf("Start(Infinite) 应进入无限模式")
	}
}

type blockingSpinner struct {
	entered chan struct{}
	release chan error
}

func (b *blockingSpinner) CanSpin() bool { return true }
func (b *blockingSpinner) Busy() bool    { return false }
func (b *blockingSpinner) Spin() error {
	b.entered <- struct{}{}
	return <-b.release
}

func TestRestartDuringSpinIgnoresStaleFailure(t *testing.T) {
	b := &blockingSpinner{entered: make(chan struct{}), release: make(chan error)}
	s := New(b, nil, 0, nil)
	s.Start(3)

	done := make(chan struct{})
	go func() {
		s.Tick(time.Unix(0, 0))
		close(done)
	}()
	<-b.entered

	s.Stop()
	s.Start(5)
	b.release <- errors.New("insufficient balance")
	<-done

	st := s.Status()
	if st.State != "running" || st.StopReason != "" {
		t.Fatalf("旧一局失败不应停止新一轮: %+v", st)
	}
	if st.Done != 0 || st.Total != 5 || st.Remaining != 5 {
		t.Errorf("新一轮计数被旧一局污染: %+v", st)
	}
}

func TestStopDuringSpinKeepsCount(t *testing.T) {
	b := &blockingSpinner{entered: make(chan struct{}), release: make(chan error)}
	s := New(b, nil, 0, nil)
	s.Start(3)

	done := make(chan struct{})
	go func() {
		s.Tick(time.Unix(0, 0))
		close(done)
	}()
	<-b.entered
	s.Stop()
	b.release <- errors.New("boom")
	<-done

	st := s.Status()
	if st.State != "idle" || st.StopReason != StopManual || st.Done != 1 {
		t.Errorf("手动停止后不应被旧一局改写: %+v", st)
	}
}
