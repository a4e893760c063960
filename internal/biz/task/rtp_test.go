package task

import (
	"context"
	"sync"
	"testing"
	"time"

	"slot4d/internal/biz/chart"
	"slot4d/internal/biz/game"
	"slot4d/internal/biz/outcome"
	"slot4d/internal/biz/prize"
	"slot4d/internal/conf"
	"slot4d/internal/notify"

	"github.com/shopspring/decimal"
)

type recordNotifier struct {
	mu   sync.Mutex
	msgs []*notify.Message
}

func (r *recordNotifier) Send(_ context.Context, msg *notify.Message) error {
	r.mu.Lock()
	r.msgs = append(r.msgs, msg)
	r.mu.Unlock()
	return nil
}

func newSimConfig(players, spins int) *Config {
	return &Config{
		Players:        players,
		SpinsPerPlayer: spins,
		Bet:            decimal.NewFromInt(1),
		StartingCredit: decimal.NewFromInt(1000),
		Bypass:         true,
		KillDigits:     true,
		JackpotChance:  1,
		Seed:           42,
		SampleEvery:    100,
	}
}

func TestSimulationRTP(t *testing.T) {
	cfg := newSimConfig(4, 2000)
	tk, err := NewTask(context.Background(), "sim-1", "rtp", cfg, nil)
	if err != nil {
		t.Fatalf("NewTask: %v", err)
	}

	var reports int
	var uploaded string
	completed := make(chan struct{})
	deps := &ExecDeps{
		Machine: game.DefaultConfig(),
		Conf:    &conf.Simulation{UploadToS3: true},
		Chart:   chart.NewGenerator(nil),
		Notify:  &recordNotifier{},
		UploadBytes: func(_ context.Context, _, key, _ string, data []byte) (string, error) {
			uploaded = key
			return "https://example.com/" + key, nil
		},
		Report:     func(StatsSnapshot) { reports++ },
		OnComplete: func() { close(completed) },
	}
	tk.Execute(deps)
	<-completed

	snap := tk.GetStats().StatsSnapshot()
	if snap.Status != StatusCompleted {
		t.Fatalf("status = %s", snap.Status)
	}
	if snap.Process != cfg.Target() {
		t.Errorf("process = %d, want %d", snap.Process, cfg.Target())
	}
	if snap.WageredCents != cfg.Target()*100 {
		t.Errorf("wagered = %d", snap.WageredCents)
	}
	if snap.Wins == 0 || snap.Match2 == 0 {
		t.Errorf("8000 局应至少有一次中奖")
	}
	if snap.FinishedAt.IsZero() || snap.StartAt.IsZero() {
		t.Errorf("开始/结束时间应已记录")
	}
	if uploaded != "charts/sim-1.html" || tk.GetRecordURL() == "" {
		t.Errorf("图表未上传: %q", uploaded)
	}
	if reports < 2 {
		t.Errorf("reports = %d", reports)
	}
	pts := tk.GetStats().Points()
	if len(pts) < int(cfg.Target()/cfg.SampleEvery) {
		t.Errorf("points = %d", len(pts))
	}
	for i := 1; i < len(pts); i++ {
		if pts[i].X < pts[i-1].X {
			t.Fatalf("采样点应按局数升序")
		}
	}
	t.Logf("RTP=%.4f 命中率=%.4f 调整=%d 头奖=%d", snap.RTP(), snap.HitFrequency(), snap.Adjustments, snap.Jackpots)
}

func TestSimulationForcedStop(t *testing.T) {
	cfg := newSimConfig(2, 1000)
	cfg.Bypass = false
	cfg.StartingCredit = decimal.NewFromInt(3)
	cfg.JackpotChance = 0
	tk, err := NewTask(context.Background(), "sim-2", "", cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	base := game.DefaultConfig()
	base.Paytable = outcome.Paytable{Bonus: map[prize.Category]decimal.Decimal{}}
	tk.Execute(&ExecDeps{Machine: base})
	snap := tk.GetStats().StatsSnapshot()
	if snap.Status != StatusCompleted {
		t.Fatalf("status = %s", snap.Status)
	}
	if snap.Process != 6 || snap.Wins != 0 {
		t.Errorf("零派彩时每个玩家应恰好 3 局: process = %d", snap.Process)
	}
	if snap.ForcedStops != 2 || snap.CompletedPlayers != 2 {
		t.Errorf("forced = %d completed = %d", snap.ForcedStops, snap.CompletedPlayers)
	}
}

func TestCancelledTaskSkipsExecution(t *testing.T) {
	tk, err := NewTask(context.Background(), "sim-3", "", newSimConfig(1, 10), nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := tk.Cancel(); err != nil {
		t.Fatal(err)
	}
	if err := tk.Cancel(); err == nil {
		t.Errorf("重复取消应报错")
	}
	tk.Execute(&ExecDeps{Machine: game.DefaultConfig()})
	if tk.GetStats().StatsSnapshot().Process != 0 {
		t.Errorf("已取消任务不应执行")
	}
}

func TestNewTaskValidation(t *testing.T) {
	if _, err := NewTask(context.Background(), "x", "", &Config{Players: 0, SpinsPerPlayer: 1}, nil); err == nil {
		t.Errorf("玩家数为 0 应报错")
	}
	if _, err := NewTask(context.Background(), "x", "", nil, nil); err == nil {
		t.Errorf("nil 配置应报错")
	}
}

func TestMachineConfig(t *testing.T) {
	base := game.DefaultConfig()
	cfg := newSimConfig(1, 1)
	cfg.KillDigits = false
	mc := cfg.machineConfig(base, 3)
	if mc.KillDigit.Enabled || mc.KillDigit.Automated {
		t.Errorf("关闭杀号时不应启用自动调整")
	}
	if mc.Seed != 45 || !mc.StartingCredit.Equal(decimal.NewFromInt(1000)) || mc.Prize.DefaultChance != 1 {
		t.Errorf("mc = %+v", mc)
	}
	cfg.Seed = 0
	if cfg.machineConfig(base, 3).Seed != 0 {
		t.Errorf("未指定种子时应随机")
	}
}

func TestPoolQueue(t *testing.T) {
	p := NewTaskPool()
	a, _ := NewTask(context.Background(), "a", "", newSimConfig(1, 1), nil)
	time.Sleep(time.Millisecond)
	b, _ := NewTask(context.Background(), "b", "", newSimConfig(1, 1), nil)
	p.Add(a)
	p.Add(b)

	if list := p.List(); list[0].GetID() != "b" {
		t.Errorf("List 应按创建时间倒序")
	}
	id, _, ok := p.PeekPending()
	if !ok || id != "a" {
		t.Fatalf("peek = %s", id)
	}
	if p.DequeuePending("b") {
		t.Errorf("非队首不应出队")
	}
	if !p.DequeuePending("a") {
		t.Fatalf("队首应出队")
	}
	p.RequeueAtHead("a")
	if id, _, _ := p.PeekPending(); id != "a" {
		t.Errorf("RequeueAtHead 后队首应为 a")
	}
	p.DropPending("a")
	p.Remove("b")
	if _, _, ok := p.PeekPending(); ok {
		t.Errorf("队列应为空")
	}

	a.CompareAndSetStatus(StatusPending, StatusRunning)
	p.Add(a)
	if !p.IsRateLimited(1) {
		t.Errorf("已有运行中任务应限流")
	}
}

func TestCleanupExpiredTasks(t *testing.T) {
	p := NewTaskPool()
	done, _ := NewTask(context.Background(), "done", "", newSimConfig(1, 1), nil)
	running, _ := NewTask(context.Background(), "running", "", newSimConfig(1, 1), nil)
	done.SetStatus(StatusCompleted)
	running.SetStatus(StatusRunning)
	p.Add(done)
	p.Add(running)
	var removed []string
	p.OnRemove(func(id string) { removed = append(removed, id) })

	if n := p.CleanupExpiredTasks(time.Hour); n != 0 {
		t.Errorf("未过期任务不应清理: %d", n)
	}
	if n := p.CleanupExpiredTasks(-time.Second); n != 1 {
		t.Errorf("应清理 1 个终态任务，实际 %d", n)
	}
	if _, ok := p.Get("running"); !ok {
		t.Errorf("运行中任务不应被清理")
	}
	if len(removed) != 1 || removed[0] != "done" {
		t.Errorf("清理回调 = %v", removed)
	}
}
