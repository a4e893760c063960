package biz

import (
	"context"
	"time"

	"slot4d/internal/biz/chart"
	"slot4d/internal/biz/game"
	"slot4d/internal/biz/store"
	"slot4d/internal/biz/task"
	"slot4d/internal/conf"
	"slot4d/internal/notify"
	"slot4d/pkg/xgo"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
	"golang.org/x/sync/errgroup"
)

// ProviderSet is biz providers.
var ProviderSet = wire.NewSet(NewUseCase)

// 业务常量
const (
	flushTimeout       = 10 * time.Second
	flushParallel      = 16
	metricsInterval    = 5 * time.Second
	defaultAutoTick    = 100 * time.Millisecond
	defaultRetention   = 24 * time.Hour
	defaultCleanupTick = 10 * time.Minute
)

// DataRepo 数据层接口：玩家存储/订单/曲线/任务ID/上传
type DataRepo interface {
	game.OrderRecorder
	OpenPrefs(ctx context.Context, playerID string) (*store.Prefs, error)
	QueryPlayerRTPPoints(ctx context.Context, playerID string) ([]chart.Point, error)
	NextTaskID(ctx context.Context) (string, error)
	UploadBytes(ctx context.Context, bucket, key, contentType string, data []byte) (string, error)
}

// UseCase 编排层：通过 DataRepo + 领域池（Machine/Task）编排业务
type UseCase struct {
	ctx    context.Context
	cancel context.CancelFunc

	repo   DataRepo
	logger log.Logger
	log    *log.Helper
	gc     *conf.Game
	sim    *conf.Simulation

	machineConf game.Config
	autoTick    time.Duration
	gamePool    *game.Pool
	taskPool    *task.Pool
	scheduleCh  chan struct{}

	notify notify.Notifier
	chart  chart.IGenerator
}

// NewUseCase 创建 UseCase
func NewUseCase(repo DataRepo, logger log.Logger, gc *conf.Game, sim *conf.Simulation, n notify.Notifier, g chart.IGenerator) (*UseCase, func(), error) {
	mc, err := MachineConfig(gc)
	if err != nil {
		return nil, nil, err
	}
	if sim == nil {
		sim = &conf.Simulation{}
	}
	autoTick := defaultAutoTick
	if gc != nil {
		autoTick = gc.AutoSpinInterval.OrDefault(defaultAutoTick)
	}

	ctx, cancel := context.WithCancel(context.Background())
	uc := &UseCase{
		ctx:         ctx,
		cancel:      cancel,
		repo:        repo,
		logger:      logger,
		log:         log.NewHelper(logger),
		gc:          gc,
		sim:         sim,
		machineConf: mc,
		autoTick:    autoTick,
		gamePool:    game.NewPool(),
		taskPool:    task.NewTaskPool(),
		scheduleCh:  make(chan struct{}, 1),
		notify:      n,
		chart:       g,
	}
	uc.taskPool.OnRemove(dropTaskMetrics)
	uc.log.Infof("machine config: %s", xgo.ToJSON(mc))

	go uc.scheduleLoop()
	go uc.metricsLoop()
	go uc.taskPool.StartAutoCleanup(ctx, logger,
		sim.Retention.OrDefault(defaultRetention), sim.CleanupInterval.OrDefault(defaultCleanupTick))

	cleanup := func() {
		uc.cancel()
		fctx, fcancel := context.WithTimeout(context.Background(), flushTimeout)
		defer fcancel()
		if err := uc.FlushAll(fctx); err != nil {
			uc.log.Errorf("flush players on shutdown: %v", err)
		}
	}
	return uc, cleanup, nil
}

// Machine 获取玩家机器，不存在时从存储加载
func (uc *UseCase) Machine(ctx context.Context, playerID string) (*game.Machine, error) {
	m, created, err := uc.gamePool.GetOrCreate(ctx, playerID, uc.newMachine)
	if err != nil {
		return nil, err
	}
	if created {
		gActivePlayers.Set(float64(uc.gamePool.Len()))
		uc.driveAutoSpin(m)
	}
	return m, nil
}

// newMachine 每台机器持有独立的展示代理
func (uc *UseCase) newMachine(ctx context.Context, playerID string) (*game.Machine, error) {
	prefs, err := uc.repo.OpenPrefs(ctx, playerID)
	if err != nil {
		return nil, err
	}
	var timeout time.Duration
	if uc.gc != nil {
		timeout = uc.gc.PresentationTimeout.AsDuration()
	}
	m := game.NewMachine(playerID, uc.machineConf, prefs,
		game.WithPresenter(game.NewTimedPresenter(timeout)),
		game.WithOrderRecorder(uc.repo),
		game.WithLogger(uc.logger),
	)
	uc.log.Infof("player %s loaded, balance=%s", playerID, m.Account().Balance())
	return m, nil
}

// driveAutoSpin 自动旋转驱动，随 UseCase 退出
func (uc *UseCase) driveAutoSpin(m *game.Machine) {
	xgo.Go(func() {
		m.AutoSpin().Run(uc.ctx, uc.autoTick)
	}, func(e any) {
		uc.log.Errorf("auto spin driver of %s stopped: %v", m.ID(), e)
	})
}

// Spin 执行一局并刷新玩家指标
func (uc *UseCase) Spin(ctx context.Context, playerID string) (*game.SpinResult, error) {
	m, err := uc.Machine(ctx, playerID)
	if err != nil {
		return nil, err
	}
	res, err := m.Spin(ctx)
	if err != nil {
		return nil, err
	}
	ReportMachine(m)
	return res, nil
}

// ListMachines 已加载的玩家机器
func (uc *UseCase) ListMachines() []*game.Machine {
	return uc.gamePool.List()
}

// PlayerRTPPoints 订单库中的玩家 RTP 曲线
func (uc *UseCase) PlayerRTPPoints(ctx context.Context, playerID string) ([]chart.Point, error) {
	return uc.repo.QueryPlayerRTPPoints(ctx, playerID)
}

// FlushAll 并发持久化所有已加载的机器
func (uc *UseCase) FlushAll(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(flushParallel)
	for _, m := range uc.gamePool.List() {
		g.Go(func() error {
			return m.Flush(gctx)
		})
	}
	return g.Wait()
}

// metricsLoop 自动旋转产生的局数也需要反映到指标
func (uc *UseCase) metricsLoop() {
	ticker := time.NewTicker(metricsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-uc.ctx.Done():
			return
		case <-ticker.C:
			for _, m := range uc.gamePool.List() {
				if m.AutoSpin().Running() {
					ReportMachine(m)
				}
			}
		}
	}
}

// GetTask 按 ID 获取任务
func (uc *UseCase) GetTask(id string) (*task.Task, bool) {
	return uc.taskPool.Get(id)
}

// ListTasks 返回所有任务（已按创建时间倒序）
func (uc *UseCase) ListTasks() []*task.Task {
	return uc.taskPool.List()
}
