package service

import (
	"context"
	"strings"

	"slot4d/internal/biz"
	"slot4d/internal/biz/account"
	"slot4d/internal/biz/autospin"
	"slot4d/internal/biz/game"
	"slot4d/internal/biz/trainer"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/transport/http"
	"github.com/shopspring/decimal"
)

var (
	ErrPlayerRequired   = errors.New(400, "PLAYER_ID_EMPTY", "player_id is required")
	ErrInvalidDirection = errors.New(400, "INVALID_DIRECTION", "direction must be up or down")
	ErrInvalidCount     = errors.New(400, "INVALID_COUNT", "count must be positive or -1 for infinite")
	ErrInvalidMode      = errors.New(400, "INVALID_MODE", "unknown shuffle mode")
)

// SlotService 四位数老虎机 HTTP 接口
type SlotService struct {
	uc  *biz.UseCase
	log *log.Helper
}

func NewSlotService(uc *biz.UseCase, logger log.Logger) *SlotService {
	return &SlotService{uc: uc, log: log.NewHelper(logger)}
}

type PlayerRequest struct {
	PlayerID string `json:"player_id"`
}

type StateRequest struct {
	PlayerID string `json:"player_id"`
	Admin    bool   `json:"admin"`
}

type BetRequest struct {
	PlayerID  string `json:"player_id"`
	Direction string `json:"direction"`
}

type TopUpRequest struct {
	PlayerID string          `json:"player_id"`
	Amount   decimal.Decimal `json:"amount"`
}

type SavedRequest struct {
	PlayerID string `json:"player_id"`
	Slot     int    `json:"slot"`
	Number   string `json:"number"`
}

type AutoSpinRequest struct {
	PlayerID string `json:"player_id"`
	Count    int    `json:"count"`
}

type JackpotRequest struct {
	PlayerID string  `json:"player_id"`
	Number   string  `json:"number"`
	Chance   float64 `json:"chance"`
}

// TrainerRequest 未填写的字段不修改；spin 为 true 时设置后立即开一局
type TrainerRequest struct {
	PlayerID           string           `json:"player_id"`
	Control            *bool            `json:"control"`
	Mode               *string          `json:"mode"`
	NextNumber         *string          `json:"next_number"`
	TestBet            *decimal.Decimal `json:"test_bet"`
	IgnoreFund         *bool            `json:"ignore_fund"`
	Balance            *decimal.Decimal `json:"balance"`
	KillDigits         []int            `json:"kill_digits"`
	KillEnabled        *bool            `json:"kill_enabled"`
	KillAutomated      *bool            `json:"kill_automated"`
	TargetRTP          *float64         `json:"target_rtp"`
	ApplyKillToJackpot *bool            `json:"apply_kill_to_jackpot"`
	Spin               bool             `json:"spin"`
}

// RegisterRoutes 注册 /slot4d 下的全部路由
func (s *SlotService) RegisterRoutes(srv *http.Server) {
	r := srv.Route("/slot4d")
	r.POST("/spin", handle("/slot4d/spin", s.Spin))
	r.POST("/bet", handle("/slot4d/bet", s.AdjustBet))
	r.POST("/topup", handle("/slot4d/topup", s.TopUp))
	r.GET("/state", handle("/slot4d/state", s.State))
	r.GET("/players", handle("/slot4d/players", s.ListPlayers))
	r.GET("/rtp/points", handle("/slot4d/rtp/points", s.RTPPoints))

	r.POST("/saved/set", handle("/slot4d/saved/set", s.SetSaved))
	r.POST("/saved/clear", handle("/slot4d/saved/clear", s.ClearSaved))

	r.POST("/autospin/start", handle("/slot4d/autospin/start", s.StartAutoSpin))
	r.POST("/autospin/stop", handle("/slot4d/autospin/stop", s.StopAutoSpin))
	r.POST("/autospin/pause", handle("/slot4d/autospin/pause", s.PauseAutoSpin))
	r.POST("/autospin/resume", handle("/slot4d/autospin/resume", s.ResumeAutoSpin))

	r.POST("/presentation/done", handle("/slot4d/presentation/done", s.PresentationDone))

	r.POST("/admin/jackpot", handle("/slot4d/admin/jackpot", s.SetJackpot))
	r.POST("/admin/jackpot/reset", handle("/slot4d/admin/jackpot/reset", s.ResetJackpot))
	r.POST("/admin/stats/reset", handle("/slot4d/admin/stats/reset", s.ResetStats))

	r.POST("/trainer", handle("/slot4d/trainer", s.Trainer))

	r.POST("/sim/create", handle("/slot4d/sim/create", s.CreateTask))
	r.GET("/sim/info", handle("/slot4d/sim/info", s.TaskInfo))
	r.GET("/sim/list", handle("/slot4d/sim/list", s.ListTasks))
	r.POST("/sim/cancel", handle("/slot4d/sim/cancel", s.CancelTask))
	r.POST("/sim/delete", handle("/slot4d/sim/delete", s.DeleteTask))
}

func (s *SlotService) machine(ctx context.Context, playerID string) (*game.Machine, error) {
	if playerID = strings.TrimSpace(playerID); playerID == "" {
		return nil, ErrPlayerRequired
	}
	return s.uc.Machine(ctx, playerID)
}

// Spin 开一局
func (s *SlotService) Spin(ctx context.Context, in *PlayerRequest) (*Reply, error) {
	if strings.TrimSpace(in.PlayerID) == "" {
		return fail(ErrPlayerRequired), nil
	}
	res, err := s.uc.Spin(ctx, strings.TrimSpace(in.PlayerID))
	if err != nil {
		return fail(err), nil
	}
	return ok(res), nil
}

// AdjustBet 按阶梯调整下注
func (s *SlotService) AdjustBet(ctx context.Context, in *BetRequest) (*Reply, error) {
	var dir account.Direction
	switch strings.ToLower(in.Direction) {
	case "up", "+":
		dir = account.Up
	case "down", "-":
		dir = account.Down
	default:
		return fail(ErrInvalidDirection), nil
	}
	m, err := s.machine(ctx, in.PlayerID)
	if err != nil {
		return fail(err), nil
	}
	if err := m.AdjustBet(dir); err != nil {
		return fail(err), nil
	}
	return ok(m.Snapshot(false)), nil
}

// TopUp amount 为空时按配置额充值
func (s *SlotService) TopUp(ctx context.Context, in *TopUpRequest) (*Reply, error) {
	m, err := s.machine(ctx, in.PlayerID)
	if err != nil {
		return fail(err), nil
	}
	if err := m.TopUp(ctx, in.Amount); err != nil {
		return fail(err), nil
	}
	biz.ReportMachine(m)
	return ok(m.Snapshot(false)), nil
}

func (s *SlotService) State(ctx context.Context, in *StateRequest) (*Reply, error) {
	m, err := s.machine(ctx, in.PlayerID)
	if err != nil {
		return fail(err), nil
	}
	return ok(m.Snapshot(in.Admin)), nil
}

// ListPlayers 已加载玩家的概要
func (s *SlotService) ListPlayers(_ context.Context, _ *struct{}) (*Reply, error) {
	type player struct {
		PlayerID string          `json:"player_id"`
		Balance  decimal.Decimal `json:"balance"`
		Bet      decimal.Decimal `json:"bet"`
		RTP      float64         `json:"rtp"`
		Spins    int64           `json:"spins"`
		AutoSpin bool            `json:"auto_spin"`
	}
	ms := s.uc.ListMachines()
	out := make([]player, 0, len(ms))
	for _, m := range ms {
		out = append(out, player{
			PlayerID: m.ID(),
			Balance:  m.Account().Balance(),
			Bet:      m.Account().Bet(),
			RTP:      m.Ledger().CurrentRTP(),
			Spins:    m.Ledger().Lifetime().Spins,
			AutoSpin: m.AutoSpin().Running(),
		})
	}
	return ok(out), nil
}

// RTPPoints 订单库中的 RTP 曲线
func (s *SlotService) RTPPoints(ctx context.Context, in *PlayerRequest) (*Reply, error) {
	if strings.TrimSpace(in.PlayerID) == "" {
		return fail(ErrPlayerRequired), nil
	}
	pts, err := s.uc.PlayerRTPPoints(ctx, strings.TrimSpace(in.PlayerID))
	if err != nil {
		s.log.Errorf("query rtp points: %v", err)
		return fail(err), nil
	}
	return ok(pts), nil
}

func (s *SlotService) SetSaved(ctx context.Context, in *SavedRequest) (*Reply, error) {
	m, err := s.machine(ctx, in.PlayerID)
	if err != nil {
		return fail(err), nil
	}
	if err := m.SetSaved(ctx, in.Slot, strings.TrimSpace(in.Number)); err != nil {
		return fail(err), nil
	}
	return ok(m.Prizes().Saved()), nil
}

func (s *SlotService) ClearSaved(ctx context.Context, in *SavedRequest) (*Reply, error) {
	m, err := s.machine(ctx, in.PlayerID)
	if err != nil {
		return fail(err), nil
	}
	if err := m.ClearSaved(ctx, in.Slot); err != nil {
		return fail(err), nil
	}
	return ok(m.Prizes().Saved()), nil
}

// StartAutoSpin count 为 -1 时无限旋转
func (s *SlotService) StartAutoSpin(ctx context.Context, in *AutoSpinRequest) (*Reply, error) {
	m, err := s.machine(ctx, in.PlayerID)
	if err != nil {
		return fail(err), nil
	}
	if !m.AutoSpin().Start(in.Count) {
		return fail(ErrInvalidCount), nil
	}
	return ok(m.AutoSpin().Status()), nil
}

func (s *SlotService) StopAutoSpin(ctx context.Context, in *PlayerRequest) (*Reply, error) {
	return s.autoSpin(ctx, in.PlayerID, (*autospin.Sequencer).Stop)
}

func (s *SlotService) PauseAutoSpin(ctx context.Context, in *PlayerRequest) (*Reply, error) {
	return s.autoSpin(ctx, in.PlayerID, (*autospin.Sequencer).Pause)
}

func (s *SlotService) ResumeAutoSpin(ctx context.Context, in *PlayerRequest) (*Reply, error) {
	return s.autoSpin(ctx, in.PlayerID, (*autospin.Sequencer).Resume)
}

func (s *SlotService) autoSpin(ctx context.Context, playerID string, op func(*autospin.Sequencer)) (*Reply, error) {
	m, err := s.machine(ctx, playerID)
	if err != nil {
		return fail(err), nil
	}
	op(m.AutoSpin())
	return ok(m.AutoSpin().Status()), nil
}

// PresentationDone 客户端弹窗结束
func (s *SlotService) PresentationDone(ctx context.Context, in *PlayerRequest) (*Reply, error) {
	m, err := s.machine(ctx, in.PlayerID)
	if err != nil {
		return fail(err), nil
	}
	m.PresentationDone()
	return ok(nil), nil
}

func (s *SlotService) SetJackpot(ctx context.Context, in *JackpotRequest) (*Reply, error) {
	m, err := s.machine(ctx, in.PlayerID)
	if err != nil {
		return fail(err), nil
	}
	if err := m.SetJackpot(ctx, strings.TrimSpace(in.Number), in.Chance); err != nil {
		return fail(err), nil
	}
	return ok(m.Prizes().Jackpot()), nil
}

// ResetJackpot 重新随机头奖，返回新记录
func (s *SlotService) ResetJackpot(ctx context.Context, in *PlayerRequest) (*Reply, error) {
	m, err := s.machine(ctx, in.PlayerID)
	if err != nil {
		return fail(err), nil
	}
	return ok(m.ResetJackpot(ctx)), nil
}

func (s *SlotService) ResetStats(ctx context.Context, in *PlayerRequest) (*Reply, error) {
	m, err := s.machine(ctx, in.PlayerID)
	if err != nil {
		return fail(err), nil
	}
	m.ResetStats(ctx)
	biz.ReportMachine(m)
	return ok(m.Ledger().Lifetime()), nil
}

func (s *SlotService) Trainer(ctx context.Context, in *TrainerRequest) (*Reply, error) {
	settings := game.TrainerSettings{
		Control:            in.Control,
		NextNumber:         in.NextNumber,
		TestBet:            in.TestBet,
		IgnoreFund:         in.IgnoreFund,
		Balance:            in.Balance,
		KillDigits:         in.KillDigits,
		KillEnabled:        in.KillEnabled,
		KillAutomated:      in.KillAutomated,
		TargetRTP:          in.TargetRTP,
		ApplyKillToJackpot: in.ApplyKillToJackpot,
	}
	if in.Mode != nil {
		mode, valid := trainer.ParseMode(*in.Mode)
		if !valid {
			return fail(ErrInvalidMode), nil
		}
		settings.Mode = &mode
	}
	m, err := s.machine(ctx, in.PlayerID)
	if err != nil {
		return fail(err), nil
	}
	state := m.ApplyTrainer(ctx, settings)
	if !in.Spin {
		return ok(state), nil
	}
	res, err := m.TrainerSpin(ctx)
	if err != nil {
		return fail(err), nil
	}
	biz.ReportMachine(m)
	return ok(res), nil
}
