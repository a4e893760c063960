package service

import (
	"bytes"
	stdhttp "net/http"
	"net/http/httptest"
	"testing"

	"slot4d/internal/biz"
	"slot4d/internal/conf"
	"slot4d/internal/data"
	"slot4d/internal/notify"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/transport/http"
	jsoniter "github.com/json-iterator/go"
)

type testReply struct {
	Code    int32               `json:"code"`
	Reason  string              `json:"reason"`
	Message string              `json:"message"`
	Data    jsoniter.RawMessage `json:"data"`
}

func newTestServer(t *testing.T) *http.Server {
	t.Helper()
	logger := log.NewFilter(log.DefaultLogger, log.FilterLevel(log.LevelWarn))
	d, cleanupData, err := data.NewData(&conf.Data{Store: data.StoreMemory}, logger, nil, nil, nil)
	if err != nil {
		t.Fatalf("NewData: %v", err)
	}
	t.Cleanup(cleanupData)
	uc, cleanup, err := biz.NewUseCase(data.NewDataRepo(d, logger), logger,
		&conf.Game{StartingCredit: 100}, nil, notify.Noop{}, nil)
	if err != nil {
		t.Fatalf("NewUseCase: %v", err)
	}
	t.Cleanup(cleanup)

	srv := http.NewServer()
	NewSlotService(uc, logger).RegisterRoutes(srv)
	return srv
}

func call(t *testing.T, srv *http.Server, method, path, body string) testReply {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("%s %s status = %d body=%s", method, path, rec.Code, rec.Body.String())
	}
	var r testReply
	if err := jsoniter.Unmarshal(rec.Body.Bytes(), &r); err != nil {
		t.Fatalf("decode reply: %v, body=%s", err, rec.Body.String())
	}
	return r
}

func TestSpinAndState(t *testing.T) {
	srv := newTestServer(t)

	r := call(t, srv, "POST", "/slot4d/spin", `{"player_id":"p1"}`)
	if r.Code != 0 {
		t.Fatalf("spin 失败: %+v", r)
	}
	var spin struct {
		Spun   string `json:"spun"`
		Placed string `json:"placed"`
	}
	if err := jsoniter.Unmarshal(r.Data, &spin); err != nil {
		t.Fatal(err)
	}
	if len(spin.Spun) != 4 {
		t.Errorf("号码应为 4 位: %q", spin.Spun)
	}

	r = call(t, srv, "GET", "/slot4d/state?player_id=p1", "")
	if r.Code != 0 {
		t.Fatalf("state 失败: %+v", r)
	}
	var state struct {
		Jackpot struct {
			Number string `json:"number"`
		} `json:"jackpot"`
		Lifetime struct {
			Spins int64 `json:"spins"`
		} `json:"lifetime"`
	}
	if err := jsoniter.Unmarshal(r.Data, &state); err != nil {
		t.Fatal(err)
	}
	if state.Jackpot.Number != "****" {
		t.Errorf("非管理员应隐藏头奖号码: %q", state.Jackpot.Number)
	}
	if state.Lifetime.Spins != 1 {
		t.Errorf("spins = %d", state.Lifetime.Spins)
	}

	r = call(t, srv, "GET", "/slot4d/state?player_id=p1&admin=true", "")
	_ = jsoniter.Unmarshal(r.Data, &state)
	if len(state.Jackpot.Number) != 4 || state.Jackpot.Number == "****" {
		t.Errorf("管理员应看到头奖号码: %q", state.Jackpot.Number)
	}
}

func TestRequestValidation(t *testing.T) {
	srv := newTestServer(t)

	if r := call(t, srv, "POST", "/slot4d/spin", `{}`); r.Reason != "PLAYER_ID_EMPTY" {
		t.Errorf("缺少 player_id 应报错: %+v", r)
	}
	if r := call(t, srv, "POST", "/slot4d/bet", `{"player_id":"p1","direction":"left"}`); r.Reason != "INVALID_DIRECTION" {
		t.Errorf("非法方向应报错: %+v", r)
	}
	if r := call(t, srv, "POST", "/slot4d/saved/set", `{"player_id":"p1","slot":0,"number":"12a4"}`); r.Reason != "INVALID_NUMBER" {
		t.Errorf("非法号码应报错: %+v", r)
	}
	if r := call(t, srv, "POST", "/slot4d/admin/jackpot", `{"player_id":"p1","number":"1234","chance":120}`); r.Reason != "INVALID_CHANCE" {
		t.Errorf("概率越界应报错: %+v", r)
	}
	if r := call(t, srv, "POST", "/slot4d/trainer", `{"player_id":"p1","mode":"five_digit_win"}`); r.Reason != "INVALID_MODE" {
		t.Errorf("未知模式应报错: %+v", r)
	}
	if r := call(t, srv, "GET", "/slot4d/sim/info?task_id=nope", ""); r.Reason != "TASK_NOT_FOUND" {
		t.Errorf("未知任务应报错: %+v", r)
	}
}

func TestTrainerForcedSpin(t *testing.T) {
	srv := newTestServer(t)

	r := call(t, srv, "POST", "/slot4d/trainer",
		`{"player_id":"p2","control":true,"next_number":"2468","test_bet":"1","spin":true}`)
	if r.Code != 0 {
		t.Fatalf("trainer 失败: %+v", r)
	}
	var spin struct {
		Spun   string `json:"spun"`
		Forced bool   `json:"forced"`
	}
	if err := jsoniter.Unmarshal(r.Data, &spin); err != nil {
		t.Fatal(err)
	}
	if spin.Spun != "2468" || !spin.Forced {
		t.Errorf("训练器应强制号码 2468: %+v", spin)
	}
}

func TestAutoSpinRoutes(t *testing.T) {
	srv := newTestServer(t)

	if r := call(t, srv, "POST", "/slot4d/autospin/start", `{"player_id":"p3","count":0}`); r.Reason != "INVALID_COUNT" {
		t.Errorf("count 为 0 应报错: %+v", r)
	}
	r := call(t, srv, "POST", "/slot4d/autospin/start", `{"player_id":"p3","count":10}`)
	if r.Code != 0 {
		t.Fatalf("start 失败: %+v", r)
	}
	r = call(t, srv, "POST", "/slot4d/autospin/stop", `{"player_id":"p3"}`)
	var status struct {
		State string `json:"state"`
	}
	_ = jsoniter.Unmarshal(r.Data, &status)
	if r.Code != 0 || status.State == "running" {
		t.Errorf("stop 后不应处于运行状态: %+v %s", r, r.Data)
	}
}

func TestListPlayersAndTasks(t *testing.T) {
	srv := newTestServer(t)
	call(t, srv, "POST", "/slot4d/topup", `{"player_id":"p4"}`)

	r := call(t, srv, "GET", "/slot4d/players", "")
	var players []struct {
		PlayerID string `json:"player_id"`
		Balance  string `json:"balance"`
	}
	if err := jsoniter.Unmarshal(r.Data, &players); err != nil {
		t.Fatal(err)
	}
	if len(players) != 1 || players[0].PlayerID != "p4" || players[0].Balance != "200" {
		t.Errorf("players = %+v", players)
	}

	r = call(t, srv, "POST", "/slot4d/sim/create",
		`{"description":"smoke","config":{"players":2,"spins_per_player":50,"bet":"1","bypass":true}}`)
	if r.Code != 0 {
		t.Fatalf("创建任务失败: %+v", r)
	}
	r = call(t, srv, "GET", "/slot4d/sim/list", "")
	var tasks []struct {
		TaskID string `json:"task_id"`
	}
	_ = jsoniter.Unmarshal(r.Data, &tasks)
	if len(tasks) != 1 {
		t.Errorf("tasks = %s", r.Data)
	}
}
