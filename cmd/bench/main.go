package main

import (
	"bytes"
	"flag"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type reply struct {
	Code    int32               `json:"code"`
	Reason  string              `json:"reason"`
	Message string              `json:"message"`
	Data    jsoniter.RawMessage `json:"data"`
}

type spinData struct {
	Placed decimal.Decimal `json:"placed"`
	Total  decimal.Decimal `json:"total"`
}

type options struct {
	baseURL     string
	mode        string
	players     int
	spins       int
	topUp       float64
	concurrency int
	bets        []string
	simPlayers  int
	simSpins    int
}

func main() {
	baseURL := flag.String("base-url", "http://127.0.0.1:8000", "")
	mode := flag.String("mode", "spin", "spin: 并发真实下注; sim: 按下注额批量创建模拟任务")
	players := flag.Int("players", 50, "")
	spins := flag.Int("spins", 200, "")
	topUp := flag.Float64("topup", 1000, "")
	concurrency := flag.Int("concurrency", 8, "")
	bets := flag.String("bets", "1,5,10", "sim 模式下的下注额，逗号分隔")
	simPlayers := flag.Int("sim-players", 100, "")
	simSpins := flag.Int("sim-spins", 10000, "")
	flag.Parse()

	opts := options{
		baseURL:     strings.TrimRight(*baseURL, "/"),
		mode:        *mode,
		players:     *players,
		spins:       *spins,
		topUp:       *topUp,
		concurrency: max(*concurrency, 1),
		bets:        strings.Split(*bets, ","),
		simPlayers:  *simPlayers,
		simSpins:    *simSpins,
	}
	client := &http.Client{Timeout: 30 * time.Second}

	switch opts.mode {
	case "spin":
		runSpins(client, opts)
	case "sim":
		runSimulations(client, opts)
	default:
		fmt.Printf("unknown mode %q\n", opts.mode)
	}
}

// runSpins 每个玩家先充值再连续开局，统计延迟与实际 RTP
func runSpins(client *http.Client, opts options) {
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		latencies []time.Duration
		placed    = decimal.Zero
		won       = decimal.Zero
		failed    atomic.Int64
	)
	jobs := make(chan string)
	start := time.Now()
	for i := 0; i < opts.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for player := range jobs {
				if _, err := post(client, opts.baseURL+"/slot4d/topup", map[string]any{"player_id": player, "amount": opts.topUp}); err != nil {
					fmt.Printf("player %s topup failed: %v\n", player, err)
					continue
				}
				for n := 0; n < opts.spins; n++ {
					begin := time.Now()
					r, err := post(client, opts.baseURL+"/slot4d/spin", map[string]any{"player_id": player})
					cost := time.Since(begin)
					if err != nil {
						failed.Add(1)
						continue
					}
					if r.Code != 0 {
						if r.Reason == "GAMEPLAY_BLOCKED" {
							_, _ = post(client, opts.baseURL+"/slot4d/presentation/done", map[string]any{"player_id": player})
							continue
						}
						fmt.Printf("player %s stopped: %s %s\n", player, r.Reason, r.Message)
						break
					}
					var d spinData
					if err := json.Unmarshal(r.Data, &d); err != nil {
						failed.Add(1)
						continue
					}
					mu.Lock()
					latencies = append(latencies, cost)
					placed = placed.Add(d.Placed)
					won = won.Add(d.Total)
					mu.Unlock()
				}
			}
		}()
	}
	for i := 1; i <= opts.players; i++ {
		jobs <- "bench-" + strconv.Itoa(i)
	}
	close(jobs)
	wg.Wait()

	elapsed := time.Since(start)
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
	rtp := decimal.Zero
	if placed.IsPositive() {
		rtp = won.Div(placed)
	}
	fmt.Printf("spins=%d failed=%d elapsed=%v sps=%.1f\n", len(latencies), failed.Load(), elapsed.Round(time.Millisecond),
		float64(len(latencies))/elapsed.Seconds())
	fmt.Printf("latency p50=%v p95=%v p99=%v\n", percentile(latencies, 0.5), percentile(latencies, 0.95), percentile(latencies, 0.99))
	fmt.Printf("placed=%s won=%s rtp=%s\n", placed.StringFixed(2), won.StringFixed(2), rtp.StringFixed(4))
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	return sorted[int(float64(len(sorted)-1)*p)]
}

// runSimulations 每个下注额一个模拟任务，服务端按顺序调度
func runSimulations(client *http.Client, opts options) {
	for _, raw := range opts.bets {
		bet, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil || !bet.IsPositive() {
			fmt.Printf("skip invalid bet %q\n", raw)
			continue
		}
		payload := map[string]any{
			"description": "bench bet=" + bet.String(),
			"config": map[string]any{
				"players":          opts.simPlayers,
				"spins_per_player": opts.simSpins,
				"bet":              bet.String(),
				"bypass":           true,
			},
		}
		r, err := post(client, opts.baseURL+"/slot4d/sim/create", payload)
		if err != nil {
			fmt.Printf("bet %s request failed: %v\n", bet, err)
			continue
		}
		if r.Code != 0 {
			fmt.Printf("bet %s rejected: %s %s\n", bet, r.Reason, r.Message)
			continue
		}
		var task struct {
			TaskID string `json:"task_id"`
		}
		_ = json.Unmarshal(r.Data, &task)
		fmt.Printf("bet %s task %s created\n", bet, task.TaskID)
	}
}

func post(client *http.Client, url string, payload any) (*reply, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	var r reply
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return nil, err
	}
	return &r, nil
}
