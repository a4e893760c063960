package conf

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Bootstrap 对应 configs/config.yaml
type Bootstrap struct {
	Server     *Server     `json:"server"`
	Data       *Data       `json:"data"`
	Game       *Game       `json:"game"`
	Simulation *Simulation `json:"simulation"`
	Notify     *Notify     `json:"notify"`
	Log        *Log        `json:"log"`
}

type Server struct {
	Http *Server_HTTP `json:"http"`
}

type Server_HTTP struct {
	Network string    `json:"network"`
	Addr    string    `json:"addr"`
	Timeout *Duration `json:"timeout"`
}

// Data 存储相关配置；Store 取 memory / redis / mysql
type Data struct {
	Store         string         `json:"store"`
	Redis         *Data_Redis    `json:"redis"`
	Database      *Data_Database `json:"database"`
	OrderDatabase *Data_Database `json:"order_database"`
	S3            *Data_S3       `json:"s3"`
}

type Data_Redis struct {
	Addr         []string  `json:"addr"`
	Password     string    `json:"password"`
	Db           int32     `json:"db"`
	ReadTimeout  *Duration `json:"read_timeout"`
	WriteTimeout *Duration `json:"write_timeout"`
}

type Data_Database struct {
	Driver       string `json:"driver"`
	Source       string `json:"source"`
	MaxIdleConns int32  `json:"max_idle_conns"`
	MaxOpenConns int32  `json:"max_open_conns"`
	Sync         bool   `json:"sync"`
}

type Data_S3 struct {
	Region          string    `json:"region"`
	Bucket          string    `json:"bucket"`
	Endpoint        string    `json:"endpoint"`
	AccessKeyId     string    `json:"access_key_id"`
	SecretAccessKey string    `json:"secret_access_key"`
	Prefix          string    `json:"prefix"` // 对象键前缀，如 reports/
	PathStyle       bool      `json:"path_style"`
	PresignExpires  *Duration `json:"presign_expires"`
}

// Game 单台机器参数
type Game struct {
	TargetRtp           float64        `json:"target_rtp"`
	Deviation           float64        `json:"deviation"`
	KillEnabled         bool           `json:"kill_enabled"`
	KillAutomated       bool           `json:"kill_automated"`
	CycleSpins          int32          `json:"cycle_spins"`
	MaxKillDigits       *int32         `json:"max_kill_digits"` // 0 关闭杀号
	InitialKillDigits   *int32         `json:"initial_kill_digits"`
	MinSpinsForAdjust   int32          `json:"min_spins_for_adjust"`
	RecentDigitsMemory  int32          `json:"recent_digits_memory"`
	BigWinThreshold     float64        `json:"big_win_threshold"`
	SpecialCount        int32          `json:"special_count"`
	ConsolationCount    int32          `json:"consolation_count"`
	RefreshEvery        int32          `json:"refresh_every"`
	JackpotChance       float64        `json:"jackpot_chance"`
	ApplyKillToJackpot  bool           `json:"apply_kill_to_jackpot"`
	StartingCredit      float64        `json:"starting_credit"`
	TopUpAmount         float64        `json:"top_up_amount"`
	AutoSpinPause       *Duration      `json:"auto_spin_pause"`
	AutoSpinInterval    *Duration      `json:"auto_spin_interval"`
	PresentationTimeout *Duration      `json:"presentation_timeout"`
	Paytable            *Game_Paytable `json:"paytable"`
}

type Game_Paytable struct {
	TwoDigit   float64            `json:"two_digit"`
	ThreeDigit float64            `json:"three_digit"`
	Bonus      map[string]float64 `json:"bonus"`
}

// Simulation RTP 模拟任务
type Simulation struct {
	MaxPlayers        int32     `json:"max_players"`
	MaxSpinsPerPlayer int32     `json:"max_spins_per_player"`
	SampleEvery       int32     `json:"sample_every"`
	Retention         *Duration `json:"retention"`
	CleanupInterval   *Duration `json:"cleanup_interval"`
	GenerateLocal     bool      `json:"generate_local"`
	UploadToS3        bool      `json:"upload_to_s3"`
	ChartDir          string    `json:"chart_dir"`
	RenderPng         bool      `json:"render_png"`
}

type Notify struct {
	Enabled       bool   `json:"enabled"`
	WebhookUrl    string `json:"webhook_url"`
	SigningSecret string `json:"signing_secret"`
	Prefix        string `json:"prefix"`
}

type Log struct {
	Mode       int32  `json:"mode"`
	Level      string `json:"level"`
	App        string `json:"app"`
	Dir        string `json:"dir"`
	File       bool   `json:"file"`
	MaxSizeMb  int32  `json:"max_size_mb"`
	MaxBackups int32  `json:"max_backups"`
	MaxAgeDays int32  `json:"max_age_days"`
}

// Duration 支持 "1.5s" 形式，也接受纳秒整数
type Duration struct {
	time.Duration
}

func NewDuration(d time.Duration) *Duration {
	return &Duration{Duration: d}
}

// AsDuration nil 时返回 0
func (d *Duration) AsDuration() time.Duration {
	if d == nil {
		return 0
	}
	return d.Duration
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" || s == `""` {
		d.Duration = 0
		return nil
	}
	if unq, err := strconv.Unquote(s); err == nil {
		v, err := time.ParseDuration(unq)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", unq, err)
		}
		d.Duration = v
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid duration %s: %w", s, err)
	}
	d.Duration = time.Duration(n)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(d.String())), nil
}

// OrDefault 未配置或非正数时使用 def
func (d *Duration) OrDefault(def time.Duration) time.Duration {
	if v := d.AsDuration(); v > 0 {
		return v
	}
	return def
}
