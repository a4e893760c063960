package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"slot4d/internal/conf"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/google/wire"
	jsoniter "github.com/json-iterator/go"
)

var ProviderSet = wire.NewSet(NewFeishu)

const feishuTimeout = 10 * time.Second

// Feishu 飞书群机器人，消息以卡片形式发送
type Feishu struct {
	webhook string
	secret  string
	prefix  string
	client  *http.Client
	now     func() time.Time
}

func NewFeishu(c *conf.Notify) Notifier {
	if c == nil || !c.Enabled || strings.TrimSpace(c.WebhookUrl) == "" {
		return Noop{}
	}
	return &Feishu{
		webhook: strings.TrimSpace(c.WebhookUrl),
		secret:  strings.TrimSpace(c.SigningSecret),
		prefix:  strings.TrimSpace(c.Prefix),
		client:  &http.Client{Timeout: feishuTimeout},
		now:     time.Now,
	}
}

type feishuText struct {
	Tag     string `json:"tag"`
	Content string `json:"content"`
}

type feishuCard struct {
	Config struct {
		WideScreenMode bool `json:"wide_screen_mode"`
	} `json:"config"`
	Header struct {
		Title    feishuText `json:"title"`
		Template string     `json:"template"`
	} `json:"header"`
	Elements []feishuElement `json:"elements"`
}

type feishuElement struct {
	Tag  string     `json:"tag"`
	Text feishuText `json:"text"`
}

type feishuPayload struct {
	MsgType   string     `json:"msg_type"`
	Card      feishuCard `json:"card"`
	Timestamp string     `json:"timestamp,omitempty"`
	Sign      string     `json:"sign,omitempty"`
}

func template(l Level) string {
	switch l {
	case LevelSuccess:
		return "green"
	case LevelWarn:
		return "red"
	default:
		return "blue"
	}
}

func (f *Feishu) payload(msg *Message) *feishuPayload {
	title := msg.Title
	if title == "" {
		title = "通知"
	}
	if f.prefix != "" {
		title = f.prefix + " " + title
	}
	content := msg.Content
	if content == "" {
		content = msg.Title
	}

	p := &feishuPayload{MsgType: "interactive"}
	p.Card.Config.WideScreenMode = true
	p.Card.Header.Title = feishuText{Tag: "plain_text", Content: title}
	p.Card.Header.Template = template(msg.Level)
	p.Card.Elements = []feishuElement{{Tag: "div", Text: feishuText{Tag: "lark_md", Content: content}}}
	if f.secret != "" {
		p.Timestamp = strconv.FormatInt(f.now().Unix(), 10)
		p.Sign = f.sign(p.Timestamp)
	}
	return p
}

func (f *Feishu) Send(ctx context.Context, msg *Message) error {
	if msg == nil {
		return nil
	}
	body, err := jsoniter.Marshal(f.payload(msg))
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.webhook, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return errors.Newf(502, "FEISHU_SEND_FAILED", "feishu: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.Newf(502, "FEISHU_SEND_FAILED", "feishu: status %d", resp.StatusCode)
	}
	var r struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
	}
	_ = jsoniter.NewDecoder(resp.Body).Decode(&r)
	if r.Code != 0 {
		return errors.Newf(502, "FEISHU_REJECTED", "feishu: code=%d msg=%s", r.Code, r.Msg)
	}
	return nil
}

// sign 签名串为 timestamp+"\n"+secret，作为 HMAC 密钥对空消息求值
func (f *Feishu) sign(ts string) string {
	h := hmac.New(sha256.New, []byte(ts+"\n"+f.secret))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// BuildSimulationReport RTP 模拟结束的 Markdown 消息，失败或取消时标红
func BuildSimulationReport(r *SimulationReport) *Message {
	if r == nil {
		return &Message{Title: "RTP 模拟结束"}
	}
	var b strings.Builder
	row := func(label, format string, args ...any) {
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "**%s**：", label)
		fmt.Fprintf(&b, format, args...)
	}
	if r.Description != "" {
		row("描述", "%s", r.Description)
	}
	row("任务ID", "%s", r.TaskID)
	row("状态", "%s", r.Status)
	row("玩家", "%d × %d 局", r.Players, r.SpinsPerPlayer)
	row("进度", "%d / %d (%.1f%%)", r.Process, r.Target, r.ProgressPct)
	row("耗时", "%s", r.Duration)
	row("SPS", "%.2f", r.SPS)
	row("平均耗时", "%s", r.AvgLatency)
	row("总下注", "%.2f", r.Wagered)
	row("总赢", "%.2f", r.Won)
	row("RTP", "%.2f%%", r.RTPPct)
	row("命中率", "%.2f%%", r.HitPct)
	row("2/3/4 位命中", "%d / %d / %d", r.Match2, r.Match3, r.Match4)
	row("头奖", "%d", r.Jackpots)
	row("杀号调整", "%d", r.Adjustments)
	row("余额不足结束", "%d", r.ForcedStops)
	row("完成/失败玩家", "%d / %d", r.Completed, r.Failed)
	if r.URL != "" {
		row("曲线", "[查看](%s)", r.URL)
	}

	level := LevelSuccess
	if r.Status != "completed" || r.Failed > 0 {
		level = LevelWarn
	}
	return &Message{Title: "RTP 模拟结束", Content: b.String(), Level: level}
}
