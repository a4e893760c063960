package chart

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"slot4d/internal/conf"

	"github.com/google/wire"
	jsoniter "github.com/json-iterator/go"
)

var ProviderSet = wire.NewSet(NewGenerator)

const (
	DefaultOutputDir = "./rtp_charts"
	// SampleMax 单图最多绘制的点数
	SampleMax = 5000
)

type IGenerator interface {
	Generate(pts []Point, opts Options) (*GenerateResult, error)
}

// Point 图表数据点
type Point struct {
	X    float64 `json:"x"` // 累计局数（万）
	Y    float64 `json:"y"` // 累计 RTP
	Time string  `json:"time"`
}

// Options 图表标题与参考线
type Options struct {
	TaskID    string
	Title     string
	TargetRTP float64
	Deviation float64
	SaveLocal bool
}

type GenerateResult struct {
	HTMLContent string
	FilePath    string // SaveLocal=false 时为空
	PNGPath     string // 未渲染截图时为空
}

// Generator 输出 plotly HTML，可选落盘并用无头 Chrome 截图
type Generator struct {
	outputDir string
	renderPNG bool

	chromeOnce sync.Once
	chrome     string
}

func NewGenerator(c *conf.Simulation) IGenerator {
	g := &Generator{outputDir: DefaultOutputDir}
	if c != nil {
		if c.ChartDir != "" {
			g.outputDir = c.ChartDir
		}
		g.renderPNG = c.RenderPng
	}
	return g
}

// Generate 生成 RTP 收敛曲线，目标线与上下限取自 opts
func (g *Generator) Generate(pts []Point, opts Options) (*GenerateResult, error) {
	if len(pts) == 0 {
		return nil, fmt.Errorf("chart %s: no points", opts.TaskID)
	}
	pts = Sample(pts, SampleMax)

	x, y, t := make([]float64, len(pts)), make([]float64, len(pts)), make([]string, len(pts))
	xMax, yMax := 0.0, opts.TargetRTP+opts.Deviation
	for i, p := range pts {
		x[i], y[i], t[i] = p.X, p.Y, p.Time
		xMax = max(xMax, p.X)
		yMax = max(yMax, p.Y)
	}
	xJ, _ := jsoniter.Marshal(x)
	yJ, _ := jsoniter.Marshal(y)
	tJ, _ := jsoniter.Marshal(t)

	title := opts.Title
	if title == "" {
		title = "RTP"
	}
	res := &GenerateResult{HTMLContent: fmt.Sprintf(chartTpl,
		title, title, opts.TaskID,
		string(xJ), string(yJ), string(tJ), xMax, yMax,
		opts.TargetRTP, opts.TargetRTP-opts.Deviation, opts.TargetRTP+opts.Deviation,
		title, opts.TaskID,
	)}
	if !opts.SaveLocal {
		return res, nil
	}

	if err := os.MkdirAll(g.outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("chart dir: %w", err)
	}
	res.FilePath = filepath.Join(g.outputDir, opts.TaskID+".html")
	if err := os.WriteFile(res.FilePath, []byte(res.HTMLContent), 0o644); err != nil {
		return nil, fmt.Errorf("write chart: %w", err)
	}
	if g.renderPNG {
		res.PNGPath = g.screenshot(res.FilePath)
	}
	return res, nil
}

// Sample 等间距采样，保留首尾
func Sample(pts []Point, limit int) []Point {
	n := len(pts)
	if limit < 2 || n <= limit {
		return pts
	}
	step := max((n-1)/(limit-1), 1)
	out := make([]Point, 0, limit)
	for i := 0; i < n && len(out) < limit-1; i += step {
		out = append(out, pts[i])
	}
	return append(out, pts[n-1])
}

func (g *Generator) findChrome() string {
	g.chromeOnce.Do(func() {
		for _, name := range []string{"google-chrome", "chromium", "chromium-browser",
			"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome"} {
			if p, err := exec.LookPath(name); err == nil {
				g.chrome = p
				return
			}
		}
	})
	return g.chrome
}

// screenshot 截图失败返回空串，不影响 HTML 结果
func (g *Generator) screenshot(htmlPath string) string {
	chrome := g.findChrome()
	if chrome == "" {
		return ""
	}
	absH, _ := filepath.Abs(htmlPath)
	absP, _ := filepath.Abs(strings.TrimSuffix(htmlPath, ".html") + ".png")
	args := []string{
		"--headless=new", "--disable-gpu", "--hide-scrollbars", "--no-sandbox",
		"--window-size=1720,920", "--force-device-scale-factor=2",
		"--virtual-time-budget=8000",
		"--screenshot=" + absP, "file://" + absH,
	}
	if exec.Command(chrome, args...).Run() != nil {
		// 旧版 Chrome 不认 --headless=new
		args[0] = "--headless"
		if exec.Command(chrome, args...).Run() != nil {
			return ""
		}
	}
	return absP
}

const chartTpl = `<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<title>RTP 模拟 - %s</title>
<script src="https://cdn.plot.ly/plotly-2.27.0.min.js"></script>
<style>body{font-family:'Microsoft YaHei';margin:0;padding:20px;background:#f5f5f5}.container{background:#fff;padding:20px;border-radius:8px;box-shadow:0 2px 4px rgba(0,0,0,.1)}</style>
</head>
<body>
<div class="container"><h1>%s, Task: %s</h1><div id="chart"></div></div>
<script>
var xData=%s,yData=%s,timeData=%s,xMax=%f,yMax=%f,target=%f,lower=%f,upper=%f;
var trace1={x:xData,y:yData,mode:'lines',name:'RTP',line:{color:'#F00',width:2,shape:'spline'},customdata:timeData,hovertemplate:'局数: %%{x:.2f}万<br>RTP: %%{y:.2%%}<br>%%{customdata}<extra></extra>'};
var trace2={x:[0,xMax],y:[target,target],mode:'lines',name:'目标',line:{color:'blue',dash:'dash'}};
var trace3={x:[0,xMax],y:[lower,lower],mode:'lines',name:'下限',line:{color:'green',dash:'dashdot'}};
var trace4={x:[0,xMax],y:[upper,upper],mode:'lines',name:'上限',line:{color:'green',dash:'dashdot'}};
var annotations=[];
var maxAnno=12;
var annoStep=Math.max(1,Math.ceil(xMax/maxAnno));
for(var m=annoStep,count=0;m<=Math.ceil(xMax)&&count<maxAnno;m+=annoStep,count++){
  var idx=0,minD=1e9;
  for(var i=0;i<xData.length;i++) if(Math.abs(xData[i]-m)<minD){minD=Math.abs(xData[i]-m);idx=i;}
  if(minD<1e9) annotations.push({x:xData[idx],y:yData[idx],text:'<b>'+m+'万</b><br>'+(yData[idx]*100).toFixed(2)+'%%',showarrow:true,ax:0,ay:-45,bgcolor:'rgba(255,255,255,.7)'});
}
var layout={title:'%s, Task: %s',annotations:annotations,
  xaxis:{title:'累计局数(万)',showgrid:true,zeroline:false,automargin:true},
  yaxis:{title:'累计 RTP',tickformat:'.0%%',range:[0,Math.max(yMax*1.1,1.2)],showgrid:true},
  font:{size:14},plot_bgcolor:'#E8F8FF',height:800,width:1600,hovermode:'closest',
  legend:{x:0.99,y:0.99,xanchor:'right'}};
Plotly.newPlot('chart',[trace1,trace2,trace3,trace4],layout,{displayModeBar:false});
</script>
</body>
</html>`
