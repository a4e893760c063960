package main

import (
	"flag"
	"os"
	"time"

	"slot4d/internal/conf"
	"slot4d/pkg/zap"

	"github.com/go-kratos/kratos/v2"
	"github.com/go-kratos/kratos/v2/config"
	"github.com/go-kratos/kratos/v2/config/file"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/transport/http"

	_ "go.uber.org/automaxprocs"
)

// go build -ldflags "-X main.Version=x.y.z"
var (
	Name     = "slot4d"
	Version  = "v0.0.1"
	flagconf string
	flagtz   string
	id, _    = os.Hostname()
)

func init() {
	flag.StringVar(&flagconf, "conf", "../../configs", "config path, eg: -conf config.yaml")
	flag.StringVar(&flagtz, "tz", "Asia/Shanghai", "time zone for order timestamps and chart labels")
}

func setLocation(name string) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		log.Warnf("load time zone %q failed, using UTC: %v", name, err)
		loc = time.UTC
	}
	time.Local = loc
}

func newLogger(c *conf.Log) *zap.Logger {
	if c == nil {
		c = &conf.Log{Level: "info"}
	}
	app := c.App
	if app == "" {
		app = Name
	}
	return zap.NewLoggerWithConfig(&zap.Config{
		Mode:       zap.Mode(c.Mode),
		Level:      c.Level,
		App:        app,
		Dir:        c.Dir,
		File:       c.File,
		MaxSizeMB:  int(c.MaxSizeMb),
		MaxBackups: int(c.MaxBackups),
		MaxAgeDays: int(c.MaxAgeDays),
	})
}

func newApp(logger log.Logger, hs *http.Server, d *conf.Data) *kratos.App {
	store := "memory"
	if d != nil && d.Store != "" {
		store = d.Store
	}
	return kratos.New(
		kratos.ID(id),
		kratos.Name(Name),
		kratos.Version(Version),
		kratos.Metadata(map[string]string{"store": store}),
		kratos.Logger(logger),
		kratos.Server(hs),
	)
}

func main() {
	flag.Parse()
	setLocation(flagtz)

	c := config.New(config.WithSource(file.NewSource(flagconf)))
	defer c.Close()
	if err := c.Load(); err != nil {
		panic(err)
	}
	var bc conf.Bootstrap
	if err := c.Scan(&bc); err != nil {
		panic(err)
	}

	zl := newLogger(bc.Log)
	defer zl.Sync()
	logger := log.With(zl, "service.name", Name, "service.version", Version)
	log.SetLogger(logger)
	log.Infof("starting %s %s, conf=%s", Name, Version, flagconf)

	app, cleanup, err := wireApp(bc.Server, bc.Data, bc.Game, bc.Simulation, bc.Notify, logger)
	if err != nil {
		panic(err)
	}
	defer cleanup()

	if err := app.Run(); err != nil {
		panic(err)
	}
}
