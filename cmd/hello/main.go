// Command hello is a multithreaded hello-world web server: every accepted
// connection is handled as a job on a fixed-size threadpool.
package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/mongodb/grip"
	"github.com/mongodb/grip/level"
	"github.com/mongodb/grip/logging"
	"github.com/mongodb/grip/message"
	"github.com/mongodb/grip/send"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli"

	"github.com/ygrebnov/threadpool"
	"github.com/ygrebnov/threadpool/internal/config"
	"github.com/ygrebnov/threadpool/internal/server"
	"github.com/ygrebnov/threadpool/metrics"
)

func main() {
	grip.EmergencyFatal(buildApp().Run(os.Args))
}

func buildApp() *cli.App {
	app := cli.NewApp()
	app.Name = "hello"
	app.Usage = "serve a hello page from a fixed pool of workers"

	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "conf, config, c",
			Usage: "path to a YAML configuration file",
		},
		cli.StringFlag{
			Name:  "addr",
			Usage: "listen address (overrides server.addr)",
		},
		cli.IntFlag{
			Name:  "workers, w",
			Usage: "number of pool workers (overrides pool.workers)",
		},
		cli.IntFlag{
			Name:  "max-connections",
			Usage: "stop after serving this many connections, 0 for unlimited (overrides server.max_connections)",
		},
		cli.DurationFlag{
			Name:  "sleep-delay",
			Usage: "delay of GET /sleep (overrides server.sleep_delay)",
		},
		cli.StringFlag{
			Name:  "panic-policy",
			Usage: "'recover' or 'stop-worker' (overrides pool.panic_policy)",
		},
		cli.StringFlag{
			Name:  "level",
			Usage: "lowest visible log level: 'emergency|alert|critical|error|warning|notice|info|debug|trace' (overrides log.level)",
		},
	}

	app.Action = func(c *cli.Context) error {
		settings, err := loadSettings(c)
		if err != nil {
			return err
		}
		if err := loggingSetup(settings.LogName, settings.LogLevel); err != nil {
			return errors.Wrap(err, "setting up logging")
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		return run(ctx, settings)
	}

	return app
}

// loadSettings reads the optional config file, then applies flags set on the command line.
func loadSettings(c *cli.Context) (config.Settings, error) {
	settings := config.Default()
	if path := c.String("conf"); path != "" {
		fc, err := config.LoadFile(path)
		if err != nil {
			return settings, err
		}
		if settings, err = fc.Settings(); err != nil {
			return settings, errors.Wrapf(err, "config file %s", path)
		}
	}

	if c.IsSet("addr") {
		settings.Addr = c.String("addr")
	}
	if c.IsSet("workers") {
		settings.Workers = c.Int("workers")
	}
	if c.IsSet("max-connections") {
		settings.MaxConnections = c.Int("max-connections")
	}
	if c.IsSet("sleep-delay") {
		settings.SleepDelay = c.Duration("sleep-delay")
	}
	if c.IsSet("panic-policy") {
		p, err := threadpool.ParsePanicPolicy(c.String("panic-policy"))
		if err != nil {
			return settings, errors.Wrap(err, "invalid --panic-policy")
		}
		settings.PanicPolicy = p
	}
	if c.IsSet("level") {
		l, err := config.ParseLevel(c.String("level"))
		if err != nil {
			return settings, errors.Wrap(err, "invalid --level")
		}
		settings.LogLevel = l
	}

	if settings.MaxConnections < 0 {
		return settings, errors.New("max connections must be non-negative")
	}
	return settings, nil
}

func loggingSetup(name string, threshold level.Priority) error {
	if err := grip.SetSender(send.MakeErrorLogger()); err != nil {
		return err
	}
	grip.SetName(name)

	sender := grip.GetSender()
	info := sender.Level()
	info.Threshold = threshold

	return sender.SetLevel(info)
}

func run(ctx context.Context, s config.Settings) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	logger := logging.MakeGrip(grip.GetSender())
	pool, err := threadpool.TryNew(s.Workers,
		threadpool.WithName(s.PoolName),
		threadpool.WithLogger(logger),
		threadpool.WithMetrics(metrics.NewPrometheusProvider(reg)),
		threadpool.WithPanicPolicy(s.PanicPolicy),
	)
	if err != nil {
		return errors.Wrap(err, "creating pool")
	}

	srv := server.New(pool, server.Options{
		SleepDelay:     s.SleepDelay,
		ReadTimeout:    s.ReadTimeout,
		MaxConnections: s.MaxConnections,
		Gatherer:       reg,
		Logger:         logger,
	})

	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		pool.Shutdown()
		return errors.Wrapf(err, "listening on %s", s.Addr)
	}

	serveErr := srv.Serve(ctx, ln)

	grip.Info(message.Fields{
		"message":  "shutting down",
		"accepted": srv.Accepted(),
	})
	catcher := grip.NewBasicCatcher()
	catcher.Add(serveErr)
	catcher.Add(srv.Shutdown())
	return catcher.Resolve()
}
