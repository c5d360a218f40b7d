package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/codeGROOVE-dev/retry"

	"daybook/internal/alarm"
	"daybook/internal/capture"
	"daybook/internal/catalog"
	"daybook/internal/config"
	appLog "daybook/internal/log"
	"daybook/internal/notify"
	"daybook/internal/session"
	"daybook/internal/stats"
	"daybook/internal/store"
	"daybook/internal/tui"
	"daybook/internal/web"
)

const version = "0.3.0"

type flagConfig struct {
	configPath  string
	listen      string
	once        bool
	tui         bool
	capturePath string
	debug       bool
}

func main() {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		if conf == nil {
			appLog.Error("failed to load config", err, "config_path", flags.configPath)
			os.Exit(1)
		}
		appLog.Warn("could not write default config; continuing with defaults", "config_path", flags.configPath, "err", err.Error())
	}

	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))
	if flags.debug {
		appLog.SetLevel(appLog.LevelDebug)
		conf.DataDir = "./cache"
	}
	if flags.tui {
		// The alt screen owns the terminal; log lines would tear it.
		appLog.SetOutput(io.Discard)
		conf.Alarms.Console = false
	}

	appLog.Info("daybook starting", "version", version)
	appLog.Info("effective config",
		"listen", conf.Listen,
		"data_dir", conf.DataDir,
		"locator_interval", conf.LocatorInterval.String(),
		"alarm_interval", conf.AlarmInterval.String(),
		"alarms_enabled", conf.Alarms.Enabled,
		"dedup", conf.Alarms.Dedup,
		"once", flags.once,
		"tui", flags.tui,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, conf, flags); err != nil {
		appLog.Error("daybook failed", err)
		os.Exit(1)
	}
	appLog.Info("daybook exiting")
}

func run(ctx context.Context, conf *config.Config, flags flagConfig) error {
	st, err := store.NewFileStore(conf.DataDir)
	if err != nil {
		return fmt.Errorf("open data dir: %w", err)
	}

	cat, err := catalog.Load(ctx, st)
	if err != nil {
		// Load already fell back to the built-in day; keep going on it.
		appLog.Error("schedule load failed; using defaults", err)
	}

	policy, err := alarm.ParsePolicy(conf.Alarms.Dedup)
	if err != nil {
		return err
	}
	engine := alarm.NewEngine(
		alarm.WithPolicy(policy),
		alarm.WithDefaultSound(conf.Alarms.Sound),
		alarm.WithEnabled(conf.Alarms.Enabled),
	)

	feed := notify.NewFeed(0)
	sinks := notify.Multi{notify.Log{}, feed}
	if conf.Alarms.Console {
		sinks = append(sinks, notify.NewConsole(os.Stdout, conf.Alarms.Bell))
	}

	sess := session.New(cat, engine, session.Options{
		LocatorInterval: conf.LocatorInterval,
		AlarmInterval:   conf.AlarmInterval,
		Dispatcher:      sinks,
	})

	if flags.once {
		printOnce(os.Stdout, sess)
		return nil
	}

	ctx, stop := context.WithCancel(ctx)
	defer stop()

	sess.Start(ctx)
	defer sess.Stop()

	srv := web.NewServer(conf, sess, feed)
	srvErr := make(chan error, 1)
	go func() { srvErr <- srv.Run(ctx) }()

	if flags.capturePath != "" {
		go captureWhenReady(ctx, conf, flags.capturePath)
	}

	if flags.tui {
		tuiErr := tui.Run(sess, feed)
		stop()
		return errors.Join(tuiErr, <-srvErr)
	}

	select {
	case err := <-srvErr:
		return err
	case <-ctx.Done():
		appLog.Info("signal received, shutting down")
		return <-srvErr
	}
}

// captureWhenReady screenshots the dashboard, retrying while the HTTP
// server is still coming up.
func captureWhenReady(ctx context.Context, conf *config.Config, path string) {
	opts := capture.Options{
		URL:        "http://" + conf.Listen + "/",
		OutputPath: path,
	}
	if conf.BasicAuth != nil {
		opts.Username = conf.BasicAuth.Username
		opts.Password = conf.BasicAuth.Password
	}

	err := retry.Do(
		func() error { return capture.CaptureDashboardPNG(ctx, opts) },
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(time.Second),
		retry.OnRetry(func(n uint, err error) {
			appLog.Warn("capture retry", "attempt", n+1, "err", err.Error())
		}),
	)
	if err != nil && !errors.Is(err, context.Canceled) {
		appLog.Error("capture failed", err, "path", path)
	}
}

func printOnce(w io.Writer, sess *session.Session) {
	st := sess.TickLocator()
	rep := sess.Stats()

	fmt.Fprintf(w, "daybook  %s\n\n", sess.Now().Format("Mon Jan 2 15:04"))
	if st.Current != nil {
		fmt.Fprintf(w, "Now:  %s %s (%s)  %.0f%%, %s left\n",
			st.Current.Emoji, st.Current.Title, st.Current.Interval(), st.Progress, stats.FormatMinutes(st.RemainingMinutes))
	} else {
		fmt.Fprintln(w, "Now:  nothing scheduled")
	}
	if st.Next != nil {
		fmt.Fprintf(w, "Next: %s %s at %s\n", st.Next.Emoji, st.Next.Title, st.Next.Start)
	}

	fmt.Fprintf(w, "\nElapsed %s (%.0f%%), remaining %s, %d activities done\n\n",
		stats.FormatMinutes(rep.ElapsedMinutes), rep.DayElapsedPercent,
		stats.FormatMinutes(rep.RemainingMinutes), rep.CompletedActivities)
	for _, c := range rep.Categories {
		fmt.Fprintf(w, "  %-12s %6s  %5.1f%% of day  %3.0f%% done\n", c.Label, c.Hours(), c.SharePercent, c.ProgressPercent)
	}
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/daybook/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Print the current activity and today's statistics, then exit")
	flag.BoolVar(&cfg.tui, "tui", false, "Run the terminal dashboard alongside the session")
	flag.StringVar(&cfg.capturePath, "capture", "", "Write a PNG screenshot of the dashboard to this path after startup")
	flag.BoolVar(&cfg.debug, "debug", false, "Debug logging; data kept under ./cache")

	flag.Parse()

	return cfg
}
