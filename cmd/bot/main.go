package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tickbot.ai/internal/bridge"
	"tickbot.ai/internal/catalogs"
	"tickbot.ai/internal/game"
	"tickbot.ai/internal/humanize"
	"tickbot.ai/internal/metrics"
	"tickbot.ai/internal/persistence/indexdb"
	persistlog "tickbot.ai/internal/persistence/log"
	"tickbot.ai/internal/plan"
	"tickbot.ai/internal/runner"
	"tickbot.ai/internal/scheduler"
	"tickbot.ai/internal/task"
	"tickbot.ai/internal/transport/ws"
	"tickbot.ai/internal/tuning"
)

func main() {
	var (
		addr       = flag.String("addr", "127.0.0.1:8765", "listen address for the client websocket and /metrics")
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory (event logs, index db)")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		planPath   = flag.String("plan", "", "path to plan.yaml (default: <configs>/plan.yaml)")
		itemsPath  = flag.String("items", "", "path to items.yaml (default: <configs>/items.yaml)")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite task-run index")
		watch      = flag.Bool("watch_tuning", true, "reload tuning.yaml when it changes")
		logLevel   = flag.String("log_level", "info", "engine log level: debug, info, warn, error")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)
	slogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(*logLevel)}))

	tp := orDefault(*tuningPath, filepath.Join(*configDir, "tuning.yaml"))
	tune, err := tuning.Load(tp)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", tp)
		tune = tuning.Defaults()
	}

	items, err := catalogs.Load(orDefault(*itemsPath, filepath.Join(*configDir, "items.yaml")))
	if err != nil {
		logger.Fatalf("load items: %v", err)
	}
	p, err := plan.Load(orDefault(*planPath, filepath.Join(*configDir, "plan.yaml")))
	if err != nil {
		logger.Fatalf("load plan: %v", err)
	}

	var (
		builderMu sync.Mutex
		builder   = plan.Builder{Tuning: tune, Items: items}
	)
	current := func() plan.Builder {
		builderMu.Lock()
		defer builderMu.Unlock()
		return builder
	}
	tasks, err := builder.Tasks(p)
	if err != nil {
		logger.Fatalf("build plan: %v", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	exec := scheduler.New(execConfig(tune), m)
	eventLog := persistlog.NewEventLogger(*dataDir, slogger)
	defer eventLog.Close()
	exec.AddObserver(eventLog)

	if !*disableDB {
		idx, err := indexdb.OpenSQLite(filepath.Join(*dataDir, "index", "tickbot.sqlite"))
		if err != nil {
			logger.Fatalf("open index: %v", err)
		}
		defer idx.Close()
		exec.AddObserver(idx)
		if err := idx.SetMeta(context.Background(), "items_digest", items.Digest); err != nil {
			logger.Printf("index: record items digest: %v", err)
		}
	}
	exec.AddObserver(scheduler.ObserverFunc(func(e scheduler.Event) {
		if !e.Outcome.Final() {
			return
		}
		slogger.Info("task finished", "run", e.RunID, "kind", e.Kind, "outcome", string(e.Outcome), "reason", e.Reason, "ticks", e.Ticks)
	}))

	for _, t := range tasks {
		exec.Enqueue(t)
	}
	logger.Printf("plan loaded: %d tasks", len(tasks))

	seed := tune.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rnd := humanize.NewSource(seed)
	env := bridge.Env{Timer: humanize.NewWallTimer(rnd), Random: rnd, Log: slogger}
	onDeath := func(at game.Point, ok bool) task.Task {
		dp := plan.DeathParams{}
		if p.OnDeath != nil {
			dp = *p.OnDeath
		}
		if ok && dp.DiedAt == nil {
			dp.DiedAt = &at
		}
		return current().Death(&dp)
	}
	run := runner.New(runnerConfig(tune), exec, env, onDeath, m)

	ctx, cancel := signalContext()
	defer cancel()

	if *watch {
		go func() {
			err := tuning.Watch(ctx, tp, 250*time.Millisecond, slogger, func(t tuning.Tuning) {
				builderMu.Lock()
				builder.Tuning = t
				builderMu.Unlock()
				exec.SetConfig(execConfig(t))
				run.SetConfig(runnerConfig(t))
			})
			if err != nil && err != context.Canceled {
				logger.Printf("tuning watch stopped: %v", err)
			}
		}()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.Handle("/v1/ws", ws.NewServer(run, logger).Handler())

	srv := &http.Server{Addr: *addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

func execConfig(t tuning.Tuning) scheduler.Config {
	return scheduler.Config{MaxRetries: t.Engine.MaxRetries, MaxPendingTicks: t.Engine.MaxPendingTicks}
}

func runnerConfig(t tuning.Tuning) runner.Config {
	return runner.Config{
		TickRateHz: t.TickRateHz,
		Bridge: bridge.Config{
			AckTimeoutTicks:    t.Bridge.AckTimeoutTicks,
			MaxCommandsPerTick: t.Bridge.MaxCommandsPerTick,
		},
	}
}

func orDefault(v, def string) string {
	if s := strings.TrimSpace(v); s != "" {
		return s
	}
	return def
}

func parseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return l
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
