package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"tickbot.ai/internal/bridge"
	"tickbot.ai/internal/scheduler"
)

// Metrics holds the bot's Prometheus collectors.
type Metrics struct {
	tasksStarted  *prometheus.CounterVec
	tasksFinished *prometheus.CounterVec
	taskRetries   *prometheus.CounterVec
	interrupts    *prometheus.CounterVec
	taskTicks     *prometheus.HistogramVec

	queueDepth prometheus.Gauge
	connected  prometheus.Gauge

	commands     *prometheus.CounterVec
	tickDuration prometheus.Histogram
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		tasksStarted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tickbot_tasks_started_total",
				Help: "Tasks that left PENDING, per attempt",
			},
			[]string{"kind"},
		),
		tasksFinished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tickbot_tasks_finished_total",
				Help: "Tasks removed from the queue by outcome",
			},
			[]string{"kind", "outcome"},
		),
		taskRetries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tickbot_task_retries_total",
				Help: "Failed tasks reset for another attempt",
			},
			[]string{"kind", "attempt"},
		),
		interrupts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tickbot_task_interrupts_total",
				Help: "Running tasks reset by an urgent task",
			},
			[]string{"kind"},
		),
		taskTicks: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tickbot_task_ticks",
				Help:    "Ticks a task spent in the queue head before finishing",
				Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
			},
			[]string{"kind"},
		),
		queueDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "tickbot_queue_depth",
				Help: "Queued and urgent tasks",
			},
		),
		connected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "tickbot_client_connected",
				Help: "1 while a game client is attached",
			},
		),
		commands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tickbot_commands_total",
				Help: "Client command acknowledgements by result",
			},
			[]string{"result"},
		),
		tickDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "tickbot_tick_duration_seconds",
				Help:    "Time to process one OBS into an ACT",
				Buckets: []float64{.0001, .0005, .001, .0025, .005, .01, .025, .05, .1},
			},
		),
	}

	reg.MustRegister(
		m.tasksStarted,
		m.tasksFinished,
		m.taskRetries,
		m.interrupts,
		m.taskTicks,
		m.queueDepth,
		m.connected,
		m.commands,
		m.tickDuration,
	)
	return m
}

// TaskEvent makes Metrics a scheduler observer.
func (m *Metrics) TaskEvent(e scheduler.Event) {
	switch e.Outcome {
	case scheduler.OutcomeStarted:
		m.tasksStarted.WithLabelValues(e.Kind).Inc()
	case scheduler.OutcomeRetry:
		m.taskRetries.WithLabelValues(e.Kind, strconv.Itoa(e.Attempt+1)).Inc()
	case scheduler.OutcomeInterrupted:
		m.interrupts.WithLabelValues(e.Kind).Inc()
	}
	if e.Outcome.Final() {
		m.tasksFinished.WithLabelValues(e.Kind, string(e.Outcome)).Inc()
		m.taskTicks.WithLabelValues(e.Kind).Observe(float64(e.Ticks))
	}
}

func (m *Metrics) ObserveTick(d time.Duration, queued int, st bridge.Stats) {
	m.tickDuration.Observe(d.Seconds())
	m.queueDepth.Set(float64(queued))
	m.commands.WithLabelValues("ok").Add(float64(st.Acked))
	m.commands.WithLabelValues("rejected").Add(float64(st.Rejected))
	m.commands.WithLabelValues("expired").Add(float64(st.Expired))
}

func (m *Metrics) SetConnected(up bool) {
	if up {
		m.connected.Set(1)
		return
	}
	m.connected.Set(0)
}
