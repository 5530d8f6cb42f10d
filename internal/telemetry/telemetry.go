package telemetry

import (
	"sync"
	"time"

	"github.com/Marthi0/OBS-Multi-Instance-Controller/internal/supervisor"
)

// defaultSampleInterval is the time between status samples.
const defaultSampleInterval = 30 * time.Second

// StatusSource provides live court status snapshots.
// Satisfied by supervisor.Supervisor.
type StatusSource interface {
	Statuses() []supervisor.CourtStatus
}

// Sink receives telemetry points.
// Satisfied by influxdb.Client.
type Sink interface {
	WriteCourtStatus(court string, processRunning, connected, streaming, recording bool)
	WriteCourtEvent(court, eventType string, at time.Time)
}

// Logger defines the logging interface for the recorder.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Recorder periodically samples court status into the telemetry sink and
// forwards lifecycle events as annotation points.
//
// Thread Safety: Start, Stop and HandleEvent are safe for concurrent use.
type Recorder struct {
	source   StatusSource
	sink     Sink
	interval time.Duration
	logger   Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	done    chan struct{}
}

// NewRecorder creates a telemetry recorder. A zero interval selects the
// default (30s).
func NewRecorder(source StatusSource, sink Sink, interval time.Duration) *Recorder {
	if interval <= 0 {
		interval = defaultSampleInterval
	}
	return &Recorder{
		source:   source,
		sink:     sink,
		interval: interval,
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the recorder.
func (r *Recorder) SetLogger(logger Logger) {
	r.logger = logger
}

// Start activates the sampling loop. No-op if already running.
func (r *Recorder) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return
	}
	r.running = true
	r.stopCh = make(chan struct{})
	r.done = make(chan struct{})

	go r.run(r.stopCh, r.done)
	r.logger.Info("telemetry recorder started", "interval", r.interval)
}

// Stop halts the sampling loop and waits for it to finish.
// Safe to call when never started.
func (r *Recorder) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	stopCh, done := r.stopCh, r.done
	r.mu.Unlock()

	close(stopCh)
	<-done
	r.logger.Info("telemetry recorder stopped")
}

// HandleEvent forwards one lifecycle event to the sink. It is the
// subscription callback registered with supervisor.Subscribe.
func (r *Recorder) HandleEvent(ev supervisor.Event) {
	r.sink.WriteCourtEvent(ev.Court, string(ev.Type), ev.Timestamp)
}

// run samples all courts on the interval until stopped.
func (r *Recorder) run(stopCh, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			r.sample()
		}
	}
}

// sample writes one status point per court.
func (r *Recorder) sample() {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("telemetry sample panic recovered", "panic", rec)
		}
	}()

	for _, st := range r.source.Statuses() {
		r.sink.WriteCourtStatus(st.Name, st.ProcessRunning, st.Connected, st.Streaming, st.Recording)
	}
}
