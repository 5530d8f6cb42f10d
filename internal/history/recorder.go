package history

import (
	"context"
	"time"

	"github.com/Marthi0/OBS-Multi-Instance-Controller/internal/supervisor"
)

// writeTimeout bounds each event insert so a wedged database cannot back
// up the supervisor's event dispatch.
const writeTimeout = 5 * time.Second

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

// Recorder persists supervisor lifecycle events into the history store.
// Persistence is best effort: a failed insert is logged and dropped, it
// never disturbs supervision.
type Recorder struct {
	repo   Repository
	logger Logger
}

// NewRecorder creates a recorder writing to the given repository.
func NewRecorder(repo Repository) *Recorder {
	return &Recorder{
		repo:   repo,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the recorder.
func (r *Recorder) SetLogger(logger Logger) {
	r.logger = logger
}

// Handle stores one supervisor event. It is the subscription callback
// registered with supervisor.Subscribe.
func (r *Recorder) Handle(ev supervisor.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	err := r.repo.Create(ctx, &Event{
		ID:        ev.ID,
		Court:     ev.Court,
		Type:      string(ev.Type),
		Detail:    ev.Detail,
		CreatedAt: ev.Timestamp,
	})
	if err != nil {
		r.logger.Error("failed to persist court event",
			"court", ev.Court,
			"type", string(ev.Type),
			"error", err,
		)
	}
}
