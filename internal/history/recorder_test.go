package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Marthi0/OBS-Multi-Instance-Controller/internal/supervisor"
	"github.com/google/uuid"
)

// supervisorEvent builds a supervisor event for recorder tests.
func supervisorEvent(court string, typ supervisor.EventType) supervisor.Event {
	return supervisor.Event{
		ID:        uuid.New().String(),
		Court:     court,
		Type:      typ,
		Timestamp: time.Now().UTC(),
	}
}

// failingRepo always fails Create; List and Prune are unused.
type failingRepo struct{}

func (failingRepo) Create(context.Context, *Event) error {
	return errors.New("disk full")
}

func (failingRepo) List(context.Context, Filter) (*ListResult, error) {
	return nil, errors.New("unused")
}

func (failingRepo) Prune(context.Context, time.Duration) (int64, error) {
	return 0, errors.New("unused")
}

func TestRecorderSwallowsWriteErrors(t *testing.T) {
	rec := NewRecorder(failingRepo{})

	// Must not panic or propagate: persistence is best effort.
	rec.Handle(supervisorEvent("court-1", supervisor.EventLaunched))
}
