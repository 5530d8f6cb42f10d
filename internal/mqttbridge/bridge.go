package mqttbridge

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Marthi0/OBS-Multi-Instance-Controller/internal/infrastructure/mqtt"
	"github.com/Marthi0/OBS-Multi-Instance-Controller/internal/supervisor"
)

// commandTopicParts is the number of segments in a court command topic:
// obscontrol/court/{court}/command/{action}
const commandTopicParts = 5

// commandQoS is the QoS level for the command subscription.
const commandQoS = 1

// Commander is the supervisor surface the bridge drives.
// Satisfied by supervisor.Supervisor.
type Commander interface {
	StartCourt(name string) error
	StopCourt(name string) error
	RestartCourt(name string) error
	StartStream(name string) error
	StopStream(name string) error
	StartRecord(name string) error
	StopRecord(name string) error
	Status(name string) (supervisor.CourtStatus, error)
	Statuses() []supervisor.CourtStatus
}

// Broker is the MQTT client surface the bridge uses.
// Satisfied by mqtt.Client.
type Broker interface {
	PublishRetained(topic string, payload []byte) error
	PublishEvent(topic string, payload []byte) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// Logger defines the logging interface for the bridge.
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

// Bridge connects the supervisor to the MQTT broker.
//
// Outbound, it publishes retained per-court status and one message per
// lifecycle event. Inbound, it subscribes to the court command topics and
// forwards actions to the supervisor, so venue dashboards can start and
// stop courts and outputs without touching the HTTP API.
//
// Thread Safety: all methods are safe for concurrent use.
type Bridge struct {
	commander Commander
	broker    Broker
	topics    mqtt.Topics
	logger    Logger
}

// New creates a bridge between the supervisor and the broker.
func New(commander Commander, broker Broker) *Bridge {
	return &Bridge{
		commander: commander,
		broker:    broker,
		logger:    noopLogger{},
	}
}

// SetLogger sets the logger for the bridge.
func (b *Bridge) SetLogger(logger Logger) {
	b.logger = logger
}

// Start subscribes to the command topics and publishes the initial
// retained status for every court.
func (b *Bridge) Start() error {
	if err := b.broker.Subscribe(b.topics.AllCourtCommands(), commandQoS, b.handleCommand); err != nil {
		return fmt.Errorf("subscribing to command topics: %w", err)
	}

	b.PublishAllStatuses()
	b.logger.Info("MQTT bridge started")
	return nil
}

// HandleEvent publishes one lifecycle event and refreshes the court's
// retained status. It is the subscription callback registered with
// supervisor.Subscribe.
func (b *Bridge) HandleEvent(ev supervisor.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		b.logger.Error("failed to marshal court event", "error", err)
		return
	}

	topic := b.topics.CourtEvent(ev.Court, string(ev.Type))
	if err := b.broker.PublishEvent(topic, payload); err != nil {
		b.logger.Warn("failed to publish court event",
			"topic", topic,
			"error", err,
		)
	}

	b.publishStatus(ev.Court)
}

// PublishAllStatuses publishes the retained status of every court.
func (b *Bridge) PublishAllStatuses() {
	for _, st := range b.commander.Statuses() {
		b.publishStatusPayload(st)
	}
}

// publishStatus refreshes the retained status topic for one court.
func (b *Bridge) publishStatus(court string) {
	st, err := b.commander.Status(court)
	if err != nil {
		b.logger.Warn("failed to read court status", "court", court, "error", err)
		return
	}
	b.publishStatusPayload(st)
}

// statusMessage is the wire format of the retained status topic.
type statusMessage struct {
	supervisor.CourtStatus
	UpdatedAt time.Time `json:"updated_at"`
}

func (b *Bridge) publishStatusPayload(st supervisor.CourtStatus) {
	payload, err := json.Marshal(statusMessage{
		CourtStatus: st,
		UpdatedAt:   time.Now().UTC(),
	})
	if err != nil {
		b.logger.Error("failed to marshal court status", "error", err)
		return
	}

	topic := b.topics.CourtStatus(st.Name)
	if err := b.broker.PublishRetained(topic, payload); err != nil {
		b.logger.Warn("failed to publish court status",
			"topic", topic,
			"error", err,
		)
	}
}

// handleCommand dispatches one command message to the supervisor.
//
// A failed command is logged, never retried: the sender watches the
// status topic for the outcome.
func (b *Bridge) handleCommand(topic string, _ []byte) error {
	court, action, err := parseCommandTopic(topic)
	if err != nil {
		return err
	}

	b.logger.Info("MQTT command received", "court", court, "action", action)

	switch action {
	case "start":
		err = b.commander.StartCourt(court)
	case "stop":
		err = b.commander.StopCourt(court)
	case "restart":
		err = b.commander.RestartCourt(court)
	case "stream_start":
		err = b.commander.StartStream(court)
	case "stream_stop":
		err = b.commander.StopStream(court)
	case "record_start":
		err = b.commander.StartRecord(court)
	case "record_stop":
		err = b.commander.StopRecord(court)
	default:
		return fmt.Errorf("unknown command action %q on %s", action, topic)
	}

	if err != nil {
		return fmt.Errorf("command %s for court %s: %w", action, court, err)
	}

	b.publishStatus(court)
	return nil
}

// parseCommandTopic extracts the court and action from a command topic.
func parseCommandTopic(topic string) (court, action string, err error) {
	parts := strings.Split(topic, "/")
	if len(parts) != commandTopicParts || parts[3] != "command" {
		return "", "", fmt.Errorf("malformed command topic %q", topic)
	}
	return parts[2], parts[4], nil
}
