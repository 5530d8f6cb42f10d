package supervisor

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Marthi0/OBS-Multi-Instance-Controller/internal/infrastructure/config"
	"github.com/Marthi0/OBS-Multi-Instance-Controller/internal/obs"
	"github.com/Marthi0/OBS-Multi-Instance-Controller/internal/watchdog"
)

// fakeClient implements obs.Client with scripted behaviour.
type fakeClient struct {
	mu          sync.Mutex
	connected   bool
	connectErr  error
	commandErr  error
	status      obs.Status
	disconnects int
	commands    []string
}

func (c *fakeClient) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.connectErr != nil {
		return c.connectErr
	}
	c.connected = true
	return nil
}

func (c *fakeClient) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	c.disconnects++
}

func (c *fakeClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *fakeClient) command(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.commands = append(c.commands, name)
	return c.commandErr
}

func (c *fakeClient) StartStreaming() error { return c.command("StartStreaming") }
func (c *fakeClient) StopStreaming() error  { return c.command("StopStreaming") }
func (c *fakeClient) StartRecording() error { return c.command("StartRecording") }
func (c *fakeClient) StopRecording() error  { return c.command("StopRecording") }

func (c *fakeClient) Status() obs.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

func (c *fakeClient) commandLog() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.commands))
	copy(out, c.commands)
	return out
}

// fakeLauncher implements ProcessLauncher and records call order against
// the court's monitor flag.
type fakeLauncher struct {
	mu           sync.Mutex
	running      bool
	pid          int
	launchErr    error
	launches     int
	stops        int
	restarts     int
	markedAtStop bool
	monitor      *fakeMonitor
}

func (l *fakeLauncher) Launch() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.launches++
	if l.launchErr != nil {
		return l.launchErr
	}
	l.running = true
	l.pid = 4242
	return nil
}

func (l *fakeLauncher) Stop(timeout time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stops++
	if l.monitor != nil {
		l.markedAtStop = l.monitor.marked()
	}
	l.running = false
	l.pid = 0
	return nil
}

func (l *fakeLauncher) Restart() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.restarts++
	l.running = true
	l.pid = 4243
	return nil
}

func (l *fakeLauncher) IsRunning() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

func (l *fakeLauncher) PID() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pid
}

// fakeMonitor implements healthMonitor.
type fakeMonitor struct {
	mu              sync.Mutex
	running         bool
	manuallyStopped bool
	starts          int
	stops           int
}

func (m *fakeMonitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running = true
	m.starts++
}

func (m *fakeMonitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running = false
	m.stops++
}

func (m *fakeMonitor) MarkManuallyStopped() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.manuallyStopped = true
}

func (m *fakeMonitor) marked() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.manuallyStopped
}

func (m *fakeMonitor) State() watchdog.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return watchdog.State{
		Running:         m.running,
		WasConnected:    false,
		ManuallyStopped: m.manuallyStopped,
	}
}

// fakeCourt bundles the fakes behind one named court.
type fakeCourt struct {
	client   *fakeClient
	launcher *fakeLauncher
	monitor  *fakeMonitor
}

// newTestSupervisor assembles a supervisor over fake courts.
func newTestSupervisor(names ...string) (*Supervisor, map[string]*fakeCourt) {
	s := &Supervisor{
		logger:  noopLogger{},
		courts:  make(map[string]*court),
		eventCh: make(chan Event, 64),
		done:    make(chan struct{}),
	}
	fakes := make(map[string]*fakeCourt)

	for i, name := range names {
		monitor := &fakeMonitor{}
		fc := &fakeCourt{
			client:   &fakeClient{},
			launcher: &fakeLauncher{monitor: monitor},
			monitor:  monitor,
		}
		fakes[name] = fc

		s.order = append(s.order, name)
		s.courts[name] = &court{
			config: config.CourtConfig{
				Name:          name,
				WebSocketPort: 4455 + i,
				ProfileName:   "Profile" + name,
			},
			client:   fc.client,
			launcher: fc.launcher,
			watchdog: monitor,
		}
	}

	go s.dispatch()
	return s, fakes
}

// collectEvents subscribes and returns a thread-safe accessor.
func collectEvents(s *Supervisor) func() []Event {
	var mu sync.Mutex
	var events []Event
	s.Subscribe(func(ev Event) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	})
	return func() []Event {
		mu.Lock()
		defer mu.Unlock()
		out := make([]Event, len(events))
		copy(out, events)
		return out
	}
}

// waitFor polls cond until it returns true or the timeout expires.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestStartAllLaunchesEveryCourt(t *testing.T) {
	s, fakes := newTestSupervisor("court-1", "court-2", "court-3")
	defer s.StopAll()

	s.StartAll()

	for name, fc := range fakes {
		if fc.launcher.launches != 1 {
			t.Errorf("court %s launches = %d, want 1", name, fc.launcher.launches)
		}
		if fc.monitor.starts != 1 {
			t.Errorf("court %s watchdog starts = %d, want 1", name, fc.monitor.starts)
		}
	}
}

func TestStartAllContinuesPastLaunchFailure(t *testing.T) {
	s, fakes := newTestSupervisor("court-1", "court-2")
	defer s.StopAll()

	fakes["court-1"].launcher.launchErr = errors.New("executable missing")
	s.StartAll()

	if fakes["court-2"].launcher.launches != 1 {
		t.Error("court-2 was not launched after court-1 failed")
	}
	// The watchdog still runs for the failed court so recovery can take
	// over once the operator fixes the problem.
	if fakes["court-1"].monitor.starts != 1 {
		t.Error("watchdog not started for failed court")
	}
}

func TestStopCourtMarksIntentBeforeStopping(t *testing.T) {
	s, fakes := newTestSupervisor("court-1")
	defer s.StopAll()

	fc := fakes["court-1"]
	fc.launcher.running = true
	fc.client.connected = true

	if err := s.StopCourt("court-1"); err != nil {
		t.Fatalf("StopCourt() error = %v", err)
	}

	if !fc.launcher.markedAtStop {
		t.Error("manual-stop flag was not set before the process stop")
	}
	if fc.client.disconnects != 1 {
		t.Errorf("client disconnects = %d, want 1", fc.client.disconnects)
	}
	if fc.launcher.IsRunning() {
		t.Error("launcher still running after StopCourt")
	}
	// The watchdog itself stays active.
	if fc.monitor.stops != 0 {
		t.Error("watchdog was stopped by a manual court stop")
	}
}

func TestStartCourtUnknown(t *testing.T) {
	s, _ := newTestSupervisor("court-1")
	defer s.StopAll()

	if err := s.StartCourt("court-9"); !errors.Is(err, ErrUnknownCourt) {
		t.Errorf("StartCourt(unknown) error = %v, want ErrUnknownCourt", err)
	}
	if err := s.StopStream("court-9"); !errors.Is(err, ErrUnknownCourt) {
		t.Errorf("StopStream(unknown) error = %v, want ErrUnknownCourt", err)
	}
}

func TestStreamCommandsConnectOnDemand(t *testing.T) {
	s, fakes := newTestSupervisor("court-1")
	defer s.StopAll()

	fc := fakes["court-1"]
	if err := s.StartStream("court-1"); err != nil {
		t.Fatalf("StartStream() error = %v", err)
	}

	if !fc.client.IsConnected() {
		t.Error("client not connected after on-demand connect")
	}
	got := fc.client.commandLog()
	if len(got) != 1 || got[0] != "StartStreaming" {
		t.Errorf("commands = %v, want [StartStreaming]", got)
	}
}

func TestStreamCommandConnectFailure(t *testing.T) {
	s, fakes := newTestSupervisor("court-1")
	defer s.StopAll()

	fakes["court-1"].client.connectErr = errors.New("refused")

	if err := s.StartStream("court-1"); err == nil {
		t.Error("StartStream() = nil, want connect error")
	}
	if got := fakes["court-1"].client.commandLog(); len(got) != 0 {
		t.Errorf("commands sent despite failed connect: %v", got)
	}
}

func TestRecordCommands(t *testing.T) {
	s, fakes := newTestSupervisor("court-1")
	defer s.StopAll()

	fc := fakes["court-1"]
	fc.client.connected = true

	if err := s.StartRecord("court-1"); err != nil {
		t.Fatalf("StartRecord() error = %v", err)
	}
	if err := s.StopRecord("court-1"); err != nil {
		t.Fatalf("StopRecord() error = %v", err)
	}

	got := fc.client.commandLog()
	want := []string{"StartRecording", "StopRecording"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("commands = %v, want %v", got, want)
	}
}

func TestEventsReachSubscribers(t *testing.T) {
	s, _ := newTestSupervisor("court-1")
	defer s.StopAll()

	events := collectEvents(s)

	if err := s.StartCourt("court-1"); err != nil {
		t.Fatalf("StartCourt() error = %v", err)
	}

	if !waitFor(t, time.Second, func() bool { return len(events()) == 1 }) {
		t.Fatalf("events = %v, want one launched event", events())
	}

	ev := events()[0]
	if ev.Type != EventLaunched || ev.Court != "court-1" {
		t.Errorf("event = %+v, want launched for court-1", ev)
	}
	if ev.ID == "" || ev.Timestamp.IsZero() {
		t.Errorf("event missing id or timestamp: %+v", ev)
	}
}

func TestStatusesOrderAndContent(t *testing.T) {
	s, fakes := newTestSupervisor("court-b", "court-a")
	defer s.StopAll()

	fakes["court-b"].launcher.running = true
	fakes["court-b"].launcher.pid = 101
	fakes["court-b"].client.status = obs.Status{Connected: true, Streaming: true}

	statuses := s.Statuses()
	if len(statuses) != 2 {
		t.Fatalf("len(Statuses()) = %d, want 2", len(statuses))
	}
	// Configuration order, not alphabetical.
	if statuses[0].Name != "court-b" || statuses[1].Name != "court-a" {
		t.Errorf("status order = [%s %s], want [court-b court-a]",
			statuses[0].Name, statuses[1].Name)
	}

	b := statuses[0]
	if !b.ProcessRunning || b.PID != 101 || !b.Connected || !b.Streaming || b.Recording {
		t.Errorf("court-b status = %+v", b)
	}

	a := statuses[1]
	if a.ProcessRunning || a.Connected || a.Streaming {
		t.Errorf("court-a status = %+v, want everything down", a)
	}
}

func TestStatusUnknownCourt(t *testing.T) {
	s, _ := newTestSupervisor("court-1")
	defer s.StopAll()

	if _, err := s.Status("nope"); !errors.Is(err, ErrUnknownCourt) {
		t.Errorf("Status(unknown) error = %v, want ErrUnknownCourt", err)
	}
}

func TestNewBuildsConfiguredCourts(t *testing.T) {
	cfg := &config.Config{
		OBS: config.OBSConfig{ExecutablePath: "/usr/bin/obs"},
		Courts: []config.CourtConfig{
			{Name: "court-1", WebSocketPort: 4455, ProfileName: "Court1"},
			{Name: "court-2", WebSocketPort: 4456, ProfileName: "Court2"},
		},
		Watchdog: config.WatchdogConfig{CheckInterval: 5, RestartDelay: 3},
	}

	s := New(cfg, nil)
	defer s.StopAll()

	courts := s.Courts()
	if len(courts) != 2 || courts[0] != "court-1" || courts[1] != "court-2" {
		t.Fatalf("Courts() = %v, want [court-1 court-2]", courts)
	}

	status, err := s.Status("court-2")
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if status.Profile != "Court2" || status.WebSocketPort != 4456 {
		t.Errorf("status = %+v, want profile Court2 on port 4456", status)
	}
	if status.ProcessRunning || status.Connected {
		t.Errorf("status = %+v, want nothing running before StartAll", status)
	}
}

func TestStopAllStopsEverything(t *testing.T) {
	s, fakes := newTestSupervisor("court-1", "court-2")

	s.StartAll()
	s.StopAll()

	for name, fc := range fakes {
		if fc.monitor.stops != 1 {
			t.Errorf("court %s watchdog stops = %d, want 1", name, fc.monitor.stops)
		}
		if fc.launcher.stops != 1 {
			t.Errorf("court %s launcher stops = %d, want 1", name, fc.launcher.stops)
		}
		if fc.launcher.IsRunning() {
			t.Errorf("court %s still running after StopAll", name)
		}
	}
}
