// Package supervisor coordinates all configured courts.
//
// Each court gets its own process launcher, OBS WebSocket client, and
// health watchdog; the supervisor builds the triples from configuration
// and exposes the manual command surface: start, stop, and restart a
// court, control its streaming and recording outputs, and read live
// status. Lifecycle events (launches, stops, disconnects, reconnects,
// output changes) fan out to subscribers such as the event history, the
// MQTT bridge, and the HTTP API's WebSocket push.
//
// Courts never share state: a crash, a recovery, or a manual action on
// one instance has no effect on the others.
package supervisor
