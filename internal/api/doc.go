// Package api exposes the HTTP control surface for the court
// supervisor.
//
// All routes live under /api/v1:
//
//	GET  /health                         liveness plus court summary
//	GET  /courts                         status of every court
//	GET  /courts/{name}                  status of one court
//	POST /courts/{name}/start            launch the court's OBS instance
//	POST /courts/{name}/stop             stop it (suppresses auto-restart)
//	POST /courts/{name}/restart          stop then launch
//	POST /courts/{name}/stream/start     begin streaming
//	POST /courts/{name}/stream/stop      end streaming
//	POST /courts/{name}/record/start     begin recording
//	POST /courts/{name}/record/stop      end recording
//	GET  /events                         persisted event history
//	GET  /ws                             WebSocket event feed
//
// Errors use a uniform JSON envelope with status, code and message
// fields. The WebSocket feed delivers supervisor events to clients
// that subscribe to event-type channels ("disconnected", "*", ...).
package api
