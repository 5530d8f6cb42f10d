// Package launcher manages the OBS Studio process for a single court.
//
// Each Launcher owns at most one process handle. Instances are spawned in
// their own process group with the profile and WebSocket settings passed
// on the command line, so a court's OBS keeps running if the controller
// itself goes down. Stop escalates from SIGTERM to SIGKILL and treats a
// process that is confirmed gone as success regardless of how it went.
package launcher
