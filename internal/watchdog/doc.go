// Package watchdog supervises the health of a single OBS instance.
//
// A Watchdog polls the instance's control connection on a fixed interval
// and reacts to edges, not levels: one disconnect event and one recovery
// attempt per observed transition, one reconnect event when the
// connection comes back. Recovery escalates from a direct reconnect to a
// full process restart, and a manual stop can suppress it entirely until
// the instance is next seen online.
//
// Each court gets its own Watchdog; instances never share state.
package watchdog
