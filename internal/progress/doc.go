// Package progress carries the cooperative abort flag and the event sinks
// that report pipeline updates: a structured log observer and a socket.io
// observer that streams events to a remote dashboard.
package progress
