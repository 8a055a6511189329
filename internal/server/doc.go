// Package server implements the Palaver broadcast hub: a websocket service
// where clients announce a display name, exchange chat messages, and observe
// presence changes, with a bounded in-memory history replayed to late
// joiners.
package server
