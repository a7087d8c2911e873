// Package devserver is an in-memory implementation of the medchat API and
// push channel. It serves the same HTTP routes and WebSocket frames as the
// production backend closely enough to run the CLI against it locally and
// to drive the client in integration tests. Nothing is persisted.
package devserver
