// Package realtime keeps the push channel open and bridges its events into
// the client state.
//
// Socket owns the WebSocket connection: dialing with retries, keep-alive
// pings, reconnection and frame encoding. Bridge tracks which conversation
// room the client has joined and applies inbound new_message, typing and
// message_deleted events to the active message list.
package realtime
