// Package common contains constants and helpers shared by the messenger
// client and the development server: header names, push-channel event
// names and a few small utilities.
package common

// AuthorizationHeaderName carries the bearer token on HTTP and WebSocket
// handshake requests.
const AuthorizationHeaderName = "Authorization"

// BearerPrefix precedes the token in the Authorization header.
const BearerPrefix = "Bearer "

// RoomPrefix starts the name of every conversation room.
const RoomPrefix = "room:"

// Push-channel events emitted by the client.
const (
	EventJoinRoom  = "join_room"
	EventLeaveRoom = "leave_room"
	EventTyping    = "typing"
)

// Push-channel events emitted by the server. EventTyping is relayed as is.
const (
	EventNewMessage     = "new_message"
	EventMessageDeleted = "message_deleted"
)

// Error codes the API puts in the "code" field of error bodies.
const (
	CodeFileTooLarge = "file_too_large"
	CodeAIOverloaded = "ai_overloaded"
	CodeExisting     = "conversation_exists"
)
