// Package client contains the transport side of the messenger client.
//
// # Overview
//
// The package provides:
//  1. A transport-agnostic API contract (see the Client interface) covering
//     conversations, messages, AI chat turns, file upload and the doctor
//     directory.
//  2. A concrete HTTP/JSON implementation (see HTTPClient) that keeps a set
//     of default headers, carries the bearer token set explicitly with
//     SetToken and maps failures onto sentinel errors.
//
// # Error Handling
//
// Failures are classified so callers can react with errors.Is:
// ErrUnavailable and ErrTimeout (transient, retryable), ErrUnauthorized,
// ErrFileTooLarge, ErrAIOverloaded, ErrNotFound and ErrRejected (any other
// server rejection, carried by *APIError). Describe turns any of them into
// a message fit for the user.
//
// Concurrency & Contexts
//
// HTTPClient is safe for concurrent use. All operations accept
// context.Context and honor cancellation and deadlines.
package client
