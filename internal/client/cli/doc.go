// Package cli provides the interactive medchat command-line client.
//
// It wires configuration, the local session store, the API client, the push
// channel and the chat services behind a line-oriented REPL. Typical flow:
// resume the saved session or log in with an access token, pick a mode,
// open or start a conversation and type messages.
//
// Key features:
//   - Login / Logout with the token kept in the local SQLite store
//   - AI and doctor conversations, doctor directory and selection
//   - Live messages, deletions and typing indicators over the push channel
//   - Attachments with type detection and a size limit
//   - Consent question before the assistant may read medical records
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
