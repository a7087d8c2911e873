// Package models defines the client-side data model of the consultation
// messenger: conversations, messages, doctors and the local viewer.
//
// Server payloads are loosely shaped (several field names for the same
// concept, ids as strings or numbers). They are decoded into RawRecord and
// read through ordered lists of candidate keys, so every fallback is visible
// at the call site instead of being buried in chained optional access.
package models
