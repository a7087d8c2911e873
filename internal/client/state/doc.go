// Package state holds the two state containers of the messenger: the
// message list of the active conversation and the conversation directory.
//
// Two writers mutate the message list: HTTP reconciliation of optimistic
// entries and push events. Every mutation is either an id-keyed merge or an
// append of a uniquely tokened temporary entry, so both paths converge on a
// single stored copy per final id regardless of arrival order. The mutex
// only serializes access; it is not what makes the writers agree.
package state
