// Package services contains the application services of the medchat
// client: the conversation directory, the message channel with its
// optimistic send protocol, and the doctor directory.
//
// Services own no goroutines. They mutate the state containers of package
// state and talk to the API through client.Client; the realtime bridge is
// the only other writer of the message list.
package services
