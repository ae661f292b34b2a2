// Package node declares the actor-addressing boundary that a server behind
// the Hub may choose to implement. It mirrors the Python original's actor
// mailbox API but is a contract only: no concrete Node or Mailbox ships in
// this repository, since the Hub itself is agnostic to whatever a
// registered server does with the sockets handed to it.
package node

import "context"

// ID identifies one spawned actor within a Node.
type ID string

// Mailbox lets an actor exchange payloads with other actors addressed by
// ID, without either side knowing how the other is scheduled.
type Mailbox interface {
	Send(ctx context.Context, to ID, payload []byte) error
	Recv(ctx context.Context) (from ID, payload []byte, err error)
}

// ActorFunc is the body of a spawned actor. It runs until ctx is cancelled
// or it returns on its own.
type ActorFunc func(ctx context.Context, mb Mailbox) error

// Node spawns and runs actors that communicate over Mailboxes. A concrete
// Node would typically sit behind a Hub registration, using the handed-off
// client sockets as its transport for whichever actors field them.
type Node interface {
	Spawn(fn ActorFunc) ID
	Run(ctx context.Context) error
}
