package primary

import (
	"context"
	"net"
)

// MessageHandler defines an interface for handling different message types
// arriving on a worker connection. workerID is bound by the registration
// handler and carried through subsequent messages on the same connection.
type MessageHandler interface {
	HandleMessage(ctx context.Context, conn net.Conn, payload []byte, workerID *string) error
}
