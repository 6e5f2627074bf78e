// internal/hub/connection.go
package hub

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// outBuffer is how many messages may queue for one connection before it counts as stalled.
const outBuffer = 32

// Connection is one player's live websocket in a room. The transport drains
// OutChan; everything else only ever calls Write.
type Connection struct {
	PlayerID string
	OutChan  chan any

	cancel    func()
	closeOnce sync.Once
	log       logrus.FieldLogger
}

// NewConnection wraps a transport connection. cancel stops its pumps.
func NewConnection(playerID string, cancel func(), logger logrus.FieldLogger) *Connection {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Connection{
		PlayerID: playerID,
		OutChan:  make(chan any, outBuffer),
		cancel:   cancel,
		log:      logger.WithField("player_id", playerID),
	}
}

// Write queues msg without blocking and reports whether it was accepted.
// A full queue means the client is not keeping up.
func (c *Connection) Write(msg any) bool {
	select {
	case c.OutChan <- msg:
		return true
	default:
		c.log.Warn("outbound queue full, dropping message")
		return false
	}
}

// WriteError sends an error message to this connection only.
func (c *Connection) WriteError(message string) bool {
	return c.Write(ErrorMessage{Type: TypeError, Message: message})
}

// Close stops the connection's pumps. Safe to call more than once.
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		if c.cancel != nil {
			c.cancel()
		}
	})
}
