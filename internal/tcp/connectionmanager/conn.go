package connectionmanager

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"net"
	"sync"

	"gitlab.com/gridnode.net/internal/core/ports/primary"
	"gitlab.com/gridnode.net/internal/domain"
	"gitlab.com/gridnode.net/internal/tcp/defs"
)

// ConnectionManager tracks the inbound connection of every worker process on
// the node
type ConnectionManager struct {
	Connections map[domain.WorkerID]net.Conn
	ConnMutex   sync.RWMutex
	Logger      primary.Logger
}

type // ErrorData represents data sent with error responses
	ErrorData struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}

// NewConnectionManager creates a new connection manager
func NewConnectionManager(logger primary.Logger) *ConnectionManager {
	return &ConnectionManager{
		Connections: make(map[domain.WorkerID]net.Conn),
		Logger:      logger,
	}
}

// RegisterWorker registers a worker connection
func (cm *ConnectionManager) RegisterWorker(workerID domain.WorkerID, conn net.Conn) {
	cm.ConnMutex.Lock()
	cm.Connections[workerID] = conn
	cm.ConnMutex.Unlock()
}

// RemoveWorker removes a worker when its connection is closed
func (cm *ConnectionManager) RemoveWorker(workerID domain.WorkerID) {
	cm.ConnMutex.Lock()
	delete(cm.Connections, workerID)
	cm.ConnMutex.Unlock()
}

// GetConnection returns the connection for a specific worker
func (cm *ConnectionManager) GetConnection(workerID domain.WorkerID) (net.Conn, bool) {
	cm.ConnMutex.RLock()
	defer cm.ConnMutex.RUnlock()

	conn, exists := cm.Connections[workerID]
	return conn, exists
}

// SendErrorMessage sends an error message to a worker
func SendErrorMessage(conn net.Conn, code int, message string) {
	errorData := ErrorData{
		Code:    code,
		Message: message,
	}

	errorBytes, err := json.Marshal(errorData)
	if err != nil {
		// Can't do much if marshaling fails
		return
	}

	// Ignore errors here as the connection might be closing
	_ = SendMessage(conn, defs.MsgError, errorBytes)
}

// SendMessage sends a framed message on a connection
func SendMessage(conn net.Conn, msgType byte, payload []byte) error {
	// Prepare header
	header := make([]byte, 8)
	binary.BigEndian.PutUint16(header[0:2], defs.MagicNumber)
	header[2] = msgType
	header[3] = 0 // Reserved
	binary.BigEndian.PutUint32(header[4:8], uint32(len(payload)))

	// Send header
	if _, err := conn.Write(header); err != nil {
		return fmt.Errorf("failed to write message header: %w", err)
	}

	// Send payload (if any)
	if len(payload) > 0 {
		if _, err := conn.Write(payload); err != nil {
			return fmt.Errorf("failed to write message payload: %w", err)
		}
	}

	return nil
}
