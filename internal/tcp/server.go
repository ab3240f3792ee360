// package internal
package tcp

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"time"

	"gitlab.com/gridnode.net/internal/core/ports/primary"
	"gitlab.com/gridnode.net/internal/core/services/workerpool"
	"gitlab.com/gridnode.net/internal/domain"
	"gitlab.com/gridnode.net/internal/tcp/connectionmanager"
	"gitlab.com/gridnode.net/internal/tcp/defs"
	"gitlab.com/gridnode.net/internal/tcp/handlers"
)

// TCPServer handles TCP connections from worker processes
type TCPServer struct {
	address       string
	workerPool    workerpool.IWorkerPoolService
	logger        primary.Logger
	listener      net.Listener
	connectionMgr *connectionmanager.ConnectionManager
	stopCh        chan struct{}
	handlers      map[byte]primary.MessageHandler
}

// TCPServerOption configures a TCPServer
type TCPServerOption func(*TCPServer)

// WithAddress sets the server address
func WithAddress(address string) TCPServerOption {
	return func(s *TCPServer) {
		s.address = address
	}
}

// NewTCPServer creates a new TCP server
func NewTCPServer(
	workerPool workerpool.IWorkerPoolService,
	logger primary.Logger,
	options ...TCPServerOption,
) *TCPServer {
	server := &TCPServer{
		address:       ":9000", // Default address
		workerPool:    workerPool,
		logger:        logger,
		connectionMgr: connectionmanager.NewConnectionManager(logger),
		stopCh:        make(chan struct{}),
	}

	// Apply options
	for _, option := range options {
		option(server)
	}

	// Register message handlers
	server.setupMessageHandlers()

	return server
}

// setupMessageHandlers registers all message handlers
func (s *TCPServer) setupMessageHandlers() {
	s.handlers = map[byte]primary.MessageHandler{
		defs.MsgWorkerRegister: &handlers.WorkerRegistrationHandler{WorkerPool: s.workerPool, ConnectionMgr: s.connectionMgr, Logger: s.logger},
		defs.MsgActorRegister:  &handlers.ActorRegistrationHandler{WorkerPool: s.workerPool, Logger: s.logger},
		defs.MsgTaskBlocked:    &handlers.TaskBlockedHandler{WorkerPool: s.workerPool, Logger: s.logger},
		defs.MsgTaskUnblocked:  &handlers.TaskUnblockedHandler{WorkerPool: s.workerPool, Logger: s.logger},
		defs.MsgTaskDone:       &handlers.TaskDoneHandler{WorkerPool: s.workerPool, Logger: s.logger},
		defs.MsgActiveObjects:  &handlers.ActiveObjectsHandler{WorkerPool: s.workerPool, Logger: s.logger},
		defs.MsgSignal:         &handlers.SignalHandler{WorkerPool: s.workerPool, Logger: s.logger},
	}
}

// Start starts the TCP server
func (s *TCPServer) Start() error {
	var err error
	s.listener, err = net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("failed to start TCP server: %w", err)
	}

	s.logger.Info("TCP server listening", "address", s.address)

	// Accept connections in a goroutine
	go s.acceptConnections()

	return nil
}

// Stop stops the TCP server
func (s *TCPServer) Stop(ctx context.Context) error {
	close(s.stopCh)

	// Close listener
	if s.listener != nil {
		if err := s.listener.Close(); err != nil {
			s.logger.Error("Failed to close listener", "error", err)
		}
	}

	// Close all connections
	s.closeAllConnections()

	<-ctx.Done()

	return nil
}

// closeAllConnections closes all worker connections
func (s *TCPServer) closeAllConnections() {
	s.connectionMgr.ConnMutex.Lock()
	defer s.connectionMgr.ConnMutex.Unlock()

	for workerID, conn := range s.connectionMgr.Connections {
		if err := conn.Close(); err != nil {
			s.logger.Error("Failed to close connection", "workerID", workerID, "error", err)
		}
	}
}

// acceptConnections accepts incoming connections
func (s *TCPServer) acceptConnections() {
	for {
		select {
		case <-s.stopCh:
			return
		default:
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.stopCh:
					return
				default:
					s.logger.Error("Failed to accept connection", "error", err)
					time.Sleep(defs.ConnectionRetryDelay) // Avoid tight loop on error
					continue
				}
			}

			// Handle connection in a goroutine
			go s.handleConnection(conn)
		}
	}
}

// handleConnection handles a single worker connection. Connection loss or a
// handler failure runs the worker-death teardown.
func (s *TCPServer) handleConnection(conn net.Conn) {
	defer conn.Close()

	// Set initial timeout for registration
	conn.SetDeadline(time.Now().Add(defs.InitialRegistrationTimeout))

	// Read and process messages
	var workerID string
	for {
		select {
		case <-s.stopCh:
			return
		default:
			// Read and parse message
			msgType, payload, err := readMessage(conn)
			if err != nil {
				if err != io.EOF {
					s.logger.Error("Failed to read message", "error", err)
				}
				s.dropWorker(workerID)
				return
			}

			// Find handler for message type
			handler, exists := s.handlers[msgType]
			if !exists {
				s.logger.Error("Unknown message type", "type", msgType)
				connectionmanager.SendErrorMessage(conn, 1016, fmt.Sprintf("Unknown message type: %d", msgType))
				continue
			}

			// Create context for message handling
			ctx := context.Background()

			// Handle message
			err = handler.HandleMessage(ctx, conn, payload, &workerID)
			if err != nil {
				s.logger.Error("Error handling message", "type", msgType, "error", err)
				s.dropWorker(workerID)
				return
			}

			// After successful registration, remove timeout
			if msgType == defs.MsgWorkerRegister {
				conn.SetDeadline(time.Time{}) // No timeout
			}
		}
	}
}

// dropWorker marks a worker dead and reclaims its resources after its
// connection goes away
func (s *TCPServer) dropWorker(workerID string) {
	if workerID == "" {
		return
	}
	id := domain.WorkerID(workerID)
	s.connectionMgr.RemoveWorker(id)
	if err := s.workerPool.DisconnectWorker(context.Background(), id); err != nil {
		s.logger.Error("Failed to disconnect worker", "workerID", workerID, "error", err)
		return
	}
	s.logger.Info("Worker disconnected", "workerID", workerID)
}

// readMessage reads a message from a connection
func readMessage(conn net.Conn) (byte, []byte, error) {
	// Read message header
	header := make([]byte, 8)
	if _, err := io.ReadFull(conn, header); err != nil {
		return 0, nil, err
	}

	// Parse header
	magic := binary.BigEndian.Uint16(header[0:2])
	msgType := header[2]
	payloadLen := binary.BigEndian.Uint32(header[4:8])

	// Validate magic number
	if magic != defs.MagicNumber {
		return 0, nil, fmt.Errorf("invalid magic number: %x", magic)
	}

	// Read payload
	payload := make([]byte, payloadLen)
	if _, err := io.ReadFull(conn, payload); err != nil {
		return 0, nil, err
	}

	return msgType, payload, nil
}
