package handlers

import (
	"context"
	"encoding/json"
	"net"

	"gitlab.com/gridnode.net/internal/core/ports/primary"
	"gitlab.com/gridnode.net/internal/core/services/workerpool"
	"gitlab.com/gridnode.net/internal/domain"
	"gitlab.com/gridnode.net/internal/tcp/connectionmanager"
	"gitlab.com/gridnode.net/internal/tcp/defs"
)

// Implementation of message handlers
// Each handler deals with one specific message type

var _ primary.MessageHandler = (*WorkerRegistrationHandler)(nil)

// WorkerRegistrationHandler handles worker registration messages
type WorkerRegistrationHandler struct {
	WorkerPool    workerpool.IWorkerPoolService
	ConnectionMgr *connectionmanager.ConnectionManager
	Logger        primary.Logger
}

// HandleMessage implements the MessageHandler interface
func (h *WorkerRegistrationHandler) HandleMessage(ctx context.Context, conn net.Conn, payload []byte, workerID *string) error {
	var registerData defs.WorkerRegistrationData
	if err := json.Unmarshal(payload, &registerData); err != nil {
		h.Logger.Error("Failed to parse worker registration", "error", err)
		connectionmanager.SendErrorMessage(conn, 1001, "Invalid registration data")
		return err
	}

	if registerData.WorkerID.IsNil() {
		registerData.WorkerID = domain.NewWorkerID()
	}

	// Bind worker ID and connection before touching the pool so a failed
	// registration still tears the connection entry down.
	*workerID = string(registerData.WorkerID)
	h.ConnectionMgr.RegisterWorker(registerData.WorkerID, conn)

	_, err := h.WorkerPool.RegisterWorker(ctx, workerpool.RegistrationInfo{
		WorkerID: registerData.WorkerID,
		Language: registerData.Language,
		Port:     registerData.Port,
		Pid:      registerData.Pid,
	}, conn)
	if err != nil {
		h.Logger.Error("Failed to register worker", "error", err)
		connectionmanager.SendErrorMessage(conn, 1002, "Failed to register worker")
		return err
	}

	h.Logger.Info(
		"Worker registered",
		"workerID", registerData.WorkerID,
		"language", registerData.Language,
		"port", registerData.Port,
	)
	return nil
}

var _ primary.MessageHandler = (*ActorRegistrationHandler)(nil)

// ActorRegistrationHandler promotes a registered worker to an actor and
// installs its lifetime resource claims
type ActorRegistrationHandler struct {
	WorkerPool workerpool.IWorkerPoolService
	Logger     primary.Logger
}

func (h *ActorRegistrationHandler) HandleMessage(ctx context.Context, conn net.Conn, payload []byte, workerID *string) error {
	var actorData defs.ActorRegistrationData
	if err := json.Unmarshal(payload, &actorData); err != nil {
		h.Logger.Error("Failed to parse actor registration", "error", err)
		connectionmanager.SendErrorMessage(conn, 1003, "Invalid actor registration data")
		return err
	}

	if err := h.WorkerPool.RegisterActor(ctx, actorData.WorkerID, actorData.ActorID, actorData.Detached, actorData.Demands); err != nil {
		h.Logger.Error("Failed to register actor", "workerID", actorData.WorkerID, "error", err)
		connectionmanager.SendErrorMessage(conn, 1004, "Failed to register actor")
		return err
	}
	return nil
}
