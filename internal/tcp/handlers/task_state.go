package handlers

import (
	"context"
	"encoding/json"
	"net"

	"gitlab.com/gridnode.net/internal/core/ports/primary"
	"gitlab.com/gridnode.net/internal/core/services/workerpool"
	"gitlab.com/gridnode.net/internal/tcp/connectionmanager"
	"gitlab.com/gridnode.net/internal/tcp/defs"
)

var _ primary.MessageHandler = (*TaskBlockedHandler)(nil)

// TaskBlockedHandler handles a worker announcing a data-dependency wait
type TaskBlockedHandler struct {
	WorkerPool workerpool.IWorkerPoolService
	Logger     primary.Logger
}

func (h *TaskBlockedHandler) HandleMessage(ctx context.Context, conn net.Conn, payload []byte, workerID *string) error {
	var stateData defs.TaskStateData
	if err := json.Unmarshal(payload, &stateData); err != nil {
		h.Logger.Error("Failed to parse task blocked message", "error", err)
		connectionmanager.SendErrorMessage(conn, 1005, "Invalid task state data")
		return err
	}

	if err := h.WorkerPool.BlockTask(ctx, stateData.WorkerID, stateData.TaskID); err != nil {
		h.Logger.Error("Failed to block task", "workerID", stateData.WorkerID, "taskID", stateData.TaskID, "error", err)
		return err
	}
	return nil
}

var _ primary.MessageHandler = (*TaskUnblockedHandler)(nil)

// TaskUnblockedHandler handles a worker announcing a resolved wait
type TaskUnblockedHandler struct {
	WorkerPool workerpool.IWorkerPoolService
	Logger     primary.Logger
}

func (h *TaskUnblockedHandler) HandleMessage(ctx context.Context, conn net.Conn, payload []byte, workerID *string) error {
	var stateData defs.TaskStateData
	if err := json.Unmarshal(payload, &stateData); err != nil {
		h.Logger.Error("Failed to parse task unblocked message", "error", err)
		connectionmanager.SendErrorMessage(conn, 1006, "Invalid task state data")
		return err
	}

	if err := h.WorkerPool.UnblockTask(ctx, stateData.WorkerID, stateData.TaskID); err != nil {
		h.Logger.Error("Failed to unblock task", "workerID", stateData.WorkerID, "taskID", stateData.TaskID, "error", err)
		return err
	}
	return nil
}

var _ primary.MessageHandler = (*TaskDoneHandler)(nil)

// TaskDoneHandler handles task completion and resets the worker's task scope
type TaskDoneHandler struct {
	WorkerPool workerpool.IWorkerPoolService
	Logger     primary.Logger
}

func (h *TaskDoneHandler) HandleMessage(ctx context.Context, conn net.Conn, payload []byte, workerID *string) error {
	var stateData defs.TaskStateData
	if err := json.Unmarshal(payload, &stateData); err != nil {
		h.Logger.Error("Failed to parse task done message", "error", err)
		connectionmanager.SendErrorMessage(conn, 1007, "Invalid task state data")
		return err
	}

	if err := h.WorkerPool.CompleteTask(ctx, stateData.WorkerID, stateData.TaskID); err != nil {
		h.Logger.Error("Failed to complete task", "workerID", stateData.WorkerID, "taskID", stateData.TaskID, "error", err)
		return err
	}
	return nil
}

var _ primary.MessageHandler = (*ActiveObjectsHandler)(nil)

// ActiveObjectsHandler refreshes the worker's referenced-object cache
type ActiveObjectsHandler struct {
	WorkerPool workerpool.IWorkerPoolService
	Logger     primary.Logger
}

func (h *ActiveObjectsHandler) HandleMessage(ctx context.Context, conn net.Conn, payload []byte, workerID *string) error {
	var objectsData defs.ActiveObjectsData
	if err := json.Unmarshal(payload, &objectsData); err != nil {
		h.Logger.Error("Failed to parse active objects message", "error", err)
		connectionmanager.SendErrorMessage(conn, 1008, "Invalid active objects data")
		return err
	}

	if err := h.WorkerPool.UpdateActiveObjects(ctx, objectsData.WorkerID, objectsData.ObjectIDs); err != nil {
		h.Logger.Error("Failed to update active objects", "workerID", objectsData.WorkerID, "error", err)
		return err
	}
	return nil
}

var _ primary.MessageHandler = (*SignalHandler)(nil)

// SignalHandler relays a worker-emitted application signal
type SignalHandler struct {
	WorkerPool workerpool.IWorkerPoolService
	Logger     primary.Logger
}

func (h *SignalHandler) HandleMessage(ctx context.Context, conn net.Conn, payload []byte, workerID *string) error {
	var signalData defs.SignalData
	if err := json.Unmarshal(payload, &signalData); err != nil {
		h.Logger.Error("Failed to parse signal message", "error", err)
		connectionmanager.SendErrorMessage(conn, 1009, "Invalid signal data")
		return err
	}

	if err := h.WorkerPool.EmitSignal(ctx, signalData.WorkerID, signalData.Payload); err != nil {
		h.Logger.Error("Failed to relay signal", "workerID", signalData.WorkerID, "error", err)
		return err
	}
	return nil
}
