package workers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"gitlab.com/gridnode.net/internal/core/ports/secondary"
	"gitlab.com/gridnode.net/internal/core/services/workerpool"
	"gitlab.com/gridnode.net/internal/domain"
	"gitlab.com/gridnode.net/internal/handlers"
	"gitlab.com/gridnode.net/internal/static/errs"
)

type ApiHandler struct {
	WorkerPool workerpool.IWorkerPoolService
	AuditLog   secondary.AuditLog
	Signals    secondary.SignalRelay
}

func NewHandler(workerPool workerpool.IWorkerPoolService, auditLog secondary.AuditLog, signals secondary.SignalRelay) *ApiHandler {
	return &ApiHandler{
		WorkerPool: workerPool,
		AuditLog:   auditLog,
		Signals:    signals,
	}
}

func (api *ApiHandler) Register(r *mux.Router, mw *handlers.MiddlewareProvider) {
	r.HandleFunc("/api/workers", api.GetWorkers).Methods("GET")
	r.HandleFunc("/api/workers/{workerId}", api.GetWorker).Methods("GET")
	r.HandleFunc("/api/workers/{workerId}/events", api.GetWorkerEvents).Methods("GET")
	r.HandleFunc("/api/workers/{workerId}/signals", api.GetWorkerSignals).Methods("GET")
	r.HandleFunc("/api/node/resources", api.GetNodeResources).Methods("GET")
	r.Handle("/api/workers/{workerId}/tasks", mw.JWTMiddleware(http.HandlerFunc(api.AssignTask))).Methods("POST")
	r.Handle("/api/workers/{workerId}/lease", mw.JWTMiddleware(http.HandlerFunc(api.GrantLease))).Methods("POST")
	r.Handle("/api/workers/{workerId}/arg-wait-complete", mw.JWTMiddleware(http.HandlerFunc(api.ArgWaitComplete))).Methods("POST")
	r.Handle("/api/workers/{workerId}/kill", mw.JWTMiddleware(http.HandlerFunc(api.KillWorker))).Methods("POST")
}

// AssignTaskRequest is what the cluster scheduler posts to run a task here.
type AssignTaskRequest struct {
	JobID    domain.JobID           `json:"job_id"`
	ActorID  domain.ActorID         `json:"actor_id,omitempty"`
	Language domain.Language        `json:"language"`
	Demands  map[string]float64     `json:"demands"`
	Payload  map[string]interface{} `json:"payload"`
}

// GrantLeaseRequest records a new owner for a leased worker.
type GrantLeaseRequest struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// AssignTask admits a task onto a worker and dispatches it.
func (api *ApiHandler) AssignTask(w http.ResponseWriter, r *http.Request) {
	workerID := domain.WorkerID(mux.Vars(r)["workerId"])

	var req AssignTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlers.ResponseError(w, "invalid request", http.StatusBadRequest)
		return
	}

	task := domain.NewTask(req.JobID, req.Language, req.Demands, req.Payload)
	task.ActorID = req.ActorID

	if err := api.WorkerPool.AssignTask(r.Context(), workerID, task); err != nil {
		switch {
		case errors.Is(err, errs.ErrWorkerNotFound):
			handlers.ResponseError(w, "worker not found", http.StatusNotFound)
		case errors.Is(err, errs.ErrWorkerDead):
			handlers.ResponseError(w, "worker is dead", http.StatusGone)
		case errors.Is(err, errs.ErrInsufficientResources):
			handlers.ResponseError(w, "insufficient resources", http.StatusConflict)
		default:
			handlers.ResponseError(w, "failed to assign task", http.StatusInternalServerError)
		}
		return
	}

	handlers.ResponseWithJson(w, http.StatusAccepted, map[string]domain.TaskID{"task_id": task.ID})
}

// GrantLease records the owner that holds the lease on a worker.
func (api *ApiHandler) GrantLease(w http.ResponseWriter, r *http.Request) {
	workerID := domain.WorkerID(mux.Vars(r)["workerId"])

	var req GrantLeaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlers.ResponseError(w, "invalid request", http.StatusBadRequest)
		return
	}

	if err := api.WorkerPool.GrantLease(r.Context(), workerID, req.Host, req.Port); err != nil {
		if errors.Is(err, errs.ErrWorkerNotFound) {
			handlers.ResponseError(w, "worker not found", http.StatusNotFound)
			return
		}
		handlers.ResponseError(w, "failed to grant lease", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (api *ApiHandler) GetWorkers(w http.ResponseWriter, r *http.Request) {
	views := api.WorkerPool.ListWorkers(r.Context())
	handlers.ResponseWithJson(w, http.StatusOK, map[string][]*secondary.WorkerView{"workers": views})
}

func (api *ApiHandler) GetWorker(w http.ResponseWriter, r *http.Request) {
	workerID := domain.WorkerID(mux.Vars(r)["workerId"])

	view, err := api.WorkerPool.GetWorkerView(r.Context(), workerID)
	if err != nil {
		if errors.Is(err, errs.ErrWorkerNotFound) {
			handlers.ResponseError(w, "worker not found", http.StatusNotFound)
			return
		}
		handlers.ResponseError(w, "failed to get worker", http.StatusInternalServerError)
		return
	}

	handlers.ResponseWithJson(w, http.StatusOK, view)
}

func (api *ApiHandler) GetWorkerEvents(w http.ResponseWriter, r *http.Request) {
	workerID := domain.WorkerID(mux.Vars(r)["workerId"])

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			handlers.ResponseError(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	events, err := api.AuditLog.ListByWorker(r.Context(), workerID, limit)
	if err != nil {
		handlers.ResponseError(w, "failed to list worker events", http.StatusInternalServerError)
		return
	}

	handlers.ResponseWithJson(w, http.StatusOK, map[string][]*secondary.WorkerEvent{"events": events})
}

// GetWorkerSignals returns the signals a worker emitted after the given
// sequence number. Callers poll with the last sequence they have seen.
func (api *ApiHandler) GetWorkerSignals(w http.ResponseWriter, r *http.Request) {
	workerID := domain.WorkerID(mux.Vars(r)["workerId"])

	var afterSeq int64
	if raw := r.URL.Query().Get("after"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 0 {
			handlers.ResponseError(w, "invalid after sequence", http.StatusBadRequest)
			return
		}
		afterSeq = parsed
	}

	signals, err := api.Signals.ListSignals(r.Context(), workerID, afterSeq)
	if err != nil {
		handlers.ResponseError(w, "failed to list worker signals", http.StatusInternalServerError)
		return
	}

	handlers.ResponseWithJson(w, http.StatusOK, map[string][]*secondary.Signal{"signals": signals})
}

func (api *ApiHandler) GetNodeResources(w http.ResponseWriter, r *http.Request) {
	handlers.ResponseWithJson(w, http.StatusOK, api.WorkerPool.NodeState(r.Context()))
}

// ArgWaitCompleteRequest resolves a queued actor-call argument dependency.
type ArgWaitCompleteRequest struct {
	Tag int64 `json:"tag"`
}

// ArgWaitComplete forwards an argument-availability signal to an actor
// worker's call queue.
func (api *ApiHandler) ArgWaitComplete(w http.ResponseWriter, r *http.Request) {
	workerID := domain.WorkerID(mux.Vars(r)["workerId"])

	var req ArgWaitCompleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlers.ResponseError(w, "invalid request", http.StatusBadRequest)
		return
	}

	if err := api.WorkerPool.NotifyArgWaitComplete(r.Context(), workerID, req.Tag); err != nil {
		if errors.Is(err, errs.ErrWorkerNotFound) {
			handlers.ResponseError(w, "worker not found", http.StatusNotFound)
			return
		}
		handlers.ResponseError(w, "failed to signal arg wait completion", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// KillWorker force-disconnects a worker. The teardown path is the same one a
// dropped connection takes.
func (api *ApiHandler) KillWorker(w http.ResponseWriter, r *http.Request) {
	workerID := domain.WorkerID(mux.Vars(r)["workerId"])

	if err := api.WorkerPool.DisconnectWorker(r.Context(), workerID); err != nil {
		if errors.Is(err, errs.ErrWorkerNotFound) {
			handlers.ResponseError(w, "worker not found", http.StatusNotFound)
			return
		}
		handlers.ResponseError(w, "failed to disconnect worker", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
