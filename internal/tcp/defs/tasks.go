package defs

import "gitlab.com/gridnode.net/internal/domain"

// Protocol data structures
type (
	// TaskStateData is sent by a worker for block, unblock and done events
	TaskStateData struct {
		WorkerID domain.WorkerID `json:"worker_id"`
		TaskID   domain.TaskID   `json:"task_id"`
	}

	// TaskAssignData carries a task dispatch to the worker process
	TaskAssignData struct {
		Task *domain.Task `json:"task"`
	}

	// ArgWaitCompleteData resolves a queued actor-call argument dependency
	ArgWaitCompleteData struct {
		Tag int64 `json:"tag"`
	}
)
