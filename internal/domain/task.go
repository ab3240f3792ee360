package domain

import "time"

// Task is a unit of work dispatched to a worker process. The node manager
// never inspects the payload; it only accounts for the resource demands and
// forwards the rest to the worker over the RPC binding.
type Task struct {
	ID        TaskID                 `json:"id"`
	JobID     JobID                  `json:"job_id"`
	ActorID   ActorID                `json:"actor_id,omitempty"`
	Language  Language               `json:"language"`
	Demands   map[string]float64     `json:"demands"`
	Payload   map[string]interface{} `json:"payload"`
	CreatedAt time.Time              `json:"created_at"`
}

// NewTask creates a task with a fresh id.
func NewTask(jobID JobID, language Language, demands map[string]float64, payload map[string]interface{}) *Task {
	return &Task{
		ID:        NewTaskID(),
		JobID:     jobID,
		Language:  language,
		Demands:   demands,
		Payload:   payload,
		CreatedAt: time.Now(),
	}
}

// IsActorTask reports whether this task targets an actor worker.
func (t *Task) IsActorTask() bool {
	return !t.ActorID.IsNil()
}

// Process is the handle of the OS process backing a worker. A zero Pid means
// the process does not exist yet; registration may precede the spawn.
type Process struct {
	Pid       int
	StartedAt time.Time
}

// Address is the network identity of the entity holding the lease on a
// worker.
type Address struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}
