package defs

import "gitlab.com/gridnode.net/internal/domain"

// Protocol data structures
type (
	// WorkerRegistrationData represents the data sent during worker registration
	WorkerRegistrationData struct {
		WorkerID domain.WorkerID `json:"worker_id"`
		Language domain.Language `json:"language"`
		Port     int             `json:"port"`
		Pid      int             `json:"pid"`
	}

	// ActorRegistrationData promotes a registered worker to an actor
	ActorRegistrationData struct {
		WorkerID domain.WorkerID    `json:"worker_id"`
		ActorID  domain.ActorID     `json:"actor_id"`
		Detached bool               `json:"detached"`
		Demands  map[string]float64 `json:"demands"`
	}

	// ActiveObjectsData replaces the worker's referenced-object cache
	ActiveObjectsData struct {
		WorkerID  domain.WorkerID   `json:"worker_id"`
		ObjectIDs []domain.ObjectID `json:"object_ids"`
	}

	// SignalData carries an application-level signal emitted by a worker
	SignalData struct {
		WorkerID domain.WorkerID        `json:"worker_id"`
		Payload  map[string]interface{} `json:"payload,omitempty"`
	}
)
