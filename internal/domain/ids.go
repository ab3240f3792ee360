package domain

import "github.com/google/uuid"

// Typed identifiers used across the node manager. The empty string is the
// nil value: a worker with ActorID == NilActorID is not an actor.
type (
	WorkerID string
	TaskID   string
	JobID    string
	ActorID  string
	ObjectID string
)

const (
	NilWorkerID WorkerID = ""
	NilTaskID   TaskID   = ""
	NilJobID    JobID    = ""
	NilActorID  ActorID  = ""
)

func NewWorkerID() WorkerID {
	return WorkerID(uuid.New().String())
}

func NewTaskID() TaskID {
	return TaskID(uuid.New().String())
}

func NewJobID() JobID {
	return JobID(uuid.New().String())
}

func (id WorkerID) IsNil() bool { return id == NilWorkerID }
func (id TaskID) IsNil() bool   { return id == NilTaskID }
func (id JobID) IsNil() bool    { return id == NilJobID }
func (id ActorID) IsNil() bool  { return id == NilActorID }

// Language is the execution runtime of a worker process. It only affects
// how task payloads are framed on the wire; the node manager treats it as
// an opaque tag.
type Language string

const (
	LanguagePython Language = "PYTHON"
	LanguageJava   Language = "JAVA"
	LanguageCpp    Language = "CPP"
)
