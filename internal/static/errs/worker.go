package errs

import "errors"

var ErrWorkerDead = errors.New("worker is dead")

var (
	ErrWorkerNotFound        = errors.New("worker not found")
	ErrWorkerAlreadyExists   = errors.New("worker already registered")
	ErrProcessAlreadySet     = errors.New("worker process already set")
	ErrActorAlreadySet       = errors.New("actor id already set")
	ErrDetachedAlreadySet    = errors.New("detached actor flag already set")
	ErrLifetimeClaimsSet     = errors.New("lifetime resource claims already set")
	ErrNoRPCBinding          = errors.New("worker does not listen on a port")
	ErrInsufficientResources = errors.New("insufficient node resources")
)
