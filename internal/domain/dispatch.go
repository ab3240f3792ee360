package domain

import "context"

// TaskDispatcher is the outbound call channel to one worker process. The
// first dispatch on a freshly constructed dispatcher may fail if the worker
// address is unreachable; that error surfaces to the caller, not at
// construction time.
type TaskDispatcher interface {
	// PushTask forwards a task assignment to the worker process.
	PushTask(ctx context.Context, task *Task) error

	// ArgWaitComplete notifies the worker that an outstanding actor-call
	// argument dependency, identified by an opaque sequence tag, resolved.
	ArgWaitComplete(ctx context.Context, tag int64) error
}

// DispatcherFactory hands out dispatchers bound to a worker's advertised
// address. It is a shared, externally owned capability: every WorkerHandle
// on the node holds the same factory and never closes it.
type DispatcherFactory interface {
	Dispatcher(host string, port int) TaskDispatcher
}
