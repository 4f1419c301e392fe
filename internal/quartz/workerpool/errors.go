package workerpool

import "errors"

// ErrShuttingDown is returned by Submit once Shutdown has been called.
var ErrShuttingDown = errors.New("workerpool: shutting down")

// ErrQueueFull reports a queue at capacity. Submit does not return it:
// Submit blocks while the queue is full, until there is room or its ctx
// is done.
var ErrQueueFull = errors.New("workerpool: queue full")

// ErrCircuitOpen is returned (via Result.Err, not Submit) when a task was
// dropped because its key's breaker was open.
var ErrCircuitOpen = errors.New("workerpool: circuit open for key")

// ErrQueueDelayExceeded marks a task dropped because it waited longer than
// Config.MaxQueueDelay for a permit.
var ErrQueueDelayExceeded = errors.New("workerpool: max queue delay exceeded")
