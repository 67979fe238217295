package queue

import "errors"

var (
	// ErrQueueNotRunning is returned when publishing to a stopped queue
	ErrQueueNotRunning = errors.New("queue: not running")

	// ErrQueueFull is returned when the in-process buffer is full
	ErrQueueFull = errors.New("queue: buffer is full")

	// ErrInvalidConfig is returned when the queue configuration is invalid
	ErrInvalidConfig = errors.New("queue: invalid configuration")

	// ErrUnknownDriver is returned for an unsupported queue driver
	ErrUnknownDriver = errors.New("queue: unknown driver")

	// ErrNilTask is returned when publishing a nil task
	ErrNilTask = errors.New("queue: task is nil")
)
