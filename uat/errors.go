package uat

import "errors"

var (
	// ErrInvalidArg is returned when an argument is empty, nil or does not
	// fit the configured buffers.
	ErrInvalidArg = errors.New("invalid argument")

	// ErrBusy is returned when a lock could not be acquired in time or a
	// single-slot resource (the synchronous exchange) is already in use.
	//
	// The operation had no effect and may be retried by the caller.
	ErrBusy = errors.New("resource busy")

	// ErrTimeout is returned when a bounded wait expired.
	ErrTimeout = errors.New("operation timed out")

	// ErrNotFound is returned when unregistering a prefix that is not in the
	// command table.
	ErrNotFound = errors.New("command not found")

	// ErrSendFail is returned when the driver rejected or failed to start a
	// transmission.
	ErrSendFail = errors.New("send failed")

	// ErrResource is returned when the command table is full.
	ErrResource = errors.New("resource exhausted")

	// ErrInitFail is returned when the driver could not start reception.
	ErrInitFail = errors.New("initialization failed")

	// ErrInternal reports an inconsistent engine state detected at runtime,
	// for example an exchange that could not be armed.
	ErrInternal = errors.New("internal error")

	// ErrLineTooLong is returned by the line assembler when a line exceeds
	// the receive buffer before a terminator was seen.
	//
	// The offending bytes are discarded up to and including the next
	// terminator, so the following read starts on a line boundary.
	ErrLineTooLong = errors.New("line too long")

	// ErrNoDriver is returned when an Engine is constructed without a Driver.
	ErrNoDriver = errors.New("no driver configured")

	// ErrClosed is returned by operations on a closed Engine.
	ErrClosed = errors.New("engine closed")

	// ErrAlreadyClosed is returned when Close is called twice.
	ErrAlreadyClosed = errors.New("engine already closed")

	// ErrLoopRunning is returned when Run is called while another Run is
	// still active. The engine has exactly one consumer.
	ErrLoopRunning = errors.New("consumer loop already running")
)
