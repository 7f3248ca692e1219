package domain

import "errors"

// RetriableError defines an interface for errors that can be retried
type RetriableError interface {
	error
	IsRetriable() bool
}

// IsRetriable checks if an error is retriable
func IsRetriable(err error) bool {
	var re RetriableError
	if errors.As(err, &re) {
		return re.IsRetriable()
	}
	return false
}

// TransportError represents a streaming-connection failure. Dial and read
// failures are retriable per the fixed-delay reconnect policy; exhausting
// the attempt ceiling produces a non-retriable one.
type TransportError struct {
	Op        string // Operation that failed (e.g., "dial", "read", "subscribe")
	Err       error
	Retriable bool
}

func (e *TransportError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *TransportError) IsRetriable() bool {
	return e.Retriable
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// NewTransportError creates a new retriable transport error
func NewTransportError(op string, err error) *TransportError {
	return &TransportError{Op: op, Err: err, Retriable: true}
}

// NewFatalTransportError creates a non-retriable transport error
func NewFatalTransportError(op string, err error) *TransportError {
	return &TransportError{Op: op, Err: err, Retriable: false}
}

// ConfigError represents a configuration error (never retriable)
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return "config error [" + e.Field + "]: " + e.Err.Error()
}

func (e *ConfigError) IsRetriable() bool {
	return false
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

var (
	// ErrConnectionFailed is returned when the websocket connection fails. Usually retriable.
	ErrConnectionFailed = errors.New("connection failed")

	// ErrReconnectExhausted is surfaced once through the error handler after
	// the reconnect attempt ceiling is hit. Not retriable.
	ErrReconnectExhausted = errors.New("reconnect attempts exhausted")

	// ErrNotConnected is returned when a frame write is attempted with no open connection
	ErrNotConnected = errors.New("not connected")

	// ErrTradingDisabled is returned by market-maker Start when trading
	// credentials are absent. Precondition failure, never retriable.
	ErrTradingDisabled = errors.New("trading credentials not configured")

	// ErrConfigNotFound is returned when the configuration file is missing
	ErrConfigNotFound = errors.New("configuration not found")
)
