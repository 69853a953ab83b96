package tabular

import (
	"context"
	"fmt"
	"time"

	"powerbi-tom-skill/internal/common/errors"
)

// ConnectionRecorder receives connection lifecycle measurements.
type ConnectionRecorder interface {
	RecordConnection(ctx context.Context, workspace, status string)
	RecordConnectionDuration(ctx context.Context, workspace string, duration time.Duration, status string)
}

// Scope opens one server per call and closes it before returning.
type Scope struct {
	connector Connector
	recorder  ConnectionRecorder
}

// NewScope builds a Scope. recorder may be nil.
func NewScope(connector Connector, recorder ConnectionRecorder) *Scope {
	return &Scope{connector: connector, recorder: recorder}
}

// WithServer opens a connection with the default scope and no recorder.
func WithServer(ctx context.Context, connector Connector, workspace string, fn func(Server) error) error {
	return NewScope(connector, nil).WithServer(ctx, workspace, fn)
}

// WithServer connects to workspace, runs fn and closes the server on every
// exit path, including a panic in fn, which is re-raised after the close.
// A close error is only reported when fn itself succeeded.
func (s *Scope) WithServer(ctx context.Context, workspace string, fn func(Server) error) (err error) {
	server, connErr := s.connector.Connect(ctx, ConnectionString(workspace))
	if connErr != nil {
		s.record(ctx, workspace, "error")
		if stdErr, ok := connErr.(*errors.StandardError); ok {
			return stdErr
		}
		return errors.NewWorkspaceConnectionFailedError(workspace, connErr)
	}
	s.record(ctx, workspace, "success")

	opened := time.Now()
	status := "success"
	defer func() {
		p := recover()
		if p != nil {
			status = "panic"
		} else if err != nil {
			status = "error"
		}

		closeErr := server.Close()
		if s.recorder != nil {
			s.recorder.RecordConnectionDuration(ctx, workspace, time.Since(opened), status)
		}

		if p != nil {
			panic(p)
		}
		if err == nil && closeErr != nil {
			err = errors.NewWorkspaceConnectionFailedError(workspace, fmt.Errorf("close: %w", closeErr))
		}
	}()

	return fn(server)
}

func (s *Scope) record(ctx context.Context, workspace, status string) {
	if s.recorder != nil {
		s.recorder.RecordConnection(ctx, workspace, status)
	}
}
