package health

import (
	"context"
	"errors"
)

// Readier is implemented by the firewall engine.
type Readier interface {
	Ready(ctx context.Context) error
}

// Pinger is implemented by audit storage backends.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Running is implemented by background services such as the retention
// scheduler.
type Running interface {
	IsRunning() bool
}

// EngineCheck fails while the engine has no rules or is disabled.
func EngineCheck(r Readier) CheckFunc {
	return r.Ready
}

// StorageCheck fails when the audit database cannot be reached.
func StorageCheck(p Pinger) CheckFunc {
	return p.Ping
}

// RunningCheck fails when the service has stopped.
func RunningCheck(name string, r Running) CheckFunc {
	return func(ctx context.Context) error {
		if !r.IsRunning() {
			return errors.New(name + " is not running")
		}
		return nil
	}
}
