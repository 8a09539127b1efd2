package engine

import (
	"sync"

	"github.com/c360/exengine/config"
	"github.com/c360/exengine/errors"
)

// The engine may be used as a process-wide singleton so device proxies
// and event catalogs can reach it without threading a reference through
// every constructor. Init/Instance are optional; New remains the primary
// constructor and multiple engines per process are fully supported.

var (
	singletonMu sync.Mutex
	singleton   *Engine
)

// Init constructs the process-wide engine. Calling Init twice is a
// programming error and returns ErrAlreadyInitialized.
func Init(cfg config.Config, opts ...Option) (*Engine, error) {
	singletonMu.Lock()
	defer singletonMu.Unlock()

	if singleton != nil {
		return nil, errors.ErrAlreadyInitialized
	}
	e, err := New(cfg, opts...)
	if err != nil {
		return nil, err
	}
	singleton = e
	return e, nil
}

// Instance returns the process-wide engine created by Init
func Instance() (*Engine, error) {
	singletonMu.Lock()
	defer singletonMu.Unlock()

	if singleton == nil {
		return nil, errors.ErrNotInitialized
	}
	return singleton, nil
}

// MustInstance returns the process-wide engine or panics. For use in
// event catalogs where a missing engine is unrecoverable.
func MustInstance() *Engine {
	e, err := Instance()
	if err != nil {
		panic(err)
	}
	return e
}

// ReleaseInstance shuts the singleton down and clears it so Init can be
// called again. Intended for teardown in embedding applications.
func ReleaseInstance(wait bool) error {
	singletonMu.Lock()
	e := singleton
	singleton = nil
	singletonMu.Unlock()

	if e == nil {
		return nil
	}
	return e.Shutdown(wait)
}
