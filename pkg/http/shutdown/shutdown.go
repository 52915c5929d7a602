// Package shutdown runs registered callbacks when a shutdown manager (such
// as a posix signal listener) reports that the process should stop.
package shutdown

import (
	"sync"
)

// ShutdownCallback is run once per shutdown, in parallel with the others.
type ShutdownCallback interface {
	OnShutdown(manager string) error
}

// Func adapts a function to ShutdownCallback.
type Func func(string) error

func (f Func) OnShutdown(manager string) error { return f(manager) }

// ShutdownManager detects the shutdown trigger and calls StartShutdown.
type ShutdownManager interface {
	GetName() string
	Start(gs GSInterface) error
	ShutdownStart() error
	ShutdownFinish() error
}

// ErrorHandler receives errors from managers and callbacks.
type ErrorHandler interface {
	OnError(err error)
}

// ErrorFunc adapts a function to ErrorHandler.
type ErrorFunc func(err error)

func (f ErrorFunc) OnError(err error) { f(err) }

// GSInterface is what a manager sees of GracefulShutdown.
type GSInterface interface {
	StartShutdown(sm ShutdownManager)
	ReportError(err error)
	AddShutdownCallback(cb ShutdownCallback)
}

type GracefulShutdown struct {
	callbacks    []ShutdownCallback
	managers     []ShutdownManager
	errorHandler ErrorHandler
	mu           sync.Mutex
}

func New() *GracefulShutdown {
	return &GracefulShutdown{}
}

// Start starts every manager.
func (gs *GracefulShutdown) Start() error {
	for _, m := range gs.managers {
		if err := m.Start(gs); err != nil {
			return err
		}
	}
	return nil
}

func (gs *GracefulShutdown) AddShutdownManager(m ShutdownManager) {
	gs.managers = append(gs.managers, m)
}

func (gs *GracefulShutdown) AddShutdownCallback(cb ShutdownCallback) {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	gs.callbacks = append(gs.callbacks, cb)
}

func (gs *GracefulShutdown) SetErrorHandler(h ErrorHandler) {
	gs.errorHandler = h
}

// StartShutdown runs every callback and waits for them.
func (gs *GracefulShutdown) StartShutdown(sm ShutdownManager) {
	gs.ReportError(sm.ShutdownStart())

	gs.mu.Lock()
	callbacks := append([]ShutdownCallback(nil), gs.callbacks...)
	gs.mu.Unlock()

	var wg sync.WaitGroup
	for _, cb := range callbacks {
		wg.Add(1)
		go func(cb ShutdownCallback) {
			defer wg.Done()
			gs.ReportError(cb.OnShutdown(sm.GetName()))
		}(cb)
	}
	wg.Wait()

	gs.ReportError(sm.ShutdownFinish())
}

func (gs *GracefulShutdown) ReportError(err error) {
	if err != nil && gs.errorHandler != nil {
		gs.errorHandler.OnError(err)
	}
}
