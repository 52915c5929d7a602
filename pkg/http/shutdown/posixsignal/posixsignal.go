// Package posixsignal triggers a graceful shutdown on SIGINT and SIGTERM.
package posixsignal

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/kiosk404/sankhya-agent/pkg/http/shutdown"
)

const Name = "PosixSignalManager"

type PosixSignalManager struct {
	signals []os.Signal
}

// NewPosixSignalManager listens for sig, or SIGINT and SIGTERM when none is
// given.
func NewPosixSignalManager(sig ...os.Signal) *PosixSignalManager {
	if len(sig) == 0 {
		sig = []os.Signal{os.Interrupt, syscall.SIGTERM}
	}
	return &PosixSignalManager{signals: sig}
}

func (m *PosixSignalManager) GetName() string { return Name }

func (m *PosixSignalManager) Start(gs shutdown.GSInterface) error {
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, m.signals...)
		<-c
		gs.StartShutdown(m)
	}()
	return nil
}

func (m *PosixSignalManager) ShutdownStart() error { return nil }

// ShutdownFinish exits the process once every callback returned.
func (m *PosixSignalManager) ShutdownFinish() error {
	os.Exit(0)
	return nil
}
