// Package util provides logging helpers and virtual serial management using socat.
package util

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"
)

// ErrNoSocat is returned when the socat binary is not installed.
var ErrNoSocat = errors.New("socat not found in PATH")

// SocatManager manages lifecycle of socat-created virtual serial pairs, used
// to put a pty between the robot and the monitor on one machine.
type SocatManager struct {
	mu     sync.Mutex
	cmds   []*exec.Cmd
	links  []string
	closed bool
}

// NewSocatManager initializes an empty manager.
func NewSocatManager() *SocatManager {
	return &SocatManager{}
}

// CreatePair starts a socat process that links two PTYs (bidirectional) and
// waits up to a second for both links to appear.
func (m *SocatManager) CreatePair(left, right string) error {
	if _, err := exec.LookPath("socat"); err != nil {
		return ErrNoSocat
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errors.New("socat manager closed")
	}

	cmd := exec.Command(
		"socat", "-d", "-d",
		fmt.Sprintf("pty,raw,echo=0,link=%s", left),
		fmt.Sprintf("pty,raw,echo=0,link=%s", right),
	)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start socat: %w", err)
	}
	Info("started socat", "component", "virt-serial", "pid", cmd.Process.Pid, "left", left, "right", right)

	m.cmds = append(m.cmds, cmd)
	m.links = append(m.links, left, right)

	deadline := time.Now().Add(time.Second)
	for !exists(left) || !exists(right) {
		if time.Now().After(deadline) {
			return fmt.Errorf("socat links %s, %s did not appear", left, right)
		}
		time.Sleep(20 * time.Millisecond)
	}
	return nil
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// Cleanup stops all socat processes and removes created links.
func (m *SocatManager) Cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true

	for _, cmd := range m.cmds {
		if cmd.Process != nil {
			Debug("killing socat", "component", "virt-serial", "pid", cmd.Process.Pid)
			_ = cmd.Process.Kill()
			_, _ = cmd.Process.Wait()
		}
	}

	for _, path := range m.links {
		if exists(path) {
			_ = os.Remove(path)
		}
	}

	Info("socat cleanup complete", "component", "virt-serial", "pairs", len(m.links)/2)
}
