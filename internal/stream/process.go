// internal/stream/process.go
package stream

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
)

// ErrSourceClosed is returned once a source has no more lines to give
var ErrSourceClosed = errors.New("source closed")

// Process is a running child whose stdout and stderr are read as one stream
type Process struct {
	*Reader

	name string
	cmd  *exec.Cmd

	waitOnce sync.Once
	waitErr  error
}

// Start launches name with args. Stderr is merged into stdout so
// diagnostics and events arrive in the order the child wrote them.
func Start(ctx context.Context, name string, args ...string) (*Process, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = append(os.Environ(), "LC_ALL=C")

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	cmd.Stderr = cmd.Stdout

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", name, err)
	}

	return &Process{
		Reader: NewReader(stdout),
		name:   name,
		cmd:    cmd,
	}, nil
}

// String returns the command line
func (p *Process) String() string {
	return strings.Join(p.cmd.Args, " ")
}

// Wait reaps the child. Call it after Next has returned an error.
func (p *Process) Wait() error {
	p.waitOnce.Do(func() {
		if err := p.cmd.Wait(); err != nil {
			p.waitErr = fmt.Errorf("%s exited: %w", p.name, err)
		}
	})
	return p.waitErr
}

// Stop kills the child if it is still running and reaps it
func (p *Process) Stop() error {
	if p.cmd.ProcessState == nil && p.cmd.Process != nil {
		p.cmd.Process.Kill()
	}
	return p.Wait()
}
