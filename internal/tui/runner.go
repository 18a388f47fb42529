package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// Runner manages a TUI program and receives progress from the batch runner.
type Runner struct {
	program *tea.Program
	model   Model
	mu      sync.Mutex
	started bool
}

// NewRunner creates a new TUI runner.
func NewRunner() *Runner {
	return &Runner{
		model: New(),
	}
}

// Start starts the TUI program in a goroutine and returns immediately.
// The program runs until Done() is called.
func (r *Runner) Start(opts ...tea.ProgramOption) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return nil
	}

	r.program = tea.NewProgram(r.model, opts...)
	r.started = true

	go func() {
		_, _ = r.program.Run()
	}()

	return nil
}

// Wait blocks until the TUI program exits.
func (r *Runner) Wait() {
	if r.program != nil {
		r.program.Wait()
	}
}

func (r *Runner) send(msg tea.Msg) {
	if r.program != nil {
		r.program.Send(msg)
	}
}

// AddFile queues a file as pending.
func (r *Runner) AddFile(path string) {
	r.send(AddFileMsg{Path: path})
}

// SetSyncing marks a file as currently being pushed.
func (r *Runner) SetSyncing(path string) {
	r.send(UpdateStatusMsg{Path: path, Status: StatusSyncing})
}

// SetDone marks a file as successfully pushed.
func (r *Runner) SetDone(path string) {
	r.send(UpdateStatusMsg{Path: path, Status: StatusDone})
}

// SetSkipped marks a file as skipped for lack of Notion frontmatter.
func (r *Runner) SetSkipped(path string) {
	r.send(UpdateStatusMsg{Path: path, Status: StatusSkipped})
}

// SetError marks a file as failed with an error message.
func (r *Runner) SetError(path, errMsg string) {
	r.send(UpdateStatusMsg{Path: path, Status: StatusError, Error: errMsg})
}

// Done signals that the batch is complete.
func (r *Runner) Done(err error) {
	r.send(DoneMsg{Err: err})
}
