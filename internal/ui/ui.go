// Package ui implements a command-line user interface using [tea].
package ui

import (
	"context"
	"fmt"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/tickloom/swmread/internal/queue"
)

// Handler is the principal implementation of a user interface [Handler].
type Handler struct {
	readQueue *queue.ReadQueue
	program   *tea.Program

	LogWriter *TeaLogWriter

	Ready  atomic.Bool
	Failed atomic.Bool
}

// trapState is the read-only view of the boundary trap the UI renders.
type trapState interface {
	Triggered() bool
}

// NewHandler returns a pointer to a new user interface [Handler].
func NewHandler(ctx context.Context, cancel context.CancelFunc, readQueue *queue.ReadQueue, faultTrap trapState) *Handler {
	handler := &Handler{
		readQueue: readQueue,
	}

	model := NewTeaModel(handler, readQueue, faultTrap, cancel)
	handler.program = tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	handler.LogWriter = NewTeaLogWriter(handler.program)

	return handler
}

// Launch starts the command-line user interface (the [tea.Program]).
func (uiHandler *Handler) Launch() error {
	defer uiHandler.LogWriter.Stop()

	if _, err := uiHandler.program.Run(); err != nil {
		uiHandler.Failed.Store(true)

		return fmt.Errorf("(ui) %w", err)
	}

	return nil
}
