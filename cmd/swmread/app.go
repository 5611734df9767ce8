package main

import (
	"context"
	"fmt"

	"github.com/tickloom/swmread/internal/reader"
	"github.com/tickloom/swmread/internal/ui"
)

// App bundles the established handlers of one reader session.
type App struct {
	readerHandler *reader.Handler
	uiHandler     *ui.Handler
}

// NewApp returns a pointer to a new [App].
func NewApp(readerHandler *reader.Handler, uiHandler *ui.Handler) *App {
	return &App{
		readerHandler: readerHandler,
		uiHandler:     uiHandler,
	}
}

// Launch runs the reader loop to completion.
func (app *App) Launch(ctx context.Context) error {
	if err := app.readerHandler.Run(ctx); err != nil {
		return fmt.Errorf("(app) %w", err)
	}

	return nil
}

// LaunchUI runs the command-line user interface to completion.
func (app *App) LaunchUI() error {
	if err := app.uiHandler.Launch(); err != nil {
		return fmt.Errorf("(app-ui) %w", err)
	}

	return nil
}
