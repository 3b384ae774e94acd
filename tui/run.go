package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"hevc-encoder/encoder"
	"hevc-encoder/hwaccel"
	"hevc-encoder/progress"
)

// programObserver forwards supervisor events into the Bubble Tea loop.
type programObserver struct {
	send func(tea.Msg)
}

// NewObserver returns an encoder.Observer that delivers events to p.
func NewObserver(p *tea.Program) encoder.Observer {
	return programObserver{send: p.Send}
}

func (o programObserver) OnProgress(p progress.Progress) {
	o.send(ProgressMsg(p))
}

func (o programObserver) OnError(e progress.ErrorEvent) {
	o.send(FailureMsg(e))
}

func (o programObserver) OnLine(stream encoder.Stream, line string) {
	o.send(LineMsg{Stream: stream, Line: line})
}

// Run shows the TUI for a single encode and returns its outcome.
func Run(ctx context.Context, ctrl Controller, req hwaccel.Request) error {
	p := tea.NewProgram(NewModel(ctx, ctrl, req), tea.WithContext(ctx))
	ctrl.SetObserver(NewObserver(p))
	defer ctrl.SetObserver(nil)

	final, err := p.Run()
	// Nothing may outlive the UI.
	if cerr := ctrl.Cancel(context.Background()); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("run tui: %w", err)
	}
	if m, ok := final.(Model); ok {
		return m.Err()
	}
	return nil
}
