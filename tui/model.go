package tui

import (
	"context"
	"errors"
	"strings"
	"time"

	bprogress "github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"hevc-encoder/encoder"
	"hevc-encoder/hwaccel"
	"hevc-encoder/progress"
)

// maxLogLines bounds the output kept for the log viewport.
const maxLogLines = 100

// Controller is the part of the supervisor the TUI drives.
type Controller interface {
	SetObserver(o encoder.Observer)
	Start(ctx context.Context, req hwaccel.Request) (string, error)
	Pause() error
	Resume() error
	Cancel(ctx context.Context) error
	ViewOutput() error
}

// State represents the current application state
type State int

const (
	StateIdle State = iota
	StateEncoding
	StatePaused
	StateDone
	StateError
	StateCancelled
)

// startedMsg is sent once the encode command has been dispatched.
type startedMsg struct {
	at time.Time
}

// ProgressMsg carries a progress report from the supervisor.
type ProgressMsg progress.Progress

// FailureMsg carries an error recognised in the encoder output.
type FailureMsg progress.ErrorEvent

// LineMsg is one raw line of encoder output.
type LineMsg struct {
	Stream encoder.Stream
	Line   string
}

// DoneMsg is sent when Start returns.
type DoneMsg struct {
	Output string
	Err    error
}

// CancelledMsg is sent when a cancel request finished, including cleanup of
// the partial output.
type CancelledMsg struct {
	Err  error
	Quit bool
}

// TickMsg is sent periodically to update the UI
type TickMsg time.Time

// Model is the Bubble Tea model for the TUI
type Model struct {
	ctx     context.Context
	ctrl    Controller
	Request hwaccel.Request

	State           State
	Progress        bprogress.Model
	LogViewport     viewport.Model
	LogLines        []string
	ShowLogs        bool
	Width           int
	Height          int
	StartTime       time.Time
	FinishTime      time.Time
	ErrorMessage    string
	Notice          string
	Output          string
	CurrentProgress progress.Progress
	cancelling      bool
	err             error
}

// NewModel creates a new TUI model
func NewModel(ctx context.Context, ctrl Controller, req hwaccel.Request) Model {
	// Custom gradient: violet -> emerald (matches our color scheme)
	prog := bprogress.New(
		bprogress.WithGradient("#7C3AED", "#10B981"),
		bprogress.WithWidth(50),
		bprogress.WithoutPercentage(),
	)

	vp := viewport.New(80, 12)
	vp.SetContent("")

	return Model{
		ctx:         ctx,
		ctrl:        ctrl,
		Request:     req,
		State:       StateIdle,
		Progress:    prog,
		LogViewport: vp,
		Output:      req.Output,
	}
}

// Err returns the outcome of the encode once the program has exited. A
// cancelled encode is reported as encoder.ErrCancelled.
func (m Model) Err() error {
	return m.err
}

// Init initializes the Bubble Tea program
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tea.EnterAltScreen,
		func() tea.Msg { return startedMsg{at: time.Now()} },
		m.startEncoding(),
	)
}

func (m Model) startEncoding() tea.Cmd {
	ctx, ctrl, req := m.ctx, m.ctrl, m.Request
	return func() tea.Msg {
		out, err := ctrl.Start(ctx, req)
		return DoneMsg{Output: out, Err: err}
	}
}

func (m Model) cancelEncoding(quit bool) tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		// The program context may already be done when quitting.
		err := ctrl.Cancel(context.WithoutCancel(ctx))
		return CancelledMsg{Err: err, Quit: quit}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func (m Model) active() bool {
	return m.State == StateIdle || m.State == StateEncoding || m.State == StatePaused
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if m.active() {
				m.cancelling = true
				return m, m.cancelEncoding(true)
			}
			return m, tea.Quit
		case "c":
			if m.active() && !m.cancelling {
				m.cancelling = true
				m.Notice = "Cancelling..."
				return m, m.cancelEncoding(false)
			}
		case "p", " ":
			m.togglePause()
		case "o":
			if err := m.ctrl.ViewOutput(); err != nil {
				m.Notice = "Could not open output folder: " + err.Error()
			}
		case "l":
			m.ShowLogs = !m.ShowLogs
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Progress.Width = msg.Width - 20
		m.LogViewport.Width = msg.Width - 4

		// Ensure viewport height doesn't go negative
		logHeight := msg.Height - 20
		if logHeight < 0 {
			logHeight = 0
		}
		m.LogViewport.Height = logHeight

	case startedMsg:
		if m.State == StateIdle {
			m.State = StateEncoding
			m.StartTime = msg.at
			cmds = append(cmds, tickCmd())
		}

	case ProgressMsg:
		m.CurrentProgress = progress.Progress(msg)

	case FailureMsg:
		ev := progress.ErrorEvent(msg)
		m.Notice = ev.Message
		if ev.Kind == progress.NoSpaceLeft && m.State == StateEncoding {
			// The supervisor has already frozen the process.
			m.State = StatePaused
		}

	case LineMsg:
		m.appendLog(msg.Line)

	case DoneMsg:
		m.FinishTime = time.Now()
		switch {
		case msg.Err == nil:
			m.State = StateDone
			m.Output = msg.Output
			m.CurrentProgress.Percent = 100
		case errors.Is(msg.Err, encoder.ErrCancelled):
			m.State = StateCancelled
			m.err = msg.Err
		default:
			m.State = StateError
			m.ErrorMessage = msg.Err.Error()
			m.err = msg.Err
		}
		if !m.cancelling {
			m.Notice = ""
		}

	case CancelledMsg:
		m.cancelling = false
		m.Notice = ""
		if msg.Err != nil {
			m.Notice = "Partial output was not removed: " + msg.Err.Error()
		}
		if msg.Quit {
			if m.err == nil && m.active() {
				m.err = encoder.ErrCancelled
			}
			return m, tea.Quit
		}

	case TickMsg:
		if m.active() {
			cmds = append(cmds, tickCmd())
		}
	}

	// Update viewport if showing logs
	if m.ShowLogs {
		var cmd tea.Cmd
		m.LogViewport, cmd = m.LogViewport.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) togglePause() {
	switch m.State {
	case StateEncoding:
		if err := m.ctrl.Pause(); err != nil {
			m.Notice = "Pause failed: " + err.Error()
			return
		}
		m.State = StatePaused
	case StatePaused:
		if err := m.ctrl.Resume(); err != nil {
			m.Notice = "Resume failed: " + err.Error()
			return
		}
		m.State = StateEncoding
		m.Notice = ""
	}
}

func (m *Model) appendLog(line string) {
	m.LogLines = append(m.LogLines, line)
	if len(m.LogLines) > maxLogLines {
		m.LogLines = m.LogLines[len(m.LogLines)-maxLogLines:]
	}
	m.LogViewport.SetContent(strings.Join(m.LogLines, "\n"))
	m.LogViewport.GotoBottom()
}
