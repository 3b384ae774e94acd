package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hevc-encoder/encoder"
	"hevc-encoder/hwaccel"
	"hevc-encoder/progress"
)

type fakeController struct {
	mu        sync.Mutex
	calls     []string
	observer  encoder.Observer
	pauseErr  error
	cancelErr error
}

func (f *fakeController) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeController) SetObserver(o encoder.Observer) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.observer = o
}

func (f *fakeController) Start(context.Context, hwaccel.Request) (string, error) {
	f.record("start")
	return "out.mkv", nil
}

func (f *fakeController) Pause() error {
	f.record("pause")
	return f.pauseErr
}

func (f *fakeController) Resume() error {
	f.record("resume")
	return nil
}

func (f *fakeController) Cancel(context.Context) error {
	f.record("cancel")
	return f.cancelErr
}

func (f *fakeController) ViewOutput() error {
	f.record("view")
	return nil
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newTestModel(ctrl Controller) Model {
	req := hwaccel.Request{Inputs: []string{"in.mkv"}, Output: "out.mkv", Quality: hwaccel.DefaultQuality}
	m := NewModel(context.Background(), ctrl, req)
	return update(m, startedMsg{})
}

func update(m Model, msg tea.Msg) Model {
	next, _ := m.Update(msg)
	return next.(Model)
}

func TestUpdate_PauseToggle(t *testing.T) {
	ctrl := &fakeController{}
	m := newTestModel(ctrl)
	require.Equal(t, StateEncoding, m.State)

	m = update(m, key("p"))
	assert.Equal(t, StatePaused, m.State)
	assert.Contains(t, m.View(), "Paused")

	m = update(m, key("p"))
	assert.Equal(t, StateEncoding, m.State)
	assert.Equal(t, []string{"pause", "resume"}, ctrl.calls)
}

func TestUpdate_PauseFailureKeepsState(t *testing.T) {
	ctrl := &fakeController{pauseErr: errors.New("access denied")}
	m := update(newTestModel(ctrl), key("p"))
	assert.Equal(t, StateEncoding, m.State)
	assert.Contains(t, m.Notice, "access denied")
}

func TestUpdate_ProgressAndCompletion(t *testing.T) {
	m := newTestModel(&fakeController{})
	m = update(m, ProgressMsg(progress.Progress{Percent: 42, Frame: 10, Total: 100}))
	assert.InDelta(t, 42.0, m.CurrentProgress.Percent, 0.001)
	assert.Contains(t, m.View(), "42.0%")

	m = update(m, DoneMsg{Output: "out.mkv"})
	assert.Equal(t, StateDone, m.State)
	assert.NoError(t, m.Err())
	assert.Contains(t, m.View(), "Encoding Complete")
}

func TestUpdate_NoSpaceShowsPaused(t *testing.T) {
	m := newTestModel(&fakeController{})
	m = update(m, FailureMsg(progress.ErrorEvent{Kind: progress.NoSpaceLeft, Message: "Process failed.\nError message: disk full"}))
	assert.Equal(t, StatePaused, m.State)
	assert.Contains(t, m.Notice, "disk full")
}

func TestUpdate_Failure(t *testing.T) {
	m := newTestModel(&fakeController{})
	err := fmt.Errorf("ffmpeg exited with code 1: %w", encoder.ErrNonZeroExit)
	m = update(m, DoneMsg{Err: err})
	assert.Equal(t, StateError, m.State)
	assert.ErrorIs(t, m.Err(), encoder.ErrNonZeroExit)
	assert.Contains(t, m.View(), "Encoding Failed")
}

func TestUpdate_CancelKey(t *testing.T) {
	ctrl := &fakeController{}
	m := newTestModel(ctrl)

	next, cmd := m.Update(key("c"))
	m = next.(Model)
	require.NotNil(t, cmd)
	msg := cmd()
	assert.Equal(t, CancelledMsg{}, msg)
	assert.Equal(t, []string{"cancel"}, ctrl.calls)

	m = update(m, DoneMsg{Err: encoder.ErrCancelled})
	m = update(m, msg)
	assert.Equal(t, StateCancelled, m.State)
	assert.ErrorIs(t, m.Err(), encoder.ErrCancelled)
	assert.Empty(t, m.Notice)
}

func TestUpdate_CancelCleanupFailureIsShown(t *testing.T) {
	ctrl := &fakeController{cancelErr: &encoder.CleanupError{Path: "out.mkv", Attempts: 5, Err: errors.New("busy")}}
	m := newTestModel(ctrl)

	_, cmd := m.Update(key("c"))
	m = update(m, cmd())
	assert.Contains(t, m.Notice, "Partial output was not removed")
}

func TestUpdate_QuitWhileEncodingCancelsFirst(t *testing.T) {
	ctrl := &fakeController{}
	m := newTestModel(ctrl)

	next, cmd := m.Update(key("q"))
	m = next.(Model)
	require.NotNil(t, cmd)
	msg := cmd()
	assert.Equal(t, CancelledMsg{Quit: true}, msg)

	next, cmd = m.Update(msg)
	m = next.(Model)
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.ErrorIs(t, m.Err(), encoder.ErrCancelled)
}

func TestUpdate_LogRing(t *testing.T) {
	m := newTestModel(&fakeController{})
	for i := 0; i < maxLogLines+20; i++ {
		m = update(m, LineMsg{Stream: encoder.Stderr, Line: fmt.Sprintf("line %d", i)})
	}
	require.Len(t, m.LogLines, maxLogLines)
	assert.Equal(t, "line 20", m.LogLines[0])
	assert.True(t, strings.HasSuffix(m.LogLines[maxLogLines-1], fmt.Sprint(maxLogLines+19)))
}

func TestUpdate_ViewOutput(t *testing.T) {
	ctrl := &fakeController{}
	m := update(newTestModel(ctrl), DoneMsg{Output: "out.mkv"})
	update(m, key("o"))
	assert.Equal(t, []string{"view"}, ctrl.calls)
}

func TestObserverForwardsEvents(t *testing.T) {
	var got []tea.Msg
	obs := programObserver{send: func(msg tea.Msg) { got = append(got, msg) }}

	obs.OnLine(encoder.Stdout, "hello")
	obs.OnProgress(progress.Progress{Percent: 5})
	obs.OnError(progress.ErrorEvent{Kind: progress.PathTooLong, Message: "too long"})

	require.Len(t, got, 3)
	assert.Equal(t, LineMsg{Stream: encoder.Stdout, Line: "hello"}, got[0])
	assert.Equal(t, ProgressMsg(progress.Progress{Percent: 5}), got[1])
	assert.Equal(t, FailureMsg(progress.ErrorEvent{Kind: progress.PathTooLong, Message: "too long"}), got[2])

	var _ encoder.LineObserver = obs
}
