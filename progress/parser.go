package progress

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Progress is one progress report derived from an ffmpeg stats line.
type Progress struct {
	Percent float64 // clamped to [0, 100]
	Current time.Duration
	Total   time.Duration
	Frame   int
}

// ErrorKind classifies error lines recognised in ffmpeg output.
type ErrorKind int

const (
	NoSpaceLeft ErrorKind = iota + 1
	PathTooLong
)

var (
	ErrNoSpaceLeft = errors.New("no space left on device")
	ErrPathTooLong = errors.New("destination path too long")
)

func (k ErrorKind) String() string {
	switch k {
	case NoSpaceLeft:
		return "no_space_left"
	case PathTooLong:
		return "path_too_long"
	default:
		return "unknown"
	}
}

// ErrorEvent is a failure signalled by the process through its output.
type ErrorEvent struct {
	Kind    ErrorKind
	Message string
}

func (e ErrorEvent) Error() string {
	return e.Message
}

// Unwrap lets errors.Is match the kind's sentinel.
func (e ErrorEvent) Unwrap() error {
	switch e.Kind {
	case NoSpaceLeft:
		return ErrNoSpaceLeft
	case PathTooLong:
		return ErrPathTooLong
	}
	return nil
}

// State is the parser's position in the output stream.
type State int

const (
	AwaitingDuration State = iota
	Streaming
)

// Result is what a single line produced. At most one of Progress and Error is set.
type Result struct {
	Progress *Progress
	Error    *ErrorEvent
	// Pause asks the supervisor to freeze the process.
	Pause bool
}

const (
	noSpaceSuffix    = "No space left on device"
	ioErrorSuffix    = "I/O error"
	noSuchFileSuffix = ": No such file or directory"

	failedPrefix   = "Process failed.\nError message: "
	pathTooLongMsg = "The source file name is too long. Shorten it to get the total number of characters in the destination directory lower than 256.\n\nDestination directory: "
)

var (
	durationRe = regexp.MustCompile(`Duration:\s(\d{2}):(\d{2}):(\d{2})\.(\d{2})`)
	frameRe    = regexp.MustCompile(`^frame=\s*(\d+)\s.+?time=(\d{2}):(\d{2}):(\d{2})\.(\d{2})`)
)

// Parser turns ffmpeg output lines into Results. One Parser serves one run;
// it is safe to feed from the stdout and stderr readers concurrently.
type Parser struct {
	mu       sync.Mutex
	state    State
	duration time.Duration
}

// NewParser returns a parser waiting for the duration header.
func NewParser() *Parser {
	return &Parser{state: AwaitingDuration}
}

// State returns the current parser state.
func (p *Parser) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Duration returns the total duration once known.
func (p *Parser) Duration() (time.Duration, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.duration, p.state == Streaming
}

// Parse consumes one line. Malformed or unrelated lines yield an empty Result.
func (p *Parser) Parse(line string) Result {
	line = strings.TrimRight(line, " \t\r\n")
	if line == "" {
		return Result{}
	}

	if ev, pause := checkError(line); ev != nil {
		return Result{Error: ev, Pause: pause}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == AwaitingDuration {
		if m := durationRe.FindStringSubmatch(line); m != nil {
			p.duration = parseClock(m[1], m[2], m[3], m[4])
			p.state = Streaming
		}
		return Result{}
	}

	if !strings.HasPrefix(line, "frame") {
		return Result{}
	}
	m := frameRe.FindStringSubmatch(line)
	if m == nil {
		return Result{}
	}
	frame, err := strconv.Atoi(m[1])
	if err != nil {
		return Result{}
	}
	current := parseClock(m[2], m[3], m[4], m[5])
	return Result{Progress: &Progress{
		Percent: percent(current, p.duration),
		Current: current,
		Total:   p.duration,
		Frame:   frame,
	}}
}

func checkError(line string) (*ErrorEvent, bool) {
	if strings.HasSuffix(line, noSpaceSuffix) || strings.HasSuffix(line, ioErrorSuffix) {
		return &ErrorEvent{Kind: NoSpaceLeft, Message: failedPrefix + line}, true
	}
	if strings.HasSuffix(line, noSuchFileSuffix) {
		path := strings.TrimSuffix(line, noSuchFileSuffix)
		return &ErrorEvent{Kind: PathTooLong, Message: pathTooLongMsg + path}, false
	}
	return nil, false
}

// parseClock converts HH, MM, SS and centisecond fields into a duration.
func parseClock(hh, mm, ss, cs string) time.Duration {
	h, _ := strconv.Atoi(hh)
	m, _ := strconv.Atoi(mm)
	s, _ := strconv.Atoi(ss)
	c, _ := strconv.Atoi(cs)
	return time.Duration(h)*time.Hour +
		time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second +
		time.Duration(c*10)*time.Millisecond
}

func percent(current, total time.Duration) float64 {
	if total <= 0 {
		return 0
	}
	return clampPercentage(float64(current) / float64(total) * 100)
}

// clampPercentage ensures percentage is within 0-100 range
func clampPercentage(pct float64) float64 {
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}
