package progress

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"testing"
	"testing/quick"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	durationLine = "  Duration: 00:10:00.00, start: 0.000000, bitrate: 5012 kb/s"
	halfwayLine  = "frame= 7500 fps=250 q=28.0 size=   10240kB time=00:05:00.00 bitrate= 279.6kbits/s speed=10.0x"
)

func TestParse_PercentFromDuration(t *testing.T) {
	p := NewParser()
	assert.Equal(t, AwaitingDuration, p.State())

	res := p.Parse(durationLine)
	assert.Nil(t, res.Progress)
	assert.Nil(t, res.Error)
	assert.Equal(t, Streaming, p.State())

	res = p.Parse(halfwayLine)
	require.NotNil(t, res.Progress)
	assert.InDelta(t, 50.0, res.Progress.Percent, 1e-9)
	assert.Equal(t, 5*time.Minute, res.Progress.Current)
	assert.Equal(t, 10*time.Minute, res.Progress.Total)
	assert.Equal(t, 7500, res.Progress.Frame)
}

func TestParse_FrameBeforeDurationIgnored(t *testing.T) {
	p := NewParser()
	res := p.Parse(halfwayLine)
	assert.Nil(t, res.Progress)
	assert.Equal(t, AwaitingDuration, p.State())
	_, known := p.Duration()
	assert.False(t, known)
}

func TestParse_DurationSetOnce(t *testing.T) {
	p := NewParser()
	p.Parse(durationLine)
	p.Parse("  Duration: 01:00:00.00, start: 0.000000, bitrate: 1 kb/s")
	d, known := p.Duration()
	assert.True(t, known)
	assert.Equal(t, 10*time.Minute, d)
}

func TestParse_CarriageReturnTerminated(t *testing.T) {
	p := NewParser()
	p.Parse(durationLine + "\r")
	res := p.Parse(halfwayLine + "\r")
	require.NotNil(t, res.Progress)
	assert.InDelta(t, 50.0, res.Progress.Percent, 1e-9)
}

func TestParse_ClampsOverrun(t *testing.T) {
	p := NewParser()
	p.Parse(durationLine)
	res := p.Parse("frame=99999 fps=250 q=28.0 size= 1kB time=00:10:30.50 bitrate= 1kbits/s speed=10x")
	require.NotNil(t, res.Progress)
	assert.Equal(t, 100.0, res.Progress.Percent)
}

func TestParse_ZeroDuration(t *testing.T) {
	p := NewParser()
	p.Parse("  Duration: 00:00:00.00, start: 0.000000")
	res := p.Parse("frame=1 fps=0.0 q=0.0 size= 0kB time=00:00:00.04 bitrate=N/A speed=N/A")
	require.NotNil(t, res.Progress)
	assert.Equal(t, 0.0, res.Progress.Percent)
}

func TestParse_IgnoresNoise(t *testing.T) {
	p := NewParser()
	p.Parse(durationLine)
	lines := []string{
		"",
		"   ",
		"Stream #0:0: Video: h264 (High), yuv420p, 1920x1080, 23.98 fps",
		"frame=garbage",
		"frame=  10 fps=0.0 q=0.0 size=N/A time=N/A bitrate=N/A",
		"[hevc_nvenc @ 0x55] Using global quality",
		"Press [q] to stop, [?] for help",
	}
	for _, line := range lines {
		res := p.Parse(line)
		assert.Nil(t, res.Progress, "line %q", line)
		assert.Nil(t, res.Error, "line %q", line)
		assert.False(t, res.Pause, "line %q", line)
	}
}

func TestParse_NoSpaceLeft(t *testing.T) {
	line := "av_interleaved_write_frame(): No space left on device"
	for _, p := range []*Parser{NewParser(), streamingParser()} {
		res := p.Parse(line)
		require.NotNil(t, res.Error)
		assert.True(t, res.Pause)
		assert.Equal(t, NoSpaceLeft, res.Error.Kind)
		assert.True(t, strings.HasSuffix(res.Error.Message, "No space left on device"))
		assert.True(t, errors.Is(*res.Error, ErrNoSpaceLeft))
	}
}

func TestParse_IOError(t *testing.T) {
	res := NewParser().Parse("Error writing trailer of out.mkv: I/O error")
	require.NotNil(t, res.Error)
	assert.Equal(t, NoSpaceLeft, res.Error.Kind)
	assert.True(t, res.Pause)
}

func TestParse_PathTooLong(t *testing.T) {
	res := NewParser().Parse(`C:\very\long\path\out.mkv: No such file or directory`)
	require.NotNil(t, res.Error)
	assert.False(t, res.Pause)
	assert.Equal(t, PathTooLong, res.Error.Kind)
	assert.True(t, strings.HasSuffix(res.Error.Message, `Destination directory: C:\very\long\path\out.mkv`))
	assert.Contains(t, res.Error.Message, "lower than 256")

	var target ErrorEvent
	err := fmt.Errorf("encode: %w", *res.Error)
	require.True(t, errors.As(err, &target))
	assert.ErrorIs(t, err, ErrPathTooLong)
}

func TestParse_ConcurrentReaders(t *testing.T) {
	p := NewParser()
	p.Parse(durationLine)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				res := p.Parse(halfwayLine)
				if res.Progress == nil || res.Progress.Percent != 50 {
					t.Error("unexpected result from concurrent parse")
					return
				}
			}
		}()
	}
	wg.Wait()
}

// For any elapsed and total time, the reported percent is elapsed/total*100
// clamped to [0, 100].
func TestPercent_Property(t *testing.T) {
	f := func(elapsedCs, totalCs uint32) bool {
		elapsed := time.Duration(elapsedCs%(100*3600*100)) * 10 * time.Millisecond
		total := time.Duration(totalCs%(100*3600*100)) * 10 * time.Millisecond

		p := NewParser()
		p.Parse("Duration: " + clock(total) + ", start: 0.0")
		res := p.Parse("frame=1 fps=1 q=1 size=1kB time=" + clock(elapsed) + " bitrate=1 speed=1x")
		if res.Progress == nil {
			return false
		}
		got := res.Progress.Percent
		if got < 0 || got > 100 {
			return false
		}
		if total == 0 {
			return got == 0
		}
		want := math.Min(float64(elapsed)/float64(total)*100, 100)
		return math.Abs(got-want) < 1e-9
	}
	if err := quick.Check(f, &quick.Config{MaxCount: 1000}); err != nil {
		t.Error(err)
	}
}

func TestClampPercentage_Property(t *testing.T) {
	f := func(pct float64) bool {
		if math.IsNaN(pct) || math.IsInf(pct, 0) {
			return true
		}
		result := clampPercentage(pct)
		return result >= 0 && result <= 100
	}
	if err := quick.Check(f, &quick.Config{MaxCount: 1000}); err != nil {
		t.Error(err)
	}
}

func streamingParser() *Parser {
	p := NewParser()
	p.Parse(durationLine)
	return p
}

func clock(d time.Duration) string {
	cs := d / (10 * time.Millisecond)
	h := cs / (3600 * 100)
	cs -= h * 3600 * 100
	m := cs / (60 * 100)
	cs -= m * 60 * 100
	s := cs / 100
	cs -= s * 100
	return fmt.Sprintf("%02d:%02d:%02d.%02d", h, m, s, cs)
}
