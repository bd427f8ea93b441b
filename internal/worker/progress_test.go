package worker

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProgressPrint(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(10, true)
	p.out = &buf
	p.started = time.Now().Add(-10 * time.Second)

	p.Update(5, 10, 1)

	out := buf.String()
	assert.Contains(t, out, "[###############...............]")
	assert.Contains(t, out, "5/10 tiles")
	assert.Contains(t, out, "(1 failed)")
	assert.Contains(t, out, "tiles/sec")
	assert.Contains(t, out, "ETA:")
}

func TestProgressDone(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(3, true)
	p.out = &buf
	p.started = time.Now().Add(-3 * time.Second)

	p.Update(3, 3, 0)
	buf.Reset()
	p.Done()

	assert.Contains(t, buf.String(), "Done in")
	assert.NotContains(t, buf.String(), "ETA:")
	assert.Equal(t, byte('\n'), buf.Bytes()[buf.Len()-1])
}

func TestProgressDisabled(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(10, false)
	p.out = &buf

	p.Callback()(5, 10, 0)
	p.Done()

	assert.Zero(t, buf.Len())
	assert.Equal(t, 5, p.completed)
}

func TestProgressSummary(t *testing.T) {
	p := NewProgress(10, false)
	p.started = time.Now().Add(-10 * time.Second)
	p.Update(10, 10, 2)

	s := p.Summary()
	assert.Contains(t, s, "8/10 tiles")
	assert.Contains(t, s, "2 failed")
}

func TestProgressZeroTotal(t *testing.T) {
	p := NewProgress(0, false)
	assert.NotPanics(t, func() { _ = p.line() })
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		want string
		d    time.Duration
	}{
		{d: 30 * time.Second, want: "30s"},
		{d: 90 * time.Second, want: "1m30s"},
		{d: 5 * time.Minute, want: "5m0s"},
		{d: 65 * time.Minute, want: "1h5m"},
		{d: 2*time.Hour + 30*time.Minute, want: "2h30m"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, formatDuration(tt.d))
		})
	}
}
