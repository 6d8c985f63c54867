package machmem

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type recordingLogger struct {
	lines []string
}

func (r *recordingLogger) Info(msg string) { r.lines = append(r.lines, msg) }

func TestModeTransitionLogsOnlyOnChange(t *testing.T) {
	log := &recordingLogger{}
	mem := New(log)

	assert.Equal(t, ModeUnset, mem.Mode())

	mem.SetMode(ModeReady)
	mem.SetMode(ModeReady) // no-op, must not log again
	mem.SetMode(ModeMovingC3ToC2)

	assert.Equal(t, ModeMovingC3ToC2, mem.Mode())
	assert.Equal(t, []string{"Mode: READY", "Mode: READY -> MOVING_C3_TO_C2"}, log.lines)
}

func TestClearWipesModeAndKeys(t *testing.T) {
	mem := New(nil)
	mem.SetMode(ModeReady)
	mem.SetTime("C3toC2_StartTime", time.Now())

	mem.Clear()

	assert.Equal(t, ModeUnset, mem.Mode())
	_, ok := mem.GetTime("C3toC2_StartTime")
	assert.False(t, ok)
}

func TestTypedAccessorsRejectWrongKind(t *testing.T) {
	mem := New(nil)
	mem.SetBool("flag", true)

	_, ok := mem.GetInt("flag")
	assert.False(t, ok)

	b, ok := mem.GetBool("flag")
	assert.True(t, ok)
	assert.True(t, b)
}

func TestSnapshotIsACopy(t *testing.T) {
	mem := New(nil)
	mem.SetInt("n", 1)

	snap := mem.Snapshot()
	mem.SetInt("n", 2)

	assert.Equal(t, 1, snap["n"].Int)
	v, _ := mem.Get("n")
	assert.Equal(t, 2, v.Int)
}

func TestPopRemoves(t *testing.T) {
	mem := New(nil)
	mem.SetInt("n", 5)

	v, ok := mem.Pop("n")
	assert.True(t, ok)
	assert.Equal(t, 5, v.Int)

	_, ok = mem.Get("n")
	assert.False(t, ok)
}
