package progress_test

import (
	"bytes"
	"strings"
	"testing"

	"ytbatch/internal/progress"
)

func TestTracker(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	tracker := progress.New(&buf, 3)
	tracker.Done(true)
	tracker.Done(false)
	tracker.Done(true)
	tracker.Wait()

	if got := tracker.Failed(); got != 1 {
		t.Errorf("Failed() = %d, want 1", got)
	}

	out := buf.String()
	if !strings.Contains(out, "3 / 3") {
		t.Errorf("output %q does not show completed counters", out)
	}

	if !strings.Contains(out, "failed 1") {
		t.Errorf("output %q does not show failures", out)
	}
}

func TestTracker_ShortRun(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	tracker := progress.New(&buf, 10)
	tracker.Done(true)

	// must not block although 9 items never finished
	tracker.Wait()
}

func TestTracker_Nil(t *testing.T) {
	t.Parallel()

	var tracker *progress.Tracker

	tracker.Done(false)
	tracker.Wait()

	if tracker.Failed() != 0 {
		t.Error("nil tracker counted a failure")
	}
}
