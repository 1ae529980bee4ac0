package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/steelspec/bucklab/internal/engine"
)

// pollViewer reports busy for the first busyPolls calls.
type pollViewer struct {
	busyPolls int
	calls     int
	err       error
}

func (v *pollViewer) Busy(ctx context.Context) (bool, error) {
	v.calls++
	if v.err != nil {
		return false, v.err
	}
	return v.calls <= v.busyPolls, nil
}

func (v *pollViewer) ExportImages(ctx context.Context, req engine.ImageRequest) (int, error) {
	return 0, nil
}

func TestWaitForViewerBecomesFree(t *testing.T) {
	v := &pollViewer{busyPolls: 2}
	ready, err := WaitForViewer(context.Background(), v, 200*time.Millisecond, time.Millisecond)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ready {
		t.Errorf("expected viewer to come free")
	}
	if v.calls != 3 {
		t.Errorf("expected 3 polls, got %d", v.calls)
	}
}

func TestWaitForViewerTimesOut(t *testing.T) {
	v := &pollViewer{busyPolls: 1 << 30}
	ready, err := WaitForViewer(context.Background(), v, 5*time.Millisecond, time.Millisecond)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ready {
		t.Errorf("expected timeout to report not ready")
	}
}

func TestWaitForViewerZeroWaitPollsOnce(t *testing.T) {
	free := &pollViewer{}
	ready, err := WaitForViewer(context.Background(), free, 0, time.Millisecond)
	if err != nil || !ready {
		t.Errorf("expected a free viewer on the single poll, got ready=%v err=%v", ready, err)
	}
	if free.calls != 1 {
		t.Errorf("expected exactly one poll, got %d", free.calls)
	}

	busy := &pollViewer{busyPolls: 1 << 30}
	ready, err = WaitForViewer(context.Background(), busy, 0, time.Millisecond)
	if err != nil || ready {
		t.Errorf("expected busy result without waiting, got ready=%v err=%v", ready, err)
	}
	if busy.calls != 1 {
		t.Errorf("expected exactly one poll, got %d", busy.calls)
	}
}

func TestWaitForViewerPropagatesError(t *testing.T) {
	v := &pollViewer{err: errors.New("session lost")}
	_, err := WaitForViewer(context.Background(), v, 50*time.Millisecond, time.Millisecond)
	if err == nil || err.Error() != "session lost" {
		t.Errorf("expected poll error, got %v", err)
	}
}

func TestWaitForViewerHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	v := &pollViewer{busyPolls: 1 << 30}
	_, err := WaitForViewer(ctx, v, time.Second, time.Millisecond)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context cancellation, got %v", err)
	}
}
