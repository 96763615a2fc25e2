package archive

import (
	"context"
	"errors"
	"testing"
)

type fakeQuiescer struct {
	calls    []string
	closeErr error
	openErr  error
}

func (f *fakeQuiescer) Close() error {
	f.calls = append(f.calls, "close")
	return f.closeErr
}

func (f *fakeQuiescer) Reopen(_ context.Context) error {
	f.calls = append(f.calls, "reopen")
	return f.openErr
}

func TestQuiesceArchiverOrder(t *testing.T) {
	q := &fakeQuiescer{}
	a := &QuiesceArchiver{
		Store: q,
		Copy: func(_ context.Context) error {
			q.calls = append(q.calls, "copy")
			return nil
		},
	}

	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	want := []string{"close", "copy", "reopen"}
	if len(q.calls) != len(want) {
		t.Fatalf("unexpected calls %v", q.calls)
	}
	for i, call := range want {
		if q.calls[i] != call {
			t.Fatalf("expected %v, got %v", want, q.calls)
		}
	}
}

func TestQuiesceArchiverReopensAfterCopyFailure(t *testing.T) {
	q := &fakeQuiescer{}
	copyErr := errors.New("disk full")
	a := &QuiesceArchiver{
		Store: q,
		Copy:  func(_ context.Context) error { return copyErr },
	}

	err := a.Run(context.Background())
	if !errors.Is(err, copyErr) {
		t.Fatalf("expected copy error, got %v", err)
	}
	if len(q.calls) != 2 || q.calls[1] != "reopen" {
		t.Fatalf("store not reopened after failed copy: %v", q.calls)
	}
}

func TestQuiesceArchiverStopsOnCloseFailure(t *testing.T) {
	q := &fakeQuiescer{closeErr: errors.New("busy")}
	copied := false
	a := &QuiesceArchiver{
		Store: q,
		Copy: func(_ context.Context) error {
			copied = true
			return nil
		},
	}

	if err := a.Run(context.Background()); err == nil {
		t.Fatalf("expected close error")
	}
	if copied {
		t.Fatalf("copy ran against a store that failed to quiesce")
	}
}

func TestNoopArchiver(t *testing.T) {
	if err := (NoopArchiver{}).Run(context.Background()); err != nil {
		t.Fatalf("noop archiver errored: %v", err)
	}
}
