package loading

import (
	"context"
	"errors"
	"testing"

	"github.com/KreatechIT/mrs-sub000/internal/shared/logger"
)

func TestWithLoadingClearsOnSuccess(t *testing.T) {
	tr := NewTracker(logger.Nop())

	var seen bool
	err := tr.WithLoading(context.Background(), "items.list", "loading items", func(ctx context.Context) error {
		st := tr.Get("items.list")
		if !st.IsLoading || st.Message != "loading items" {
			t.Errorf("state during op: %+v", st)
		}
		seen = true
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if !seen {
		t.Fatal("op never ran")
	}
	if tr.Get("items.list").IsLoading {
		t.Error("state not cleared after success")
	}
}

func TestWithLoadingClearsOnFailure(t *testing.T) {
	tr := NewTracker(logger.Nop())

	wantErr := errors.New("boom")
	err := tr.WithLoading(context.Background(), "spin", "spinning", func(ctx context.Context) error {
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("got %v", err)
	}
	if tr.Get("spin").IsLoading {
		t.Error("state not cleared after failure")
	}
	if got := tr.Active(); len(got) != 0 {
		t.Errorf("active = %v", got)
	}
}

func TestWithProgressReports(t *testing.T) {
	tr := NewTracker(logger.Nop())

	var fractions []float64
	id := tr.AddListener(func(key string, st State) {
		if key == "upload" && st.IsLoading {
			fractions = append(fractions, st.Progress)
		}
	})
	defer tr.RemoveListener(id)

	err := tr.WithProgress(context.Background(), "upload", "uploading", func(ctx context.Context, report func(float64)) error {
		report(0.5)
		report(1.5) // clamped
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(fractions) != 3 || fractions[1] != 0.5 || fractions[2] != 1 {
		t.Errorf("fractions = %v", fractions)
	}
}

func TestListenerPanicIsolated(t *testing.T) {
	tr := NewTracker(logger.Nop())

	tr.AddListener(func(string, State) { panic("bad listener") })
	var called bool
	tr.AddListener(func(string, State) { called = true })

	tr.Start("op", "running")
	if !called {
		t.Error("second listener skipped after panic in first")
	}
	tr.Finish("op")
}

func TestConcurrentOperationsIndependent(t *testing.T) {
	tr := NewTracker(logger.Nop())

	tr.Start("a", "one")
	tr.Start("b", "two")
	tr.Finish("a")

	if tr.Get("a").IsLoading {
		t.Error("a still loading")
	}
	if !tr.Get("b").IsLoading {
		t.Error("b cleared with a")
	}
}
