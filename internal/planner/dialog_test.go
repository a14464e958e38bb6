package planner

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"studyplan/internal/models"
)

func TestDialogStateString(t *testing.T) {
	tests := map[DialogState]string{
		DialogClosed:     "closed",
		DialogOpen:       "open",
		DialogSubmitting: "submitting",
		DialogSuccess:    "success",
		DialogError:      "error",
		DialogState(42):  "unknown",
	}
	for state, want := range tests {
		if got := state.String(); got != want {
			t.Errorf("expected %q, got %q", want, got)
		}
	}
}

func TestDialogSubmitSuccess(t *testing.T) {
	b := &fakeBackend{}
	p, _, _ := newTestPlanner(t, b.handler(), Options{RefetchDelay: time.Hour})
	d := NewDialog(p)

	if _, err := d.Submit(context.Background()); !errors.Is(err, ErrDialogClosed) {
		t.Fatalf("expected ErrDialogClosed, got %v", err)
	}

	d.Open()
	if d.State() != DialogOpen || !d.Visible() {
		t.Fatalf("expected open dialog, got %s", d.State())
	}
	if got := d.Params(); got != models.DefaultGenerateScheduleParams() {
		t.Errorf("expected default params, got %+v", got)
	}

	res, err := d.Submit(context.Background())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.EntriesCreated != 12 || d.Result().EntriesCreated != 12 {
		t.Errorf("expected 12 entries, got %d", res.EntriesCreated)
	}
	if d.State() != DialogSuccess || d.Visible() {
		t.Errorf("expected dialog to close on success, got %s", d.State())
	}
}

func TestDialogValidationKeepsDialogOpen(t *testing.T) {
	b := &fakeBackend{}
	p, _, _ := newTestPlanner(t, b.handler(), Options{})
	d := NewDialog(p)
	d.Open()

	params := d.Params()
	params.ShortBreakMinutes = 0
	d.SetParams(params)

	_, err := d.Submit(context.Background())
	var verr *models.ValidationError
	if !errors.As(err, &verr) || verr.Field != models.FieldShortBreakMinutes {
		t.Fatalf("expected short break validation error, got %v", err)
	}
	if d.State() != DialogOpen {
		t.Errorf("expected dialog to stay open, got %s", d.State())
	}
	if d.ErrorMessage() == "" {
		t.Error("expected an error message")
	}
	if n := b.generateCalls.Load(); n != 0 {
		t.Errorf("expected no request, got %d", n)
	}
}

func TestDialogRequestFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/schedule/generate", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"detail": "No pending tasks to schedule"}`))
	})
	p, _, _ := newTestPlanner(t, mux, Options{})
	d := NewDialog(p)
	d.Open()

	if _, err := d.Submit(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if d.State() != DialogError || !d.Visible() {
		t.Errorf("expected error state, got %s", d.State())
	}
	if got := d.ErrorMessage(); got != "No pending tasks to schedule" {
		t.Errorf("expected server detail, got %q", got)
	}

	d.Cancel()
	if d.State() != DialogClosed || d.Err() != nil {
		t.Errorf("expected closed dialog without error, got %s (%v)", d.State(), d.Err())
	}
}

func TestDialogRejectsSubmitWhileSubmitting(t *testing.T) {
	b := &fakeBackend{generateGate: make(chan struct{}), entered: make(chan struct{}, 1)}
	p, _, _ := newTestPlanner(t, b.handler(), Options{RefetchDelay: time.Hour})
	d := NewDialog(p)
	d.Open()

	done := make(chan error, 1)
	go func() {
		_, err := d.Submit(context.Background())
		done <- err
	}()
	<-b.entered

	if d.State() != DialogSubmitting {
		t.Errorf("expected submitting, got %s", d.State())
	}
	if _, err := d.Submit(context.Background()); !errors.Is(err, ErrGenerationInProgress) {
		t.Errorf("expected ErrGenerationInProgress, got %v", err)
	}
	d.Cancel()
	if d.State() != DialogSubmitting {
		t.Errorf("expected cancel to be ignored while submitting, got %s", d.State())
	}

	close(b.generateGate)
	if err := <-done; err != nil {
		t.Fatalf("submit: %v", err)
	}
}
