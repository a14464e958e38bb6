package publish

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"studyplan/internal/caldav"
	"studyplan/internal/models"
	"studyplan/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeTarget struct {
	mu      sync.Mutex
	uids    map[string]string // event ID -> uid of the last write
	puts    int
	deleted []string
	fail    bool
}

func (f *fakeTarget) Name() string { return "fake" }

func (f *fakeTarget) DeleteEvent(_ context.Context, uid string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("target unavailable")
	}
	f.deleted = append(f.deleted, uid)
	return nil
}

func (f *fakeTarget) PublishEvent(_ context.Context, e models.ScheduleEvent, uid string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("target unavailable")
	}
	f.puts++
	f.uids[e.ID] = uid
	return nil
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "studyplan.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	st := store.NewStore(db).ForAccount("1")
	t.Cleanup(func() { _ = st.Close() })
	return st
}

var weekStart = time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

func weekSource(events *[]models.ScheduleEvent) Source {
	return func(context.Context) (Batch, error) {
		return Batch{From: weekStart, To: weekStart.AddDate(0, 0, 7), Events: *events}, nil
	}
}

func testEvents() []models.ScheduleEvent {
	start := time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)
	return []models.ScheduleEvent{
		{ID: "1", Title: "Algebra", StartTime: start, EndTime: start.Add(time.Hour)},
		{ID: "2", Title: "Break", StartTime: start.Add(time.Hour), EndTime: start.Add(75 * time.Minute)},
	}
}

func TestPublishSkipsAlreadyPublished(t *testing.T) {
	st := newTestStore(t)
	target := &fakeTarget{uids: map[string]string{}}
	events := testEvents()
	p := NewPublisher(testLogger(), weekSource(&events), target, st, false, time.UTC)

	res, err := p.Publish(context.Background())
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if res.Published != 2 || res.Skipped != 0 {
		t.Errorf("expected 2 published, got %+v", res)
	}
	firstUID := target.uids["1"]

	res, err = p.Publish(context.Background())
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if res.Published != 0 || res.Skipped != 2 {
		t.Errorf("expected 2 skipped, got %+v", res)
	}
	if target.puts != 2 {
		t.Errorf("expected 2 writes, got %d", target.puts)
	}

	events[0].EndTime = events[0].EndTime.Add(30 * time.Minute)
	res, err = p.Publish(context.Background())
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if res.Published != 1 || res.Skipped != 1 {
		t.Errorf("expected changed event to be republished, got %+v", res)
	}
	if target.uids["1"] != firstUID {
		t.Errorf("expected republish to keep uid %s, got %s", firstUID, target.uids["1"])
	}
}

func TestPublishDryRunDoesNotWrite(t *testing.T) {
	st := newTestStore(t)
	target := &fakeTarget{uids: map[string]string{}}
	events := testEvents()
	source := weekSource(&events)
	p := NewPublisher(testLogger(), source, target, st, true, time.UTC)

	res, err := p.Publish(context.Background())
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if res.Published != 2 || target.puts != 0 {
		t.Errorf("expected 2 dry-run publishes and no writes, got %+v with %d writes", res, target.puts)
	}
	n, err := st.CountPublications(context.Background(), "fake")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Errorf("expected no publish state in dry run, got %d", n)
	}
}

func TestPublishContinuesAfterFailure(t *testing.T) {
	st := newTestStore(t)
	target := &fakeTarget{uids: map[string]string{}, fail: true}
	events := testEvents()
	source := weekSource(&events)
	p := NewPublisher(testLogger(), source, target, st, false, time.UTC)

	res, err := p.Publish(context.Background())
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if res.Failed != 2 {
		t.Errorf("expected 2 failures, got %+v", res)
	}
}

func TestPublishSourceError(t *testing.T) {
	st := newTestStore(t)
	source := func(context.Context) (Batch, error) { return Batch{}, errors.New("offline") }
	p := NewPublisher(testLogger(), source, &fakeTarget{uids: map[string]string{}}, st, false, nil)

	if _, err := p.Publish(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestFingerprint(t *testing.T) {
	events := testEvents()
	a := Fingerprint(events[0])
	if a != Fingerprint(events[0]) {
		t.Error("expected stable fingerprint")
	}
	changed := events[0]
	changed.Title = "Geometry"
	if a == Fingerprint(changed) {
		t.Error("expected fingerprint to change with the title")
	}
}

func TestWatch(t *testing.T) {
	st := newTestStore(t)
	source := func(context.Context) (Batch, error) { return Batch{}, nil }
	p := NewPublisher(testLogger(), source, &fakeTarget{uids: map[string]string{}}, st, false, nil)

	if err := p.Watch(context.Background(), "not a schedule"); err == nil {
		t.Error("expected error for invalid schedule")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.Watch(ctx, "*/15 * * * *"); err != nil {
		t.Errorf("expected clean stop, got %v", err)
	}
}

func TestPublishRemovesEventsDroppedFromWeek(t *testing.T) {
	st := newTestStore(t)
	target := &fakeTarget{uids: map[string]string{}}
	events := testEvents()
	p := NewPublisher(testLogger(), weekSource(&events), target, st, false, time.UTC)
	ctx := context.Background()

	// An event of another week must survive pruning of this one.
	nextWeek := time.Date(2024, 3, 12, 9, 0, 0, 0, time.UTC)
	if err := st.SavePublication(ctx, store.Publication{Target: "fake", EventID: "9", RemoteUID: "uid-9", Fingerprint: "x", StartsAt: nextWeek}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if _, err := p.Publish(ctx); err != nil {
		t.Fatalf("publish: %v", err)
	}
	droppedUID := target.uids["2"]

	events = events[:1]
	res, err := p.Publish(ctx)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if res.Removed != 1 || res.Skipped != 1 {
		t.Errorf("expected 1 removed and 1 skipped, got %+v", res)
	}
	if len(target.deleted) != 1 || target.deleted[0] != droppedUID {
		t.Errorf("expected %s to be deleted, got %v", droppedUID, target.deleted)
	}
	if _, err := st.GetPublication(ctx, "fake", "2"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected publish state of the dropped event to be gone, got %v", err)
	}
	if _, err := st.GetPublication(ctx, "fake", "9"); err != nil {
		t.Errorf("expected other week's publication to remain, got %v", err)
	}

	res, err = p.Publish(ctx)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if res.Removed != 0 || len(target.deleted) != 1 {
		t.Errorf("expected nothing left to remove, got %+v and %v", res, target.deleted)
	}
}

func TestPublishDryRunDoesNotRemove(t *testing.T) {
	st := newTestStore(t)
	target := &fakeTarget{uids: map[string]string{}}
	events := testEvents()
	ctx := context.Background()
	if _, err := NewPublisher(testLogger(), weekSource(&events), target, st, false, time.UTC).Publish(ctx); err != nil {
		t.Fatalf("publish: %v", err)
	}

	events = nil
	res, err := NewPublisher(testLogger(), weekSource(&events), target, st, true, time.UTC).Publish(ctx)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if res.Removed != 2 || len(target.deleted) != 0 {
		t.Errorf("expected 2 dry-run removals and no deletes, got %+v and %v", res, target.deleted)
	}
	if n, _ := st.CountPublications(ctx, "fake"); n != 2 {
		t.Errorf("expected publish state untouched in dry run, got %d", n)
	}
}

func TestPublishToSecondCalDAVCalendar(t *testing.T) {
	var mu sync.Mutex
	puts := map[string]int{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			http.Error(w, "unexpected request", http.StatusMethodNotAllowed)
			return
		}
		mu.Lock()
		puts[path.Dir(r.URL.Path)]++
		mu.Unlock()
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	st := newTestStore(t)
	events := testEvents()
	ctx := context.Background()
	for _, calendarPath := range []string{"/calendars/alice/study", "/calendars/alice/exams"} {
		target, err := caldav.NewClient(ctx, testLogger(), caldav.Config{Endpoint: srv.URL, CalendarPath: calendarPath})
		if err != nil {
			t.Fatalf("new client: %v", err)
		}
		res, err := NewPublisher(testLogger(), weekSource(&events), target, st, false, time.UTC).Publish(ctx)
		if err != nil {
			t.Fatalf("publish: %v", err)
		}
		if res.Published != 2 {
			t.Errorf("expected both events published to %s, got %+v", calendarPath, res)
		}
	}
	if puts["/calendars/alice/study"] != 2 || puts["/calendars/alice/exams"] != 2 {
		t.Errorf("expected two writes per calendar, got %v", puts)
	}
}
