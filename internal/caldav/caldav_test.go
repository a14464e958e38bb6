package caldav

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"studyplan/internal/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const multistatusHeader = `<?xml version="1.0" encoding="utf-8"?>
<d:multistatus xmlns:d="DAV:" xmlns:c="urn:ietf:params:xml:ns:caldav">`

func propfindResponse(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.WriteHeader(http.StatusMultiStatus)
	_, _ = io.WriteString(w, multistatusHeader+body+"</d:multistatus>")
}

// fakeServer answers the discovery PROPFINDs and records PUTs and DELETEs.
type fakeServer struct {
	mu      sync.Mutex
	puts    map[string]string
	deletes []string
	auth    string
}

func (f *fakeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user, pass, _ := r.BasicAuth()
	f.mu.Lock()
	f.auth = user + ":" + pass
	f.mu.Unlock()

	switch {
	case r.Method == "PROPFIND" && r.URL.Path == "/":
		propfindResponse(w, `<d:response><d:href>/</d:href><d:propstat><d:prop>
			<d:current-user-principal><d:href>/principals/alice/</d:href></d:current-user-principal>
			</d:prop><d:status>HTTP/1.1 200 OK</d:status></d:propstat></d:response>`)
	case r.Method == "PROPFIND" && r.URL.Path == "/principals/alice/":
		propfindResponse(w, `<d:response><d:href>/principals/alice/</d:href><d:propstat><d:prop>
			<c:calendar-home-set><d:href>/calendars/alice/</d:href></c:calendar-home-set>
			</d:prop><d:status>HTTP/1.1 200 OK</d:status></d:propstat></d:response>`)
	case r.Method == "PROPFIND" && r.URL.Path == "/calendars/alice/":
		propfindResponse(w, `<d:response><d:href>/calendars/alice/</d:href><d:propstat><d:prop>
			<d:resourcetype><d:collection/></d:resourcetype>
			</d:prop><d:status>HTTP/1.1 200 OK</d:status></d:propstat></d:response>
			<d:response><d:href>/calendars/alice/home/</d:href><d:propstat><d:prop>
			<d:resourcetype><d:collection/><c:calendar/></d:resourcetype><d:displayname>Home</d:displayname>
			</d:prop><d:status>HTTP/1.1 200 OK</d:status></d:propstat></d:response>
			<d:response><d:href>/calendars/alice/study/</d:href><d:propstat><d:prop>
			<d:resourcetype><d:collection/><c:calendar/></d:resourcetype><d:displayname>Study</d:displayname>
			</d:prop><d:status>HTTP/1.1 200 OK</d:status></d:propstat></d:response>`)
	case r.Method == http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.puts[r.URL.Path] = string(body)
		f.mu.Unlock()
		w.Header().Set("ETag", `"1"`)
		w.WriteHeader(http.StatusCreated)
	case r.Method == http.MethodDelete:
		f.mu.Lock()
		f.deletes = append(f.deletes, r.URL.Path)
		f.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "unexpected request", http.StatusMethodNotAllowed)
	}
}

func TestNewClientDiscoversCalendar(t *testing.T) {
	f := &fakeServer{puts: map[string]string{}}
	srv := httptest.NewServer(f)
	defer srv.Close()

	c, err := NewClient(context.Background(), testLogger(), Config{
		Endpoint: srv.URL + "/", Username: "alice", Password: "secret", CalendarName: "study",
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if c.CalendarPath() != "/calendars/alice/study/" {
		t.Errorf("expected study calendar, got %s", c.CalendarPath())
	}
	if f.auth != "alice:secret" {
		t.Errorf("expected basic auth, got %q", f.auth)
	}

	if _, err := NewClient(context.Background(), testLogger(), Config{Endpoint: srv.URL + "/", CalendarName: "work"}); err == nil {
		t.Error("expected error for unknown calendar")
	}
}

func TestPublishEvent(t *testing.T) {
	f := &fakeServer{puts: map[string]string{}}
	srv := httptest.NewServer(f)
	defer srv.Close()

	c, err := NewClient(context.Background(), testLogger(), Config{
		Endpoint: srv.URL + "/", CalendarPath: "/calendars/alice/study/",
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if want := "caldav:" + srv.URL + "/calendars/alice/study/"; c.Name() != want {
		t.Errorf("expected %s, got %s", want, c.Name())
	}

	start := time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)
	ev := models.ScheduleEvent{ID: "1", Title: "Algebra", StartTime: start, EndTime: start.Add(time.Hour)}
	if err := c.PublishEvent(context.Background(), ev, "uid-1"); err != nil {
		t.Fatalf("publish: %v", err)
	}

	body, ok := f.puts["/calendars/alice/study/uid-1.ics"]
	if !ok {
		t.Fatalf("expected PUT to event path, got %v", f.puts)
	}
	for _, want := range []string{"BEGIN:VEVENT", "UID:uid-1", "SUMMARY:Algebra", "DTSTART:20240305T090000Z"} {
		if !strings.Contains(body, want) {
			t.Errorf("expected body to contain %q:\n%s", want, body)
		}
	}
}

func TestNameDistinguishesCalendars(t *testing.T) {
	srv := httptest.NewServer(&fakeServer{puts: map[string]string{}})
	defer srv.Close()

	study, err := NewClient(context.Background(), testLogger(), Config{Endpoint: srv.URL, CalendarPath: "/calendars/alice/study/"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	exams, err := NewClient(context.Background(), testLogger(), Config{Endpoint: srv.URL, CalendarPath: "/calendars/alice/exams/"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if study.Name() == exams.Name() {
		t.Errorf("expected distinct names for distinct calendars, both %s", study.Name())
	}
}

func TestDeleteEvent(t *testing.T) {
	f := &fakeServer{puts: map[string]string{}}
	srv := httptest.NewServer(f)
	defer srv.Close()

	c, err := NewClient(context.Background(), testLogger(), Config{Endpoint: srv.URL, CalendarPath: "/calendars/alice/study/"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if err := c.DeleteEvent(context.Background(), "uid-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(f.deletes) != 1 || f.deletes[0] != "/calendars/alice/study/uid-1.ics" {
		t.Errorf("expected DELETE of the event object, got %v", f.deletes)
	}
}
