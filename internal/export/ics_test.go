package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-ical"

	"studyplan/internal/models"
)

func TestWriteICS(t *testing.T) {
	start := time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)
	events := []models.ScheduleEvent{
		{ID: "1", SubjectID: "2", Title: "Algebra", Description: "Chapter 3", StartTime: start, EndTime: start.Add(time.Hour)},
		{ID: "2", Title: "Break", StartTime: start.Add(time.Hour), EndTime: start.Add(75 * time.Minute), Color: "gray"},
	}
	subjects := map[string]models.Subject{"2": {ID: "2", Name: "Math"}}

	var buf bytes.Buffer
	if err := WriteICS(&buf, events, subjects); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "PRODID:"+ProductID) {
		t.Errorf("expected product id in output:\n%s", out)
	}
	if !strings.Contains(out, "CATEGORIES:Math") {
		t.Errorf("expected subject category in output:\n%s", out)
	}

	cal, err := ical.NewDecoder(&buf).Decode()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	vevents := cal.Events()
	if len(vevents) != 2 {
		t.Fatalf("expected 2 events, got %d", len(vevents))
	}
	for i, ve := range vevents {
		uid, err := ve.Props.Text(ical.PropUID)
		if err != nil || uid != UID(events[i]) {
			t.Errorf("expected uid %s, got %q (%v)", UID(events[i]), uid, err)
		}
		got, err := ve.DateTimeStart(time.UTC)
		if err != nil {
			t.Fatalf("dtstart: %v", err)
		}
		if !got.Equal(events[i].StartTime) {
			t.Errorf("expected start %v, got %v", events[i].StartTime, got)
		}
		end, err := ve.DateTimeEnd(time.UTC)
		if err != nil {
			t.Fatalf("dtend: %v", err)
		}
		if !end.Equal(events[i].EndTime) {
			t.Errorf("expected end %v, got %v", events[i].EndTime, end)
		}
	}
}

func TestWriteICSRejectsEmptyWeek(t *testing.T) {
	if err := WriteICS(&bytes.Buffer{}, nil, nil); err == nil {
		t.Fatal("expected error for empty export")
	}
}

func TestUIDIsStable(t *testing.T) {
	a := UID(models.ScheduleEvent{ID: "42"})
	b := UID(models.ScheduleEvent{ID: "42", Title: "renamed"})
	c := UID(models.ScheduleEvent{ID: "43"})
	if a != b {
		t.Errorf("expected same uid for same id, got %s and %s", a, b)
	}
	if a == c {
		t.Errorf("expected different uids for different ids")
	}
}
