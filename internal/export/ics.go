// Package export converts schedule events to iCalendar.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-ical"
	"github.com/google/uuid"

	"studyplan/internal/models"
)

// ProductID identifies calendars produced by this program.
const ProductID = "-//studyplan//EN"

// uidNamespace scopes the name-based UUIDs derived from event IDs.
var uidNamespace = uuid.MustParse("6f1c1c43-8f4e-4b55-9d35-5b7c2f3d8a10")

// UID returns a stable iCalendar UID for e, so repeated exports update rather
// than duplicate events in the importing calendar.
func UID(e models.ScheduleEvent) string {
	return uuid.NewSHA1(uidNamespace, []byte(e.ID)).String()
}

// NewCalendar returns an empty VCALENDAR with the mandatory properties set.
func NewCalendar() *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, ProductID)
	return cal
}

// Event converts e to a VEVENT with the given UID.
func Event(e models.ScheduleEvent, uid, subjectName string, stamp time.Time) *ical.Component {
	ve := ical.NewComponent(ical.CompEvent)
	ve.Props.SetText(ical.PropUID, uid)
	ve.Props.SetText(ical.PropSummary, e.Title)
	ve.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())
	ve.Props.SetDateTime(ical.PropDateTimeStart, e.StartTime.UTC())
	ve.Props.SetDateTime(ical.PropDateTimeEnd, e.EndTime.UTC())

	if e.Description != "" {
		ve.Props.SetText(ical.PropDescription, e.Description)
	}
	if subjectName != "" {
		ve.Props.SetText(ical.PropCategories, subjectName)
	}
	if e.Color != "" {
		ve.Props.SetText("COLOR", e.Color)
	}
	return ve
}

// Calendar builds a VCALENDAR holding one VEVENT per event.
func Calendar(events []models.ScheduleEvent, subjects map[string]models.Subject) *ical.Calendar {
	cal := NewCalendar()
	now := time.Now()
	for _, e := range events {
		cal.Children = append(cal.Children, Event(e, UID(e), subjects[e.SubjectID].Name, now))
	}
	return cal
}

// WriteICS encodes events as an .ics document.
func WriteICS(w io.Writer, events []models.ScheduleEvent, subjects map[string]models.Subject) error {
	if len(events) == 0 {
		return fmt.Errorf("no events to export")
	}
	if err := ical.NewEncoder(w).Encode(Calendar(events, subjects)); err != nil {
		return fmt.Errorf("failed to encode calendar: %w", err)
	}
	return nil
}
