package layout

import (
	"time"

	"studyplan/internal/models"
)

// Margin is the gap kept between an event and a neighbour it touches.
const Margin = 2

// Adjacency records whether an event touches another event in the same day.
type Adjacency struct {
	Before bool // some event ends exactly when this one starts
	After  bool // some event starts exactly when this one ends
}

// ResolveAdjacency checks day[i] against every other event of the day.
func ResolveAdjacency(day []models.ScheduleEvent, i int) Adjacency {
	var a Adjacency
	e := day[i]
	for j, f := range day {
		if j == i {
			continue
		}
		if f.EndTime.Equal(e.StartTime) {
			a.Before = true
		}
		if f.StartTime.Equal(e.EndTime) {
			a.After = true
		}
	}
	return a
}

// MarginTop is the top margin applied to the block.
func (a Adjacency) MarginTop() int {
	if a.Before {
		return Margin
	}
	return 0
}

// MarginBottom is the bottom margin applied to the block.
func (a Adjacency) MarginBottom() int {
	if a.After {
		return Margin
	}
	return 0
}

// RenderedHeight subtracts the applied margins from a block height.
func (a Adjacency) RenderedHeight(blockHeight int) int {
	return blockHeight - a.MarginTop() - a.MarginBottom()
}

// Placement is the resolved geometry of one event in its day column.
type Placement struct {
	Event           models.ScheduleEvent
	DurationMinutes int
	Buckets         []int
	Top             float64
	BlockHeight     int
	MarginTop       int
	MarginBottom    int
	Height          int
}

// PlaceDay lays out the events of one day. Events are positioned absolutely
// and may overlap; nothing is reflowed into side-by-side columns.
func (g Grid) PlaceDay(day []models.ScheduleEvent) []Placement {
	out := make([]Placement, 0, len(day))
	for i, e := range day {
		minutes := DurationMinutes(e.StartTime, e.EndTime)
		block := HeightForDuration(minutes)
		adj := ResolveAdjacency(day, i)
		out = append(out, Placement{
			Event:           e,
			DurationMinutes: minutes,
			Buckets:         Buckets(minutes),
			Top:             g.TopOffset(e.StartTime),
			BlockHeight:     block,
			MarginTop:       adj.MarginTop(),
			MarginBottom:    adj.MarginBottom(),
			Height:          adj.RenderedHeight(block),
		})
	}
	return out
}

// EventsOn filters events whose local start date equals day. Events crossing
// midnight belong to their start day only.
func (g Grid) EventsOn(events []models.ScheduleEvent, day time.Time) []models.ScheduleEvent {
	var out []models.ScheduleEvent
	for _, e := range events {
		if g.SameDay(e.StartTime, day) {
			out = append(out, e)
		}
	}
	return out
}
