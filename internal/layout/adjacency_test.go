package layout

import (
	"testing"
	"time"

	"studyplan/internal/models"
)

func TestResolveAdjacencyBackToBack(t *testing.T) {
	a := event("a", at(12, 10, 0), at(12, 11, 0))
	b := event("b", at(12, 11, 0), at(12, 12, 0))
	day := []models.ScheduleEvent{a, b}

	adjA := ResolveAdjacency(day, 0)
	if !adjA.After || adjA.Before {
		t.Errorf("expected A to have only an event after, got %+v", adjA)
	}
	adjB := ResolveAdjacency(day, 1)
	if !adjB.Before || adjB.After {
		t.Errorf("expected B to have only an event before, got %+v", adjB)
	}

	block := HeightForDuration(60)
	if got := adjA.RenderedHeight(block); got != block-2 {
		t.Errorf("expected rendered height %d, got %d", block-2, got)
	}
}

func TestResolveAdjacencyGapIsNotAdjacent(t *testing.T) {
	a := event("a", at(12, 10, 0), at(12, 11, 0))
	b := event("b", at(12, 11, 5), at(12, 12, 0))
	day := []models.ScheduleEvent{a, b}
	if adj := ResolveAdjacency(day, 0); adj.After || adj.Before {
		t.Errorf("expected no adjacency, got %+v", adj)
	}
}

func TestResolveAdjacencyComparesInstants(t *testing.T) {
	loc := time.FixedZone("UTC+1", 60*60)
	a := event("a", at(12, 10, 0), at(12, 11, 0))
	b := event("b", at(12, 11, 0).In(loc), at(12, 12, 0).In(loc))
	if adj := ResolveAdjacency([]models.ScheduleEvent{a, b}, 0); !adj.After {
		t.Errorf("expected equal instants in different zones to touch")
	}
}

func TestPlaceDaySandwichedEvent(t *testing.T) {
	g := NewGrid(120, time.UTC)
	day := []models.ScheduleEvent{
		event("a", at(12, 9, 0), at(12, 9, 30)),
		event("b", at(12, 9, 30), at(12, 10, 0)),
		event("c", at(12, 10, 0), at(12, 11, 30)),
	}
	placed := g.PlaceDay(day)
	if len(placed) != 3 {
		t.Fatalf("expected 3 placements, got %d", len(placed))
	}

	mid := placed[1]
	if mid.MarginTop != 2 || mid.MarginBottom != 2 {
		t.Errorf("expected both margins on the middle block, got %d/%d", mid.MarginTop, mid.MarginBottom)
	}
	if mid.Height != 60-4 {
		t.Errorf("expected height 56, got %d", mid.Height)
	}
	if mid.Top != 9*120+30*2 {
		t.Errorf("expected top 1140, got %v", mid.Top)
	}

	last := placed[2]
	if last.DurationMinutes != 90 || last.BlockHeight != 180 {
		t.Errorf("expected 90 minutes at 180px, got %d at %dpx", last.DurationMinutes, last.BlockHeight)
	}
	if last.Height != 178 {
		t.Errorf("expected rendered height 178, got %d", last.Height)
	}
}

func TestPlaceDayOverlapsAreNotReflowed(t *testing.T) {
	g := NewGrid(120, time.UTC)
	day := []models.ScheduleEvent{
		event("a", at(12, 9, 0), at(12, 10, 0)),
		event("b", at(12, 9, 30), at(12, 10, 30)),
	}
	placed := g.PlaceDay(day)
	if placed[0].Top != 1080 || placed[1].Top != 1140 {
		t.Errorf("expected overlapping events at their own offsets, got %v and %v", placed[0].Top, placed[1].Top)
	}
}
