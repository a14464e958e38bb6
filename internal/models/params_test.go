package models

import (
	"errors"
	"testing"
	"time"
)

func TestGenerateScheduleParamsValidate(t *testing.T) {
	end := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		mutate    func(p *GenerateScheduleParams)
		wantField string
	}{
		{name: "defaults without end date", mutate: func(p *GenerateScheduleParams) {}},
		{name: "with end date", mutate: func(p *GenerateScheduleParams) { p.EndDate = &end }},
		{name: "short break zero", mutate: func(p *GenerateScheduleParams) { p.ShortBreakMinutes = 0 }, wantField: FieldShortBreakMinutes},
		{name: "short break upper bound", mutate: func(p *GenerateScheduleParams) { p.ShortBreakMinutes = 60 }},
		{name: "medium break too long", mutate: func(p *GenerateScheduleParams) { p.MediumBreakMinutes = 61 }, wantField: FieldMediumBreakMinutes},
		{name: "long break upper bound", mutate: func(p *GenerateScheduleParams) { p.LongBreakMinutes = 120 }},
		{name: "long break too long", mutate: func(p *GenerateScheduleParams) { p.LongBreakMinutes = 121 }, wantField: FieldLongBreakMinutes},
		{name: "threshold too short", mutate: func(p *GenerateScheduleParams) { p.LongBreakAfterMinutes = 14 }, wantField: FieldLongBreakAfterMinutes},
		{name: "threshold too long", mutate: func(p *GenerateScheduleParams) { p.LongBreakAfterMinutes = 500 }, wantField: FieldLongBreakAfterMinutes},
		{
			name: "first violation wins",
			mutate: func(p *GenerateScheduleParams) {
				p.MediumBreakMinutes = 0
				p.LongBreakAfterMinutes = 500
			},
			wantField: FieldMediumBreakMinutes,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultGenerateScheduleParams()
			tt.mutate(&p)
			err := p.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("expected params to be valid, got %v", err)
				}
				return
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Field != tt.wantField {
				t.Errorf("expected field %q, got %q", tt.wantField, verr.Field)
			}
		})
	}
}

func TestTaskPriorityValid(t *testing.T) {
	if !PriorityUrgent.Valid() {
		t.Errorf("expected urgent to be valid")
	}
	if TaskPriority("critical").Valid() {
		t.Errorf("expected critical to be invalid")
	}
}
