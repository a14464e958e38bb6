package models

import "time"

// Subject is a field of study that tasks and events can be attached to.
type Subject struct {
	ID          string
	Name        string
	Description string
	Color       string
}

// TaskStatus is the workflow state of a task.
type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusDone       TaskStatus = "done"
)

// TaskPriority orders tasks with the same deadline during generation.
type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
	PriorityUrgent TaskPriority = "urgent"
)

// Valid reports whether p is one of the priorities the backend accepts.
func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Task is a unit of study work with a deadline.
type Task struct {
	ID               string
	SubjectID        string
	Title            string
	Description      string
	Status           TaskStatus
	Priority         TaskPriority
	Deadline         time.Time
	EstimatedMinutes int
}

// User is the authenticated account.
type User struct {
	ID       string
	Email    string
	Username string
}

// SubjectStats summarises progress for one subject.
type SubjectStats struct {
	SubjectName    string
	TasksCompleted int
	HoursSpent     float64
}

// DayProgress summarises progress for one weekday.
type DayProgress struct {
	Day            string
	TasksCompleted int
	HoursSpent     float64
}

// Statistics is the progress summary for a period.
type Statistics struct {
	TotalTasks     int
	CompletedTasks int
	PendingTasks   int
	CompletionRate float64
	TotalHours     float64
	Subjects       []SubjectStats
	Weekly         []DayProgress
}
