package model

import (
	"strings"
	"time"
)

// TaskStatus is the board lane a task sits in.
type TaskStatus string

const (
	StatusTodo       TaskStatus = "todo"
	StatusInProgress TaskStatus = "inprogress"
	StatusCompleted  TaskStatus = "completed"
)

// Lanes lists the task statuses in board order.
var Lanes = []TaskStatus{StatusTodo, StatusInProgress, StatusCompleted}

// Valid reports whether s is a known task status.
func (s TaskStatus) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// ParseTaskStatus accepts the canonical labels plus a few aliases typed on
// the command line.
func ParseTaskStatus(s string) (TaskStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "todo":
		return StatusTodo, true
	case "inprogress", "in-progress", "in_progress", "doing":
		return StatusInProgress, true
	case "completed", "done":
		return StatusCompleted, true
	}
	return "", false
}

// MaxTags is the maximum number of tags on a task.
const MaxTags = 10

// Comment is a note left on a task.
type Comment struct {
	UserID    string    `json:"user" bson:"user"`
	Content   string    `json:"content" bson:"content"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// Task is a card on a project's board.
type Task struct {
	ID          string     `json:"id" bson:"_id"`
	ProjectID   string     `json:"project" bson:"project"`
	Title       string     `json:"title" bson:"title"`
	Description string     `json:"description" bson:"description"`
	Status      TaskStatus `json:"status" bson:"status"`
	Priority    Priority   `json:"priority" bson:"priority"`
	AssigneeID  *string    `json:"assignedTo" bson:"assignedTo"`
	CreatorID   string     `json:"createdBy" bson:"createdBy"`
	DueDate     *time.Time `json:"dueDate" bson:"dueDate"`
	Tags        []string   `json:"tags" bson:"tags"`
	Comments    []Comment  `json:"comments" bson:"comments"`
	Position    int64      `json:"position" bson:"position"`
	CreatedAt   time.Time  `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt" bson:"updatedAt"`
}

// IsOverdue reports whether the task is not completed and its due date lies
// before the start of now's day.
func (t *Task) IsOverdue(now time.Time) bool {
	if t.DueDate == nil || t.Status == StatusCompleted {
		return false
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return t.DueDate.Before(today)
}

// IsDue reports whether the task is due today or overdue.
func (t *Task) IsDue(now time.Time) bool {
	if t.DueDate == nil || t.Status == StatusCompleted {
		return false
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return t.DueDate.Before(today.Add(24 * time.Hour))
}

// TaskStats counts tasks per lane.
type TaskStats struct {
	Total      int `json:"total"`
	Todo       int `json:"todo"`
	InProgress int `json:"inProgress"`
	Completed  int `json:"completed"`
}

// Add counts one task with the given status.
func (s *TaskStats) Add(status TaskStatus, n int) {
	s.Total += n
	switch status {
	case StatusTodo:
		s.Todo += n
	case StatusInProgress:
		s.InProgress += n
	case StatusCompleted:
		s.Completed += n
	}
}

// Progress returns the completed share as a rounded percentage.
func (s TaskStats) Progress() int {
	if s.Total == 0 {
		return 0
	}
	return int((float64(s.Completed)/float64(s.Total))*100 + 0.5)
}
