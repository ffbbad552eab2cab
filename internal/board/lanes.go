package board

import (
	"sort"

	"github.com/existflow/projectmate/internal/model"
)

// Lane is one status column of a board.
type Lane struct {
	Status model.TaskStatus
	Tasks  []model.Task
}

// GroupLanes splits tasks into the three status lanes in board order. Each
// lane is sorted by position ascending, newest first on ties.
func GroupLanes(tasks []model.Task) []Lane {
	lanes := make([]Lane, len(model.Lanes))
	index := make(map[model.TaskStatus]int, len(model.Lanes))
	for i, status := range model.Lanes {
		lanes[i] = Lane{Status: status, Tasks: []model.Task{}}
		index[status] = i
	}
	for _, t := range tasks {
		i, ok := index[t.Status]
		if !ok {
			continue
		}
		lanes[i].Tasks = append(lanes[i].Tasks, t)
	}
	for i := range lanes {
		SortTasks(lanes[i].Tasks)
	}
	return lanes
}

// SortTasks orders tasks by position ascending, then creation time
// descending, then id.
func SortTasks(tasks []model.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		if a.Position != b.Position {
			return a.Position < b.Position
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

// LaneLabel returns the display title of a lane.
func LaneLabel(status model.TaskStatus) string {
	switch status {
	case model.StatusTodo:
		return "To Do"
	case model.StatusInProgress:
		return "In Progress"
	case model.StatusCompleted:
		return "Completed"
	default:
		return string(status)
	}
}
