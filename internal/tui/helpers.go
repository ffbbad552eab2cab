package tui

import (
	"github.com/existflow/projectmate/internal/board"
	"github.com/existflow/projectmate/internal/model"
	"github.com/existflow/projectmate/internal/view"
)

// truncate shortens a string to max runes with ellipsis
func truncate(s string, max int) string {
	r := []rune(s)
	if max < 4 || len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}

// repeat creates a string by repeating s n times
func repeat(s string, n int) string {
	result := ""
	for i := 0; i < n; i++ {
		result += s
	}
	return result
}

// swapItems returns the reorder items that swap the tasks at i and j in a
// lane and renumber the whole lane 1..n.
func swapItems(tasks []view.Task, i, j int) []board.ReorderItem {
	order := make([]string, len(tasks))
	for k, t := range tasks {
		order[k] = t.ID
	}
	order[i], order[j] = order[j], order[i]

	items := make([]board.ReorderItem, len(order))
	for k, id := range order {
		items[k] = board.ReorderItem{TaskID: id, Position: int64(k + 1)}
	}
	return items
}

// neighborLane returns the status next to s in direction dir (-1 or 1).
func neighborLane(s model.TaskStatus, dir int) (model.TaskStatus, bool) {
	for i, status := range model.Lanes {
		if status != s {
			continue
		}
		j := i + dir
		if j < 0 || j >= len(model.Lanes) {
			return "", false
		}
		return model.Lanes[j], true
	}
	return "", false
}
