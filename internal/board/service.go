// Package board implements the task board: task creation with monotonic
// positions, status and position changes, bulk reordering, deletion,
// comments and ordered listing.
package board

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/existflow/projectmate/internal/access"
	"github.com/existflow/projectmate/internal/apperr"
	"github.com/existflow/projectmate/internal/logger"
	"github.com/existflow/projectmate/internal/model"
	"github.com/existflow/projectmate/internal/pagination"
	"github.com/existflow/projectmate/internal/store"
)

const (
	minTitle       = 2
	maxTitle       = 200
	maxDescription = 1000
	maxComment     = 1000
)

// Service runs board operations against a store.
type Service struct {
	store store.Store
	now   func() time.Time
	newID func() string
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides task id generation.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

// NewService creates a board service.
func NewService(st store.Store, opts ...Option) *Service {
	s := &Service{store: st, now: time.Now, newID: uuid.NewString}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateTaskInput describes a new task.
type CreateTaskInput struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Priority    model.Priority `json:"priority"`
	AssigneeID  *string        `json:"assignedTo"`
	DueDate     *time.Time     `json:"dueDate"`
	Tags        []string       `json:"tags"`
}

// TaskPatch is a partial task update. Omitted fields are left unchanged; a
// JSON null clears optional fields.
type TaskPatch struct {
	Title       model.Field[string]           `json:"title,omitzero"`
	Description model.Field[string]           `json:"description,omitzero"`
	Status      model.Field[model.TaskStatus] `json:"status,omitzero"`
	Priority    model.Field[model.Priority]   `json:"priority,omitzero"`
	AssigneeID  model.Field[*string]          `json:"assignedTo,omitzero"`
	DueDate     model.Field[*time.Time]       `json:"dueDate,omitzero"`
	Tags        model.Field[[]string]         `json:"tags,omitzero"`
}

// MoveInput sets a task's status, position or both.
type MoveInput struct {
	Status   *model.TaskStatus `json:"status"`
	Position *int64            `json:"position"`
}

// ReorderItem places one task during a bulk reorder.
type ReorderItem struct {
	TaskID   string            `json:"id"`
	Position int64             `json:"position"`
	Status   *model.TaskStatus `json:"status,omitempty"`
}

// ItemResult reports the outcome of one reorder item.
type ItemResult struct {
	TaskID string      `json:"id"`
	OK     bool        `json:"ok"`
	Task   *model.Task `json:"task,omitempty"`
	Code   apperr.Code `json:"code,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// ReorderResult lists per-item outcomes in request order.
type ReorderResult struct {
	Results   []ItemResult `json:"results"`
	Succeeded int          `json:"succeeded"`
	Failed    int          `json:"failed"`
}

// ListInput filters and pages a task listing.
type ListInput struct {
	Status     model.TaskStatus
	AssigneeID string
	Priority   model.Priority
	Page       int
	Limit      int
}

// ListResult is one page of tasks.
type ListResult struct {
	Tasks []model.Task
	Page  pagination.Page
}

func normalizeTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if n := len([]rune(title)); n < minTitle || n > maxTitle {
		return "", apperr.Validationf("task title must be between %d and %d characters", minTitle, maxTitle)
	}
	return title, nil
}

func normalizeDescription(description string) (string, error) {
	description = strings.TrimSpace(description)
	if len([]rune(description)) > maxDescription {
		return "", apperr.Validationf("description cannot exceed %d characters", maxDescription)
	}
	return description, nil
}

func normalizeTags(tags []string) ([]string, error) {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			out = append(out, tag)
		}
	}
	if len(out) > model.MaxTags {
		return nil, apperr.Validationf("cannot have more than %d tags", model.MaxTags)
	}
	return out, nil
}

func validateAssignee(p model.Project, assigneeID *string) error {
	if assigneeID == nil {
		return nil
	}
	if access.ResolveRole(p, *assigneeID) == model.RoleNone {
		return apperr.Validation("assignee must be a member of the project")
	}
	return nil
}

// NormalizeCreateTaskInput trims and validates new task input.
func NormalizeCreateTaskInput(in CreateTaskInput) (CreateTaskInput, error) {
	var err error
	if in.Title, err = normalizeTitle(in.Title); err != nil {
		return CreateTaskInput{}, err
	}
	if in.Description, err = normalizeDescription(in.Description); err != nil {
		return CreateTaskInput{}, err
	}
	if in.Priority == "" {
		in.Priority = model.PriorityMedium
	}
	if !in.Priority.Valid() {
		return CreateTaskInput{}, apperr.Validation("priority must be low, medium or high")
	}
	if in.Tags, err = normalizeTags(in.Tags); err != nil {
		return CreateTaskInput{}, err
	}
	if in.AssigneeID != nil && strings.TrimSpace(*in.AssigneeID) == "" {
		in.AssigneeID = nil
	}
	return in, nil
}

// CreateTask adds a task at the end of the project's board: its position is
// one past the highest existing position, or 1 for an empty project.
func (s *Service) CreateTask(ctx context.Context, actorID, projectID string, in CreateTaskInput) (model.Task, error) {
	in, err := NormalizeCreateTaskInput(in)
	if err != nil {
		return model.Task{}, err
	}
	project, err := s.loadProject(ctx, s.store, projectID)
	if err != nil {
		return model.Task{}, err
	}
	if err := access.AuthorizeProject(project, actorID, access.ActionCreateTask); err != nil {
		return model.Task{}, err
	}
	if err := validateAssignee(project, in.AssigneeID); err != nil {
		return model.Task{}, err
	}

	now := s.now().UTC()
	task := model.Task{
		ID:          s.newID(),
		ProjectID:   project.ID,
		Title:       in.Title,
		Description: in.Description,
		Status:      model.StatusTodo,
		Priority:    in.Priority,
		AssigneeID:  in.AssigneeID,
		CreatorID:   actorID,
		DueDate:     in.DueDate,
		Tags:        in.Tags,
		Comments:    []model.Comment{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = s.store.WithinTx(ctx, func(r store.Repository) error {
		last, ok, err := r.MaxTaskPosition(ctx, project.ID)
		if err != nil {
			return err
		}
		task.Position = 1
		if ok {
			task.Position = last + 1
		}
		if err := r.CreateTask(ctx, task); err != nil {
			return fmt.Errorf("create task: %w", err)
		}
		if err := r.AppendProjectTask(ctx, project.ID, task.ID); err != nil {
			return fmt.Errorf("append task to project: %w", err)
		}
		return nil
	})
	if err != nil {
		return model.Task{}, err
	}

	logger.Info("Task created",
		logger.F("task", task.ID),
		logger.F("project", project.ID),
		logger.F("position", task.Position))
	return task, nil
}

// GetTask returns a task to a member of its project.
func (s *Service) GetTask(ctx context.Context, actorID, taskID string) (model.Task, error) {
	task, _, err := s.loadTaskForAction(ctx, actorID, taskID, access.ActionViewTask)
	return task, err
}

// ListTasks lists a project's tasks ordered by position, newest first
// within equal positions.
func (s *Service) ListTasks(ctx context.Context, actorID, projectID string, in ListInput) (ListResult, error) {
	if in.Status != "" && !in.Status.Valid() {
		return ListResult{}, apperr.Validationf("unknown task status %q", in.Status)
	}
	if in.Priority != "" && !in.Priority.Valid() {
		return ListResult{}, apperr.Validationf("unknown priority %q", in.Priority)
	}
	project, err := s.loadProject(ctx, s.store, projectID)
	if err != nil {
		return ListResult{}, err
	}
	if err := access.AuthorizeProject(project, actorID, access.ActionViewTask); err != nil {
		return ListResult{}, err
	}

	q := store.TaskQuery{ProjectID: project.ID, Status: in.Status, AssigneeID: in.AssigneeID, Priority: in.Priority}
	total, err := s.store.CountTasks(ctx, q)
	if err != nil {
		return ListResult{}, fmt.Errorf("count tasks: %w", err)
	}
	page := pagination.Tasks.Compute(pagination.Request{Page: in.Page, Limit: in.Limit}, total)
	q.Skip, q.Limit = page.Skip, page.PageSize

	tasks, err := s.store.ListTasks(ctx, q)
	if err != nil {
		return ListResult{}, fmt.Errorf("list tasks: %w", err)
	}
	return ListResult{Tasks: tasks, Page: page}, nil
}

// UpdateTask applies a partial update.
func (s *Service) UpdateTask(ctx context.Context, actorID, taskID string, patch TaskPatch) (model.Task, error) {
	task, project, err := s.loadTaskForAction(ctx, actorID, taskID, access.ActionUpdateTask)
	if err != nil {
		return model.Task{}, err
	}

	if v, ok := patch.Title.Get(); ok {
		if task.Title, err = normalizeTitle(v); err != nil {
			return model.Task{}, err
		}
	}
	if v, ok := patch.Description.Get(); ok {
		if task.Description, err = normalizeDescription(v); err != nil {
			return model.Task{}, err
		}
	}
	if v, ok := patch.Status.Get(); ok {
		if !v.Valid() {
			return model.Task{}, apperr.Validation("status must be todo, inprogress or completed")
		}
		task.Status = v
	}
	if v, ok := patch.Priority.Get(); ok {
		if !v.Valid() {
			return model.Task{}, apperr.Validation("priority must be low, medium or high")
		}
		task.Priority = v
	}
	if v, ok := patch.AssigneeID.Get(); ok {
		if v != nil && strings.TrimSpace(*v) == "" {
			v = nil
		}
		if err := validateAssignee(project, v); err != nil {
			return model.Task{}, err
		}
		task.AssigneeID = v
	}
	if v, ok := patch.DueDate.Get(); ok {
		task.DueDate = v
	}
	if v, ok := patch.Tags.Get(); ok {
		if task.Tags, err = normalizeTags(v); err != nil {
			return model.Task{}, err
		}
	}

	task.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateTask(ctx, task); err != nil {
		return model.Task{}, s.taskWriteError(err)
	}
	logger.Info("Task updated", logger.F("task", task.ID), logger.F("by", actorID))
	return task, nil
}

// SetStatusAndPosition sets the task's status and/or position. Sibling
// positions are not renumbered.
func (s *Service) SetStatusAndPosition(ctx context.Context, actorID, taskID string, in MoveInput) (model.Task, error) {
	if in.Status == nil && in.Position == nil {
		return model.Task{}, apperr.Validation("status or position is required")
	}
	if in.Status != nil && !in.Status.Valid() {
		return model.Task{}, apperr.Validation("status must be todo, inprogress or completed")
	}
	task, _, err := s.loadTaskForAction(ctx, actorID, taskID, access.ActionUpdateTask)
	if err != nil {
		return model.Task{}, err
	}

	if in.Status != nil {
		task.Status = *in.Status
	}
	if in.Position != nil {
		task.Position = *in.Position
	}
	task.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateTask(ctx, task); err != nil {
		return model.Task{}, s.taskWriteError(err)
	}

	logger.Info("Task moved",
		logger.F("task", task.ID),
		logger.F("status", task.Status),
		logger.F("position", task.Position))
	return task, nil
}

// BulkReorder assigns positions (and optionally statuses) to several tasks
// of one project. Items are applied independently: a failing item does not
// undo the others. Items naming a task of another project fail as not found.
func (s *Service) BulkReorder(ctx context.Context, actorID, projectID string, items []ReorderItem) (ReorderResult, error) {
	if len(items) == 0 {
		return ReorderResult{}, apperr.Validation("tasks array is required")
	}
	project, err := s.loadProject(ctx, s.store, projectID)
	if err != nil {
		return ReorderResult{}, err
	}
	if err := access.AuthorizeProject(project, actorID, access.ActionReorderTasks); err != nil {
		return ReorderResult{}, err
	}

	now := s.now().UTC()
	result := ReorderResult{Results: make([]ItemResult, 0, len(items))}
	for _, item := range items {
		task, err := s.reorderOne(ctx, project.ID, item, now)
		res := ItemResult{TaskID: item.TaskID, OK: err == nil}
		if err != nil {
			res.Code = apperr.CodeOf(err)
			res.Error = apperr.MessageOf(err)
			result.Failed++
			if apperr.KindOf(err) == apperr.KindInternal {
				logger.Error("Failed to reorder task", logger.F("task", item.TaskID), logger.Err(err))
			}
		} else {
			res.Task = &task
			result.Succeeded++
		}
		result.Results = append(result.Results, res)
	}

	logger.Info("Tasks reordered",
		logger.F("project", project.ID),
		logger.F("succeeded", result.Succeeded),
		logger.F("failed", result.Failed))
	return result, nil
}

func (s *Service) reorderOne(ctx context.Context, projectID string, item ReorderItem, now time.Time) (model.Task, error) {
	if item.Status != nil && !item.Status.Valid() {
		return model.Task{}, apperr.Validation("status must be todo, inprogress or completed")
	}
	task, err := s.store.GetTask(ctx, item.TaskID)
	if errors.Is(err, store.ErrNotFound) || (err == nil && task.ProjectID != projectID) {
		return model.Task{}, apperr.NotFound(apperr.CodeTaskNotFound, "task not found")
	}
	if err != nil {
		return model.Task{}, fmt.Errorf("load task: %w", err)
	}

	task.Position = item.Position
	if item.Status != nil {
		task.Status = *item.Status
	}
	task.UpdatedAt = now
	if err := s.store.UpdateTask(ctx, task); err != nil {
		return model.Task{}, s.taskWriteError(err)
	}
	return task, nil
}

// DeleteTask removes the task from its project's task list and deletes it.
// The task's creator may delete it even after leaving the project.
func (s *Service) DeleteTask(ctx context.Context, actorID, taskID string) error {
	task, _, err := s.loadTaskForAction(ctx, actorID, taskID, access.ActionDeleteTask)
	if err != nil {
		return err
	}

	err = s.store.WithinTx(ctx, func(r store.Repository) error {
		if err := r.RemoveProjectTask(ctx, task.ProjectID, task.ID); err != nil {
			return err
		}
		if err := r.DeleteTask(ctx, task.ID); err != nil {
			return s.taskWriteError(err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info("Task deleted", logger.F("task", task.ID), logger.F("project", task.ProjectID), logger.F("by", actorID))
	return nil
}

// AddComment appends a trimmed, non-empty comment to a task.
func (s *Service) AddComment(ctx context.Context, actorID, taskID, content string) (model.Task, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return model.Task{}, apperr.Validation("comment content is required")
	}
	if len([]rune(content)) > maxComment {
		return model.Task{}, apperr.Validationf("comment cannot exceed %d characters", maxComment)
	}
	task, _, err := s.loadTaskForAction(ctx, actorID, taskID, access.ActionComment)
	if err != nil {
		return model.Task{}, err
	}

	comment := model.Comment{UserID: actorID, Content: content, CreatedAt: s.now().UTC()}
	if err := s.store.AddComment(ctx, task.ID, comment); err != nil {
		return model.Task{}, s.taskWriteError(err)
	}
	task.Comments = append(task.Comments, comment)
	return task, nil
}

func (s *Service) loadTaskForAction(ctx context.Context, actorID, taskID string, action access.Action) (model.Task, model.Project, error) {
	task, err := s.store.GetTask(ctx, taskID)
	if errors.Is(err, store.ErrNotFound) {
		return model.Task{}, model.Project{}, apperr.NotFound(apperr.CodeTaskNotFound, "task not found")
	}
	if err != nil {
		return model.Task{}, model.Project{}, fmt.Errorf("load task: %w", err)
	}
	project, err := s.loadProject(ctx, s.store, task.ProjectID)
	if err != nil {
		return model.Task{}, model.Project{}, err
	}
	if err := access.AuthorizeTask(project, task, actorID, action); err != nil {
		return model.Task{}, model.Project{}, err
	}
	return task, project, nil
}

func (s *Service) loadProject(ctx context.Context, r store.Repository, id string) (model.Project, error) {
	project, err := r.GetProject(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return model.Project{}, apperr.NotFound(apperr.CodeProjectNotFound, "project not found")
	}
	if err != nil {
		return model.Project{}, fmt.Errorf("load project: %w", err)
	}
	access.MustHoldOwnerInvariant(project)
	return project, nil
}

func (s *Service) taskWriteError(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound(apperr.CodeTaskNotFound, "task not found")
	}
	return fmt.Errorf("write task: %w", err)
}
