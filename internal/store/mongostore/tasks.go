package mongostore

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/existflow/projectmate/internal/model"
	"github.com/existflow/projectmate/internal/store"
)

func normalizeTask(t *model.Task) {
	if t.Tags == nil {
		t.Tags = []string{}
	}
	if t.Comments == nil {
		t.Comments = []model.Comment{}
	}
}

func taskFilter(q store.TaskQuery) bson.M {
	filter := bson.M{}
	if q.ProjectID != "" {
		filter["project"] = q.ProjectID
	}
	if q.Status != "" {
		filter["status"] = string(q.Status)
	}
	if q.AssigneeID != "" {
		filter["assignedTo"] = q.AssigneeID
	}
	if q.Priority != "" {
		filter["priority"] = string(q.Priority)
	}
	return filter
}

func (s *Store) GetTask(ctx context.Context, id string) (model.Task, error) {
	var t model.Task
	if err := s.coll(tasksCollection).FindOne(s.opCtx(ctx), bson.M{"_id": id}).Decode(&t); err != nil {
		return model.Task{}, translate(err)
	}
	normalizeTask(&t)
	return t, nil
}

func (s *Store) ListTasks(ctx context.Context, q store.TaskQuery) ([]model.Task, error) {
	ctx = s.opCtx(ctx)
	sort := bson.D{{Key: "position", Value: 1}, {Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}}
	cur, err := s.coll(tasksCollection).Find(ctx, taskFilter(q), findOptions(sort, q.Skip, q.Limit))
	if err != nil {
		return nil, fmt.Errorf("find tasks: %w", err)
	}
	tasks, err := decodeAll[model.Task](ctx, cur)
	if err != nil {
		return nil, err
	}
	for i := range tasks {
		normalizeTask(&tasks[i])
	}
	return tasks, nil
}

func (s *Store) CountTasks(ctx context.Context, q store.TaskQuery) (int, error) {
	n, err := s.coll(tasksCollection).CountDocuments(s.opCtx(ctx), taskFilter(q))
	if err != nil {
		return 0, fmt.Errorf("count tasks: %w", err)
	}
	return int(n), nil
}

// TaskStats groups a project's tasks by status.
func (s *Store) TaskStats(ctx context.Context, projectID string) (model.TaskStats, error) {
	ctx = s.opCtx(ctx)
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"project": projectID}}},
		{{Key: "$group", Value: bson.M{"_id": "$status", "count": bson.M{"$sum": 1}}}},
	}
	cur, err := s.coll(tasksCollection).Aggregate(ctx, pipeline)
	if err != nil {
		return model.TaskStats{}, fmt.Errorf("aggregate task stats: %w", err)
	}
	type bucket struct {
		Status model.TaskStatus `bson:"_id"`
		Count  int              `bson:"count"`
	}
	buckets, err := decodeAll[bucket](ctx, cur)
	if err != nil {
		return model.TaskStats{}, err
	}
	var stats model.TaskStats
	for _, b := range buckets {
		stats.Add(b.Status, b.Count)
	}
	return stats, nil
}

func (s *Store) MaxTaskPosition(ctx context.Context, projectID string) (int64, bool, error) {
	opts := options.FindOne().
		SetSort(bson.D{{Key: "position", Value: -1}}).
		SetProjection(bson.M{"position": 1})
	var doc struct {
		Position int64 `bson:"position"`
	}
	err := s.coll(tasksCollection).FindOne(s.opCtx(ctx), bson.M{"project": projectID}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("max task position: %w", err)
	}
	return doc.Position, true, nil
}

func (s *Store) CreateTask(ctx context.Context, t model.Task) error {
	normalizeTask(&t)
	if _, err := s.coll(tasksCollection).InsertOne(s.opCtx(ctx), t); err != nil {
		return fmt.Errorf("insert task: %w", translate(err))
	}
	return nil
}

func (s *Store) UpdateTask(ctx context.Context, t model.Task) error {
	tags := t.Tags
	if tags == nil {
		tags = []string{}
	}
	update := bson.M{"$set": bson.M{
		"title":       t.Title,
		"description": t.Description,
		"status":      string(t.Status),
		"priority":    string(t.Priority),
		"assignedTo":  t.AssigneeID,
		"dueDate":     t.DueDate,
		"tags":        tags,
		"position":    t.Position,
		"updatedAt":   t.UpdatedAt,
	}}
	return matchedOne(s.coll(tasksCollection).UpdateOne(s.opCtx(ctx), bson.M{"_id": t.ID}, update))
}

func (s *Store) AddComment(ctx context.Context, taskID string, c model.Comment) error {
	update := bson.M{"$push": bson.M{"comments": c}}
	return matchedOne(s.coll(tasksCollection).UpdateOne(s.opCtx(ctx), bson.M{"_id": taskID}, update))
}

func (s *Store) DeleteTask(ctx context.Context, id string) error {
	return deletedOne(s.coll(tasksCollection).DeleteOne(s.opCtx(ctx), bson.M{"_id": id}))
}

func (s *Store) DeleteProjectTasks(ctx context.Context, projectID string) error {
	if _, err := s.coll(tasksCollection).DeleteMany(s.opCtx(ctx), bson.M{"project": projectID}); err != nil {
		return fmt.Errorf("delete project tasks: %w", translate(err))
	}
	return nil
}
