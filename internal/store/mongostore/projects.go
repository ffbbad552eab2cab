package mongostore

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/existflow/projectmate/internal/model"
	"github.com/existflow/projectmate/internal/store"
)

func normalizeProject(p *model.Project) {
	if p.Members == nil {
		p.Members = []model.Member{}
	}
	if p.TaskIDs == nil {
		p.TaskIDs = []string{}
	}
}

func projectFilter(q store.ProjectQuery) bson.M {
	filter := bson.M{}
	if q.MemberID != "" {
		filter["members.user"] = q.MemberID
	}
	if q.Status != "" {
		filter["status"] = string(q.Status)
	}
	if search := strings.TrimSpace(q.Search); search != "" {
		re := primitive.Regex{Pattern: regexp.QuoteMeta(search), Options: "i"}
		filter["$or"] = bson.A{bson.M{"name": re}, bson.M{"description": re}}
	}
	return filter
}

func (s *Store) GetProject(ctx context.Context, id string) (model.Project, error) {
	var p model.Project
	if err := s.coll(projectsCollection).FindOne(s.opCtx(ctx), bson.M{"_id": id}).Decode(&p); err != nil {
		return model.Project{}, translate(err)
	}
	normalizeProject(&p)
	return p, nil
}

func (s *Store) ListProjects(ctx context.Context, q store.ProjectQuery) ([]model.Project, error) {
	ctx = s.opCtx(ctx)
	sort := bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}}
	cur, err := s.coll(projectsCollection).Find(ctx, projectFilter(q), findOptions(sort, q.Skip, q.Limit))
	if err != nil {
		return nil, fmt.Errorf("find projects: %w", err)
	}
	projects, err := decodeAll[model.Project](ctx, cur)
	if err != nil {
		return nil, err
	}
	for i := range projects {
		normalizeProject(&projects[i])
	}
	return projects, nil
}

func (s *Store) CountProjects(ctx context.Context, q store.ProjectQuery) (int, error) {
	n, err := s.coll(projectsCollection).CountDocuments(s.opCtx(ctx), projectFilter(q))
	if err != nil {
		return 0, fmt.Errorf("count projects: %w", err)
	}
	return int(n), nil
}

func (s *Store) CreateProject(ctx context.Context, p model.Project) error {
	normalizeProject(&p)
	if _, err := s.coll(projectsCollection).InsertOne(s.opCtx(ctx), p); err != nil {
		return fmt.Errorf("insert project: %w", translate(err))
	}
	return nil
}

func (s *Store) UpdateProject(ctx context.Context, p model.Project) error {
	update := bson.M{"$set": bson.M{
		"name":        p.Name,
		"description": p.Description,
		"color":       p.Color,
		"status":      string(p.Status),
		"priority":    string(p.Priority),
		"deadline":    p.Deadline,
		"settings":    p.Settings,
		"updatedAt":   p.UpdatedAt,
	}}
	return matchedOne(s.coll(projectsCollection).UpdateOne(s.opCtx(ctx), bson.M{"_id": p.ID}, update))
}

func (s *Store) DeleteProject(ctx context.Context, id string) error {
	return deletedOne(s.coll(projectsCollection).DeleteOne(s.opCtx(ctx), bson.M{"_id": id}))
}

// AddMember pushes a member entry unless the user already has one.
func (s *Store) AddMember(ctx context.Context, projectID string, m model.Member) error {
	ctx = s.opCtx(ctx)
	filter := bson.M{"_id": projectID, "members.user": bson.M{"$ne": m.UserID}}
	res, err := s.coll(projectsCollection).UpdateOne(ctx, filter, bson.M{"$push": bson.M{"members": m}})
	if err != nil {
		return fmt.Errorf("add member: %w", translate(err))
	}
	if res.MatchedCount > 0 {
		return nil
	}
	n, err := s.coll(projectsCollection).CountDocuments(ctx, bson.M{"_id": projectID}, options.Count().SetLimit(1))
	if err != nil {
		return fmt.Errorf("add member: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return fmt.Errorf("%w: member %s", store.ErrDuplicate, m.UserID)
}

func (s *Store) RemoveMember(ctx context.Context, projectID, userID string) error {
	filter := bson.M{"_id": projectID, "members.user": userID}
	update := bson.M{"$pull": bson.M{"members": bson.M{"user": userID}}}
	return matchedOne(s.coll(projectsCollection).UpdateOne(s.opCtx(ctx), filter, update))
}

func (s *Store) AppendProjectTask(ctx context.Context, projectID, taskID string) error {
	update := bson.M{"$addToSet": bson.M{"tasks": taskID}}
	return matchedOne(s.coll(projectsCollection).UpdateOne(s.opCtx(ctx), bson.M{"_id": projectID}, update))
}

func (s *Store) RemoveProjectTask(ctx context.Context, projectID, taskID string) error {
	update := bson.M{"$pull": bson.M{"tasks": taskID}}
	if _, err := s.coll(projectsCollection).UpdateOne(s.opCtx(ctx), bson.M{"_id": projectID}, update); err != nil {
		return fmt.Errorf("remove project task: %w", translate(err))
	}
	return nil
}
