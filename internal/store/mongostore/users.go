package mongostore

import (
	"context"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/existflow/projectmate/internal/model"
)

func normalizeUser(u *model.User) {
	if u.ProjectIDs == nil {
		u.ProjectIDs = []string{}
	}
}

func (s *Store) GetUser(ctx context.Context, id string) (model.User, error) {
	var u model.User
	if err := s.coll(usersCollection).FindOne(s.opCtx(ctx), bson.M{"_id": id}).Decode(&u); err != nil {
		return model.User{}, translate(err)
	}
	normalizeUser(&u)
	return u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	var u model.User
	filter := bson.M{"email": strings.ToLower(strings.TrimSpace(email))}
	if err := s.coll(usersCollection).FindOne(s.opCtx(ctx), filter).Decode(&u); err != nil {
		return model.User{}, translate(err)
	}
	normalizeUser(&u)
	return u, nil
}

func (s *Store) GetUsers(ctx context.Context, ids []string) ([]model.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	ctx = s.opCtx(ctx)
	cur, err := s.coll(usersCollection).Find(ctx, bson.M{"_id": bson.M{"$in": ids}},
		options.Find().SetSort(bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}
	users, err := decodeAll[model.User](ctx, cur)
	if err != nil {
		return nil, err
	}
	for i := range users {
		normalizeUser(&users[i])
	}
	return users, nil
}

func (s *Store) CreateUser(ctx context.Context, u model.User) error {
	u.Email = strings.ToLower(u.Email)
	normalizeUser(&u)
	if _, err := s.coll(usersCollection).InsertOne(s.opCtx(ctx), u); err != nil {
		return fmt.Errorf("insert user: %w", translate(err))
	}
	return nil
}

func (s *Store) UpdateUser(ctx context.Context, u model.User) error {
	update := bson.M{"$set": bson.M{
		"name":      u.Name,
		"email":     strings.ToLower(u.Email),
		"password":  u.PasswordHash,
		"avatar":    u.Avatar,
		"isActive":  u.Active,
		"updatedAt": u.UpdatedAt,
	}}
	return matchedOne(s.coll(usersCollection).UpdateOne(s.opCtx(ctx), bson.M{"_id": u.ID}, update))
}

func (s *Store) AddUserProject(ctx context.Context, userID, projectID string) error {
	update := bson.M{"$addToSet": bson.M{"projects": projectID}}
	if _, err := s.coll(usersCollection).UpdateOne(s.opCtx(ctx), bson.M{"_id": userID}, update); err != nil {
		return fmt.Errorf("add user project: %w", translate(err))
	}
	return nil
}

func (s *Store) RemoveUserProject(ctx context.Context, userID, projectID string) error {
	update := bson.M{"$pull": bson.M{"projects": projectID}}
	if _, err := s.coll(usersCollection).UpdateOne(s.opCtx(ctx), bson.M{"_id": userID}, update); err != nil {
		return fmt.Errorf("remove user project: %w", translate(err))
	}
	return nil
}

func (s *Store) RemoveProjectFromUsers(ctx context.Context, projectID string) error {
	update := bson.M{"$pull": bson.M{"projects": projectID}}
	if _, err := s.coll(usersCollection).UpdateMany(s.opCtx(ctx), bson.M{"projects": projectID}, update); err != nil {
		return fmt.Errorf("remove project from users: %w", translate(err))
	}
	return nil
}
