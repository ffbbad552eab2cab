package mongostore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/existflow/projectmate/internal/model"
	"github.com/existflow/projectmate/internal/store"
)

func invitationFilter(q store.InvitationQuery) bson.M {
	filter := bson.M{}
	if q.ProjectID != "" {
		filter["project"] = q.ProjectID
	}
	if q.InvitedUserID != "" {
		filter["invitedUser"] = q.InvitedUserID
	}
	if q.Status != "" {
		filter["status"] = string(q.Status)
	}
	return filter
}

func (s *Store) GetInvitation(ctx context.Context, id string) (model.Invitation, error) {
	var inv model.Invitation
	if err := s.coll(invitationsCollection).FindOne(s.opCtx(ctx), bson.M{"_id": id}).Decode(&inv); err != nil {
		return model.Invitation{}, translate(err)
	}
	return inv, nil
}

func (s *Store) FindPendingInvitation(ctx context.Context, projectID, invitedUserID string) (model.Invitation, error) {
	filter := bson.M{"project": projectID, "invitedUser": invitedUserID, "status": string(model.InvitationPending)}
	var inv model.Invitation
	if err := s.coll(invitationsCollection).FindOne(s.opCtx(ctx), filter).Decode(&inv); err != nil {
		return model.Invitation{}, translate(err)
	}
	return inv, nil
}

func (s *Store) ListInvitations(ctx context.Context, q store.InvitationQuery) ([]model.Invitation, error) {
	ctx = s.opCtx(ctx)
	sort := bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}
	cur, err := s.coll(invitationsCollection).Find(ctx, invitationFilter(q), findOptions(sort, q.Skip, q.Limit))
	if err != nil {
		return nil, fmt.Errorf("find invitations: %w", err)
	}
	return decodeAll[model.Invitation](ctx, cur)
}

func (s *Store) CountInvitations(ctx context.Context, q store.InvitationQuery) (int, error) {
	n, err := s.coll(invitationsCollection).CountDocuments(s.opCtx(ctx), invitationFilter(q))
	if err != nil {
		return 0, fmt.Errorf("count invitations: %w", err)
	}
	return int(n), nil
}

// CreateInvitation inserts an invitation. The one_pending_per_user partial
// index rejects a second pending invitation for the same pair.
func (s *Store) CreateInvitation(ctx context.Context, inv model.Invitation) error {
	if _, err := s.coll(invitationsCollection).InsertOne(s.opCtx(ctx), inv); err != nil {
		return fmt.Errorf("insert invitation: %w", translate(err))
	}
	return nil
}

func (s *Store) ResolveInvitation(ctx context.Context, id string, status model.InvitationStatus, respondedAt *time.Time, now time.Time) error {
	filter := bson.M{"_id": id, "status": string(model.InvitationPending)}
	update := bson.M{"$set": bson.M{"status": string(status), "respondedAt": respondedAt, "updatedAt": now}}
	return matchedOne(s.coll(invitationsCollection).UpdateOne(s.opCtx(ctx), filter, update))
}

func (s *Store) DeletePendingInvitation(ctx context.Context, id string) error {
	filter := bson.M{"_id": id, "status": string(model.InvitationPending)}
	return deletedOne(s.coll(invitationsCollection).DeleteOne(s.opCtx(ctx), filter))
}

func (s *Store) ExpireInvitations(ctx context.Context, q store.InvitationQuery, now time.Time) (int64, error) {
	filter := invitationFilter(store.InvitationQuery{ProjectID: q.ProjectID, InvitedUserID: q.InvitedUserID})
	filter["status"] = string(model.InvitationPending)
	filter["expiresAt"] = bson.M{"$lt": now}
	update := bson.M{"$set": bson.M{"status": string(model.InvitationExpired), "updatedAt": now}}
	res, err := s.coll(invitationsCollection).UpdateMany(s.opCtx(ctx), filter, update)
	if err != nil {
		return 0, fmt.Errorf("expire invitations: %w", err)
	}
	return res.ModifiedCount, nil
}

func (s *Store) PurgeInvitations(ctx context.Context, cutoff time.Time) (int64, error) {
	filter := bson.M{"status": bson.M{"$ne": string(model.InvitationPending)}, "updatedAt": bson.M{"$lt": cutoff}}
	res, err := s.coll(invitationsCollection).DeleteMany(s.opCtx(ctx), filter)
	if err != nil {
		return 0, fmt.Errorf("purge invitations: %w", err)
	}
	return res.DeletedCount, nil
}

func (s *Store) DeleteProjectInvitations(ctx context.Context, projectID string) error {
	if _, err := s.coll(invitationsCollection).DeleteMany(s.opCtx(ctx), bson.M{"project": projectID}); err != nil {
		return fmt.Errorf("delete project invitations: %w", err)
	}
	return nil
}
