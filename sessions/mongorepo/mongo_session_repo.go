package mongosessionrepo

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/jrsteele09/taskhub-server/internal/errors"
	"github.com/jrsteele09/taskhub-server/sessions"
	"github.com/jrsteele09/taskhub-server/store/mongodb"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

var _ sessions.Repo = (*Repo)(nil)

type Repo struct {
	coll *mongo.Collection
}

// New returns a session repository, creating the unique session id index, the
// (userId, isActive) index used by the cap query and a TTL index on expiresAt.
func New(ctx context.Context, db *mongo.Database) (*Repo, error) {
	coll := db.Collection(mongodb.SessionsCollection)
	_, err := coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "sessionId", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_session_id"),
		},
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "isActive", Value: 1}},
			Options: options.Index().SetName("user_active"),
		},
		{
			Keys:    bson.D{{Key: "expiresAt", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0).SetName("ttl_expires_at"),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("[mongosessionrepo.New] create indexes: %w", err)
	}
	return &Repo{coll: coll}, nil
}

func liveFilter(now time.Time) bson.D {
	return bson.D{
		{Key: "isActive", Value: true},
		{Key: "expiresAt", Value: bson.D{{Key: "$gt", Value: now}}},
	}
}

func staleFilter(now time.Time) bson.D {
	return bson.D{{Key: "$or", Value: bson.A{
		bson.D{{Key: "isActive", Value: false}},
		bson.D{{Key: "expiresAt", Value: bson.D{{Key: "$lte", Value: now}}}},
	}}}
}

func (r *Repo) Insert(ctx context.Context, session *sessions.Session) error {
	res, err := r.coll.InsertOne(ctx, session)
	if err != nil {
		return fmt.Errorf("[mongosessionrepo.Insert] %s: %w", session.SessionID, err)
	}
	if id, ok := res.InsertedID.(bson.ObjectID); ok {
		session.ObjectID = id
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, sessionID string) (*sessions.Session, error) {
	var session sessions.Session
	err := r.coll.FindOne(ctx, bson.D{{Key: "sessionId", Value: sessionID}}).Decode(&session)
	if err != nil {
		if mongodb.IsNotFound(err) {
			return nil, fmt.Errorf("[mongosessionrepo.Get] %s: %w", sessionID, apperrors.ErrSessionNotFound)
		}
		return nil, fmt.Errorf("[mongosessionrepo.Get] %s: %w", sessionID, err)
	}
	return &session, nil
}

func (r *Repo) Touch(ctx context.Context, sessionID string, now time.Time) (*sessions.Session, error) {
	filter := append(bson.D{{Key: "sessionId", Value: sessionID}}, liveFilter(now)...)
	update := bson.D{{Key: "$set", Value: bson.D{{Key: "lastActivity", Value: now}}}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var session sessions.Session
	if err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&session); err != nil {
		if mongodb.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("[mongosessionrepo.Touch] %s: %w", sessionID, err)
	}
	return &session, nil
}

func (r *Repo) SetAccessToken(ctx context.Context, sessionID, accessToken string, expiresAt, now time.Time) error {
	filter := append(bson.D{{Key: "sessionId", Value: sessionID}}, liveFilter(now)...)
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "accessToken", Value: accessToken},
		{Key: "expiresAt", Value: expiresAt},
	}}}
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("[mongosessionrepo.SetAccessToken] %s: %w", sessionID, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("[mongosessionrepo.SetAccessToken] %s: %w", sessionID, apperrors.ErrSessionNotFound)
	}
	return nil
}

func (r *Repo) ListActiveByUser(ctx context.Context, userID string, now time.Time) ([]*sessions.Session, error) {
	filter := append(bson.D{{Key: "userId", Value: userID}}, liveFilter(now)...)
	opts := options.Find().SetSort(bson.D{{Key: "lastActivity", Value: -1}, {Key: "seq", Value: -1}})

	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("[mongosessionrepo.ListActiveByUser] find: %w", err)
	}
	list := make([]*sessions.Session, 0)
	if err := cursor.All(ctx, &list); err != nil {
		return nil, fmt.Errorf("[mongosessionrepo.ListActiveByUser] decode: %w", err)
	}
	return list, nil
}

func (r *Repo) Delete(ctx context.Context, sessionID string) error {
	if _, err := r.coll.DeleteOne(ctx, bson.D{{Key: "sessionId", Value: sessionID}}); err != nil {
		return fmt.Errorf("[mongosessionrepo.Delete] %s: %w", sessionID, err)
	}
	return nil
}

func (r *Repo) DeleteMany(ctx context.Context, sessionIDs []string) (int64, error) {
	if len(sessionIDs) == 0 {
		return 0, nil
	}
	return r.deleteMany(ctx, bson.D{{Key: "sessionId", Value: bson.D{{Key: "$in", Value: sessionIDs}}}})
}

func (r *Repo) DeleteByUser(ctx context.Context, userID, keepSessionID string) (int64, error) {
	filter := bson.D{{Key: "userId", Value: userID}}
	if keepSessionID != "" {
		filter = append(filter, bson.E{Key: "sessionId", Value: bson.D{{Key: "$ne", Value: keepSessionID}}})
	}
	return r.deleteMany(ctx, filter)
}

func (r *Repo) DeleteStaleByUser(ctx context.Context, userID string, now time.Time) ([]string, error) {
	return r.deleteStale(ctx, append(bson.D{{Key: "userId", Value: userID}}, staleFilter(now)...))
}

func (r *Repo) DeleteStale(ctx context.Context, now time.Time) ([]string, error) {
	return r.deleteStale(ctx, staleFilter(now))
}

// deleteStale collects the matching session ids before deleting them so callers can
// report which sessions went away. The filter is re-applied on delete.
func (r *Repo) deleteStale(ctx context.Context, filter bson.D) ([]string, error) {
	opts := options.Find().SetProjection(bson.D{{Key: "sessionId", Value: 1}})
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("[mongosessionrepo.deleteStale] find: %w", err)
	}
	var found []struct {
		SessionID string `bson:"sessionId"`
	}
	if err := cursor.All(ctx, &found); err != nil {
		return nil, fmt.Errorf("[mongosessionrepo.deleteStale] decode: %w", err)
	}
	ids := make([]string, 0, len(found))
	for _, f := range found {
		ids = append(ids, f.SessionID)
	}
	if len(ids) == 0 {
		return ids, nil
	}

	scoped := append(bson.D{{Key: "sessionId", Value: bson.D{{Key: "$in", Value: ids}}}}, filter...)
	if _, err := r.deleteMany(ctx, scoped); err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *Repo) deleteMany(ctx context.Context, filter bson.D) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("[mongosessionrepo] delete: %w", err)
	}
	return res.DeletedCount, nil
}
