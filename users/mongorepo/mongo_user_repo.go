package mongouserrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/taskhub-server/internal/errors"
	"github.com/jrsteele09/taskhub-server/store/mongodb"
	"github.com/jrsteele09/taskhub-server/users"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

var _ users.Repo = (*Repo)(nil)

type Repo struct {
	coll *mongo.Collection
}

func New(ctx context.Context, db *mongo.Database) (*Repo, error) {
	coll := db.Collection(mongodb.UsersCollection)
	_, err := coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_email"),
		},
		{
			Keys: bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_username").
				SetPartialFilterExpression(bson.D{{Key: "username", Value: bson.D{{Key: "$gt", Value: ""}}}}),
		},
		{
			Keys:    bson.D{{Key: "passwordResetTokenHash", Value: 1}},
			Options: options.Index().SetSparse(true).SetName("reset_token"),
		},
		{
			Keys:    bson.D{{Key: "isDeleted", Value: 1}, {Key: "deletedAt", Value: 1}},
			Options: options.Index().SetName("soft_deleted"),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("[mongouserrepo.New] create indexes: %w", err)
	}
	return &Repo{coll: coll}, nil
}

func (r *Repo) GetByID(ctx context.Context, id string) (*users.User, error) {
	return r.findOne(ctx, bson.D{{Key: "_id", Value: id}})
}

// GetByIdentifier tries the email first so a username that looks like someone
// else's email never shadows that account.
func (r *Repo) GetByIdentifier(ctx context.Context, identifier string) (*users.User, error) {
	if identifier == "" {
		return nil, apperrors.ErrUserNotFound
	}
	user, err := r.findOne(ctx, bson.D{{Key: "email", Value: users.NormalizeEmail(identifier)}})
	if err == nil || !errors.Is(err, apperrors.ErrUserNotFound) {
		return user, err
	}
	return r.findOne(ctx, bson.D{{Key: "username", Value: identifier}})
}

func (r *Repo) GetByResetTokenHash(ctx context.Context, tokenHash string) (*users.User, error) {
	if tokenHash == "" {
		return nil, apperrors.ErrUserNotFound
	}
	return r.findOne(ctx, bson.D{{Key: "passwordResetTokenHash", Value: tokenHash}})
}

func (r *Repo) List(ctx context.Context, offset, limit int) ([]*users.User, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}).SetSkip(int64(offset))
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cursor, err := r.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("[mongouserrepo.List] find: %w", err)
	}
	list := make([]*users.User, 0)
	if err := cursor.All(ctx, &list); err != nil {
		return nil, fmt.Errorf("[mongouserrepo.List] decode: %w", err)
	}
	return list, nil
}

func (r *Repo) Upsert(ctx context.Context, user *users.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.Email = users.NormalizeEmail(user.Email)
	_, err := r.coll.ReplaceOne(ctx, bson.D{{Key: "_id", Value: user.ID}}, user, options.Replace().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("[mongouserrepo.Upsert] %s: %w", user.ID, apperrors.ErrUserExists)
		}
		return fmt.Errorf("[mongouserrepo.Upsert] %s: %w", user.ID, err)
	}
	return nil
}

func (r *Repo) SetRole(ctx context.Context, id, roleID string) error {
	return r.updateOne(ctx, id, bson.D{{Key: "$set", Value: bson.D{{Key: "roleId", Value: roleID}}}})
}

func (r *Repo) SetLoggedIn(ctx context.Context, id string, loggedIn bool, lastLogin time.Time) error {
	status := users.StatusInactive
	if loggedIn {
		status = users.StatusActive
	}
	set := bson.D{
		{Key: "isLoggedIn", Value: loggedIn},
		{Key: "status", Value: status},
	}
	if !lastLogin.IsZero() {
		set = append(set, bson.E{Key: "lastLogin", Value: lastLogin})
	}
	return r.updateOne(ctx, id, bson.D{{Key: "$set", Value: set}})
}

func (r *Repo) SetPassword(ctx context.Context, id, passwordHash string) error {
	return r.updateOne(ctx, id, bson.D{
		{Key: "$set", Value: bson.D{{Key: "passwordHash", Value: passwordHash}}},
		{Key: "$unset", Value: bson.D{
			{Key: "passwordResetTokenHash", Value: ""},
			{Key: "passwordResetExpiresAt", Value: ""},
		}},
	})
}

func (r *Repo) SetResetToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error {
	return r.updateOne(ctx, id, bson.D{{Key: "$set", Value: bson.D{
		{Key: "passwordResetTokenHash", Value: tokenHash},
		{Key: "passwordResetExpiresAt", Value: expiresAt},
	}}})
}

func (r *Repo) SoftDelete(ctx context.Context, id string, at time.Time) error {
	return r.updateOne(ctx, id, bson.D{{Key: "$set", Value: bson.D{
		{Key: "isDeleted", Value: true},
		{Key: "deletedAt", Value: at},
	}}})
}

func (r *Repo) ListDeletedBefore(ctx context.Context, cutoff time.Time) ([]*users.User, error) {
	cursor, err := r.coll.Find(ctx, bson.D{
		{Key: "isDeleted", Value: true},
		{Key: "deletedAt", Value: bson.D{{Key: "$lt", Value: cutoff}}},
	})
	if err != nil {
		return nil, fmt.Errorf("[mongouserrepo.ListDeletedBefore] find: %w", err)
	}
	list := make([]*users.User, 0)
	if err := cursor.All(ctx, &list); err != nil {
		return nil, fmt.Errorf("[mongouserrepo.ListDeletedBefore] decode: %w", err)
	}
	return list, nil
}

func (r *Repo) Delete(ctx context.Context, id string) error {
	if _, err := r.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}}); err != nil {
		return fmt.Errorf("[mongouserrepo.Delete] %s: %w", id, err)
	}
	return nil
}

func (r *Repo) updateOne(ctx context.Context, id string, update bson.D) error {
	res, err := r.coll.UpdateOne(ctx, bson.D{{Key: "_id", Value: id}}, update)
	if err != nil {
		return fmt.Errorf("[mongouserrepo] update %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("[mongouserrepo] user %s: %w", id, apperrors.ErrUserNotFound)
	}
	return nil
}

func (r *Repo) findOne(ctx context.Context, filter bson.D) (*users.User, error) {
	var user users.User
	if err := r.coll.FindOne(ctx, filter).Decode(&user); err != nil {
		if mongodb.IsNotFound(err) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("[mongouserrepo] find: %w", err)
	}
	return &user, nil
}
