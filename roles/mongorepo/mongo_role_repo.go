package mongorolerepo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/taskhub-server/internal/errors"
	"github.com/jrsteele09/taskhub-server/roles"
	"github.com/jrsteele09/taskhub-server/store/mongodb"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

var _ roles.Repo = (*Repo)(nil)

type Repo struct {
	coll *mongo.Collection
}

// New returns a role repository and makes sure role names are unique.
func New(ctx context.Context, db *mongo.Database) (*Repo, error) {
	coll := db.Collection(mongodb.RolesCollection)
	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("uniq_role_name"),
	})
	if err != nil {
		return nil, fmt.Errorf("[mongorolerepo.New] create index: %w", err)
	}
	return &Repo{coll: coll}, nil
}

func (r *Repo) Get(ctx context.Context, id string) (*roles.Role, error) {
	return r.findOne(ctx, bson.D{{Key: "_id", Value: id}})
}

func (r *Repo) GetByName(ctx context.Context, name roles.RoleName) (*roles.Role, error) {
	return r.findOne(ctx, bson.D{{Key: "name", Value: name}})
}

func (r *Repo) List(ctx context.Context) ([]*roles.Role, error) {
	cursor, err := r.coll.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("[mongorolerepo.List] find: %w", err)
	}
	list := make([]*roles.Role, 0)
	if err := cursor.All(ctx, &list); err != nil {
		return nil, fmt.Errorf("[mongorolerepo.List] decode: %w", err)
	}
	return list, nil
}

func (r *Repo) Upsert(ctx context.Context, role *roles.Role) error {
	if err := role.Validate(); err != nil {
		return err
	}
	if role.ID == "" {
		role.ID = uuid.NewString()
	}
	_, err := r.coll.ReplaceOne(ctx, bson.D{{Key: "_id", Value: role.ID}}, role, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("[mongorolerepo.Upsert] %s: %w", role.Name, err)
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, id string) error {
	if _, err := r.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}}); err != nil {
		return fmt.Errorf("[mongorolerepo.Delete] %s: %w", id, err)
	}
	return nil
}

func (r *Repo) findOne(ctx context.Context, filter bson.D) (*roles.Role, error) {
	var role roles.Role
	if err := r.coll.FindOne(ctx, filter).Decode(&role); err != nil {
		if mongodb.IsNotFound(err) {
			return nil, fmt.Errorf("[mongorolerepo] %v: %w", filter, apperrors.ErrRoleNotFound)
		}
		return nil, fmt.Errorf("[mongorolerepo] find: %w", err)
	}
	return &role, nil
}
