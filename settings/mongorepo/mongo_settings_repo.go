package mongosettingsrepo

import (
	"context"
	"fmt"

	"github.com/jrsteele09/taskhub-server/settings"
	"github.com/jrsteele09/taskhub-server/store/mongodb"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

var _ settings.Repo = (*Repo)(nil)

type Repo struct {
	coll *mongo.Collection
}

func New(db *mongo.Database) *Repo {
	return &Repo{coll: db.Collection(mongodb.SettingsCollection)}
}

func (r *Repo) Get(ctx context.Context) (*settings.Settings, error) {
	var s settings.Settings
	err := r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: settings.GlobalID}}).Decode(&s)
	if err != nil {
		if mongodb.IsNotFound(err) {
			return settings.Defaults(), nil
		}
		return nil, fmt.Errorf("[mongosettingsrepo.Get] find: %w", err)
	}
	return &s, nil
}

func (r *Repo) Save(ctx context.Context, s *settings.Settings) error {
	s.ID = settings.GlobalID
	_, err := r.coll.ReplaceOne(ctx, bson.D{{Key: "_id", Value: settings.GlobalID}}, s, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("[mongosettingsrepo.Save] replace: %w", err)
	}
	return nil
}
