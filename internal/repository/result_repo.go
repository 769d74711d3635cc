package repository

import (
	"context"
	"riskierwas/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ResultRepo stores the final standings of ended games
type ResultRepo interface {
	Save(ctx context.Context, result *model.GameResult) error
	GetByCode(ctx context.Context, code string) (*model.GameResult, error)
	List(ctx context.Context, limit int) ([]*model.GameResult, error)
}

const defaultResultLimit = 50

type resultRepo struct {
	collection *mongo.Collection
}

// NewResultRepo creates a MongoDB backed result repository
func NewResultRepo(db *mongo.Database) ResultRepo {
	return &resultRepo{
		collection: db.Collection("game_results"),
	}
}

func (r *resultRepo) Save(ctx context.Context, result *model.GameResult) error {
	opts := options.Replace().SetUpsert(true)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": result.GameID}, result, opts)
	return err
}

// GetByCode returns the latest result for a room code; codes can be reused
func (r *resultRepo) GetByCode(ctx context.Context, code string) (*model.GameResult, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "endedAt", Value: -1}})

	var result model.GameResult
	err := r.collection.FindOne(ctx, bson.M{"code": code}, opts).Decode(&result)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *resultRepo) List(ctx context.Context, limit int) ([]*model.GameResult, error) {
	if limit <= 0 {
		limit = defaultResultLimit
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "endedAt", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	results := []*model.GameResult{}
	if err := cursor.All(ctx, &results); err != nil {
		return nil, err
	}
	return results, nil
}
