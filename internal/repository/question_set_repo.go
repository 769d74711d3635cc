package repository

import (
	"context"
	"riskierwas/internal/model"
	"time"

	"github.com/oklog/ulid/v2"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// QuestionSetRepo handles MongoDB operations for the question-set library
type QuestionSetRepo interface {
	Save(ctx context.Context, set *model.QuestionSet) error
	GetByID(ctx context.Context, id string) (*model.QuestionSet, error)
	List(ctx context.Context) ([]*model.QuestionSetSummary, error)
	Delete(ctx context.Context, id string) (bool, error)
}

type questionSetRepo struct {
	collection *mongo.Collection
}

// NewQuestionSetRepo creates a new question-set repository
func NewQuestionSetRepo(db *mongo.Database) QuestionSetRepo {
	return &questionSetRepo{
		collection: db.Collection("question_sets"),
	}
}

// Save inserts a new set (assigning a ULID) or replaces an existing one
func (r *questionSetRepo) Save(ctx context.Context, set *model.QuestionSet) error {
	now := time.Now()
	if set.ID == "" {
		set.ID = ulid.Make().String()
		set.CreatedAt = now
	}
	set.UpdatedAt = now
	if set.Questions == nil {
		set.Questions = []*model.Question{}
	}

	opts := options.Replace().SetUpsert(true)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": set.ID}, set, opts)
	return err
}

func (r *questionSetRepo) GetByID(ctx context.Context, id string) (*model.QuestionSet, error) {
	var set model.QuestionSet
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&set)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &set, nil
}

// List returns every set, most recently updated first, without the questions
func (r *questionSetRepo) List(ctx context.Context) ([]*model.QuestionSetSummary, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$project", Value: bson.M{
			"name":          1,
			"updatedAt":     1,
			"questionCount": bson.M{"$size": bson.M{"$ifNull": bson.A{"$questions", bson.A{}}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "updatedAt", Value: -1}}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	summaries := []*model.QuestionSetSummary{}
	if err := cursor.All(ctx, &summaries); err != nil {
		return nil, err
	}
	return summaries, nil
}

func (r *questionSetRepo) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, err
	}
	return result.DeletedCount > 0, nil
}
