package repository

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/iliyamo/task-manager/internal/model"
)

type taskDoc struct {
	ID        bson.ObjectID `bson:"_id,omitempty"`
	ListID    bson.ObjectID `bson:"_listId"`
	Title     string        `bson:"title"`
	Completed bool          `bson:"completed"`
}

func (d taskDoc) toModel() *model.Task {
	return &model.Task{ID: d.ID.Hex(), ListID: d.ListID.Hex(), Title: d.Title, Completed: d.Completed}
}

// MongoTaskRepo stores tasks in the `tasks` collection keyed by list.
type MongoTaskRepo struct{ coll *mongo.Collection }

func NewMongoTaskRepo(db *mongo.Database) *MongoTaskRepo {
	return &MongoTaskRepo{coll: db.Collection("tasks")}
}

func taskFilter(id, listID string) (bson.M, bool) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, false
	}
	lid, err := bson.ObjectIDFromHex(listID)
	if err != nil {
		return nil, false
	}
	return bson.M{"_id": oid, "_listId": lid}, true
}

func (r *MongoTaskRepo) decodeOne(res *mongo.SingleResult) (*model.Task, error) {
	var doc taskDoc
	if err := res.Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return doc.toModel(), nil
}

func (r *MongoTaskRepo) Create(ctx context.Context, t *model.Task) error {
	lid, err := bson.ObjectIDFromHex(t.ListID)
	if err != nil {
		return ErrNotFound
	}
	res, err := r.coll.InsertOne(ctx, taskDoc{ListID: lid, Title: t.Title, Completed: t.Completed})
	if err != nil {
		return err
	}
	if oid, ok := res.InsertedID.(bson.ObjectID); ok {
		t.ID = oid.Hex()
	}
	return nil
}

func (r *MongoTaskRepo) ListByList(ctx context.Context, listID string) ([]*model.Task, error) {
	out := []*model.Task{}
	lid, err := bson.ObjectIDFromHex(listID)
	if err != nil {
		return out, nil
	}
	cur, err := r.coll.Find(ctx, bson.M{"_listId": lid}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var docs []taskDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	for _, d := range docs {
		out = append(out, d.toModel())
	}
	return out, nil
}

func (r *MongoTaskRepo) Get(ctx context.Context, id, listID string) (*model.Task, error) {
	filter, ok := taskFilter(id, listID)
	if !ok {
		return nil, ErrNotFound
	}
	return r.decodeOne(r.coll.FindOne(ctx, filter))
}

func (r *MongoTaskRepo) Update(ctx context.Context, id, listID string, p model.TaskPatch) (*model.Task, error) {
	filter, ok := taskFilter(id, listID)
	if !ok {
		return nil, ErrNotFound
	}
	set := bson.M{}
	if p.Title != nil {
		set["title"] = *p.Title
	}
	if p.Completed != nil {
		set["completed"] = *p.Completed
	}
	if len(set) == 0 {
		return r.decodeOne(r.coll.FindOne(ctx, filter))
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	return r.decodeOne(r.coll.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts))
}

func (r *MongoTaskRepo) Delete(ctx context.Context, id, listID string) (*model.Task, error) {
	filter, ok := taskFilter(id, listID)
	if !ok {
		return nil, ErrNotFound
	}
	return r.decodeOne(r.coll.FindOneAndDelete(ctx, filter))
}

func (r *MongoTaskRepo) DeleteByList(ctx context.Context, listID string) (int64, error) {
	lid, err := bson.ObjectIDFromHex(listID)
	if err != nil {
		return 0, nil
	}
	res, err := r.coll.DeleteMany(ctx, bson.M{"_listId": lid})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
