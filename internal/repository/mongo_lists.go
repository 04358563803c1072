package repository

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/iliyamo/task-manager/internal/model"
)

type listDoc struct {
	ID     bson.ObjectID `bson:"_id,omitempty"`
	Title  string        `bson:"title"`
	UserID bson.ObjectID `bson:"_userId"`
}

func (d listDoc) toModel() *model.List {
	return &model.List{ID: d.ID.Hex(), Title: d.Title, UserID: d.UserID.Hex()}
}

// MongoListRepo stores lists in the `lists` collection keyed by owner.
type MongoListRepo struct{ coll *mongo.Collection }

func NewMongoListRepo(db *mongo.Database) *MongoListRepo {
	return &MongoListRepo{coll: db.Collection("lists")}
}

// ownedFilter builds {_id, _userId}; ok is false when either id is not a
// valid ObjectID, in which case nothing can match.
func ownedFilter(id, userID string) (bson.M, bool) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, false
	}
	uid, err := bson.ObjectIDFromHex(userID)
	if err != nil {
		return nil, false
	}
	return bson.M{"_id": oid, "_userId": uid}, true
}

func (r *MongoListRepo) Create(ctx context.Context, l *model.List) error {
	uid, err := bson.ObjectIDFromHex(l.UserID)
	if err != nil {
		return ErrNotFound
	}
	res, err := r.coll.InsertOne(ctx, listDoc{Title: l.Title, UserID: uid})
	if err != nil {
		return err
	}
	if oid, ok := res.InsertedID.(bson.ObjectID); ok {
		l.ID = oid.Hex()
	}
	return nil
}

func (r *MongoListRepo) ListByUser(ctx context.Context, userID string) ([]*model.List, error) {
	out := []*model.List{}
	uid, err := bson.ObjectIDFromHex(userID)
	if err != nil {
		return out, nil
	}
	cur, err := r.coll.Find(ctx, bson.M{"_userId": uid}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var docs []listDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	for _, d := range docs {
		out = append(out, d.toModel())
	}
	return out, nil
}

func (r *MongoListRepo) decodeOne(res *mongo.SingleResult) (*model.List, error) {
	var doc listDoc
	if err := res.Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return doc.toModel(), nil
}

func (r *MongoListRepo) GetByIDAndUser(ctx context.Context, id, userID string) (*model.List, error) {
	filter, ok := ownedFilter(id, userID)
	if !ok {
		return nil, ErrNotFound
	}
	return r.decodeOne(r.coll.FindOne(ctx, filter))
}

func (r *MongoListRepo) Update(ctx context.Context, id, userID string, p model.ListPatch) (*model.List, error) {
	filter, ok := ownedFilter(id, userID)
	if !ok {
		return nil, ErrNotFound
	}
	if p.Title == nil {
		return r.decodeOne(r.coll.FindOne(ctx, filter))
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	return r.decodeOne(r.coll.FindOneAndUpdate(ctx, filter, bson.M{"$set": bson.M{"title": *p.Title}}, opts))
}

func (r *MongoListRepo) Delete(ctx context.Context, id, userID string) (*model.List, error) {
	filter, ok := ownedFilter(id, userID)
	if !ok {
		return nil, ErrNotFound
	}
	return r.decodeOne(r.coll.FindOneAndDelete(ctx, filter))
}
