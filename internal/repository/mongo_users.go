package repository

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/iliyamo/task-manager/internal/model"
)

// NewMongoManager wires the Mongo repositories on top of database db. The
// client stays owned by the manager and is disconnected by Close.
func NewMongoManager(client *mongo.Client, db string) Manager {
	d := client.Database(db)
	return &manager{
		users: NewMongoUserRepo(d),
		lists: NewMongoListRepo(d),
		tasks: NewMongoTaskRepo(d),
		close: client.Disconnect,
	}
}

type sessionDoc struct {
	Token     string `bson:"token"`
	ExpiresAt int64  `bson:"expiresAt"`
}

// userDoc mirrors a document of the `users` collection.
type userDoc struct {
	ID       bson.ObjectID `bson:"_id,omitempty"`
	Email    string        `bson:"email"`
	Password string        `bson:"password"`
	Sessions []sessionDoc  `bson:"sessions"`
}

func (d userDoc) toModel() *model.User {
	u := &model.User{ID: d.ID.Hex(), Email: d.Email, PasswordHash: d.Password}
	for _, s := range d.Sessions {
		u.Sessions = append(u.Sessions, model.Session{Token: s.Token, ExpiresAt: s.ExpiresAt})
	}
	return u
}

// MongoUserRepo stores users as single documents with an embedded sessions
// array, the same shape the service has always used.
type MongoUserRepo struct{ coll *mongo.Collection }

func NewMongoUserRepo(db *mongo.Database) *MongoUserRepo {
	return &MongoUserRepo{coll: db.Collection("users")}
}

// Create inserts the user; the email unique index turns duplicates into
// ErrEmailExists.
func (r *MongoUserRepo) Create(ctx context.Context, u *model.User) error {
	if u.PasswordDirty() {
		return ErrPlaintextPassword
	}
	doc := userDoc{Email: u.Email, Password: u.PasswordHash, Sessions: []sessionDoc{}}
	for _, s := range u.Sessions {
		doc.Sessions = append(doc.Sessions, sessionDoc{Token: s.Token, ExpiresAt: s.ExpiresAt})
	}
	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrEmailExists
		}
		return err
	}
	if oid, ok := res.InsertedID.(bson.ObjectID); ok {
		u.ID = oid.Hex()
	}
	return nil
}

func (r *MongoUserRepo) findOne(ctx context.Context, filter bson.M) (*model.User, error) {
	var doc userDoc
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return doc.toModel(), nil
}

func (r *MongoUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *MongoUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *MongoUserRepo) FindByIDAndToken(ctx context.Context, id, token string) (*model.User, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid, "sessions.token": token})
}

// AppendSession uses $push so concurrent logins for one user both land.
func (r *MongoUserRepo) AppendSession(ctx context.Context, userID string, s model.Session) error {
	oid, err := bson.ObjectIDFromHex(userID)
	if err != nil {
		return ErrNotFound
	}
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{"$push": bson.M{"sessions": sessionDoc{Token: s.Token, ExpiresAt: s.ExpiresAt}}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoUserRepo) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	oid, err := bson.ObjectIDFromHex(userID)
	if err != nil {
		return ErrNotFound
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{"password": passwordHash}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// PruneExpiredSessions pulls expired sessions out of every user document and
// returns the number of users that changed.
func (r *MongoUserRepo) PruneExpiredSessions(ctx context.Context, now int64) (int64, error) {
	res, err := r.coll.UpdateMany(ctx,
		bson.M{"sessions.expiresAt": bson.M{"$lte": now}},
		bson.M{"$pull": bson.M{"sessions": bson.M{"expiresAt": bson.M{"$lte": now}}}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}
