// Package mongostore adapts a MongoDB database to the store capability
// interface. Batches run inside a session transaction, so multi-document
// cascades commit all-or-nothing.
package mongostore

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"forkful/store"
)

type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

func New(client *mongo.Client, dbName string) *Store {
	return &Store{client: client, db: client.Database(dbName)}
}

func toDoc(id string, doc any) (bson.M, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("mongostore: encode document: %w", err)
	}
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("mongostore: decode document: %w", err)
	}
	m["_id"] = id
	return m, nil
}

func (s *Store) Get(ctx context.Context, coll, id string, out any) error {
	err := s.db.Collection(coll).FindOne(ctx, bson.M{"_id": id}).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return store.ErrNotFound
	}
	return err
}

func (s *Store) Create(ctx context.Context, coll, id string, doc any) error {
	m, err := toDoc(id, doc)
	if err != nil {
		return err
	}
	_, err = s.db.Collection(coll).InsertOne(ctx, m)
	if mongo.IsDuplicateKeyError(err) {
		return store.ErrExists
	}
	return err
}

func (s *Store) Set(ctx context.Context, coll, id string, doc any) error {
	m, err := toDoc(id, doc)
	if err != nil {
		return err
	}
	opts := options.Replace().SetUpsert(true)
	_, err = s.db.Collection(coll).ReplaceOne(ctx, bson.M{"_id": id}, m, opts)
	return err
}

func (s *Store) Update(ctx context.Context, coll, id string, upd store.Update) error {
	res, err := s.db.Collection(coll).UpdateOne(ctx, bson.M{"_id": id}, updateDoc(upd))
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, coll, id string) (bool, error) {
	res, err := s.db.Collection(coll).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

func (s *Store) Find(ctx context.Context, coll string, q store.Query, out any) error {
	filter := bson.M{}
	for _, f := range q.Filters {
		switch f.Op {
		case store.OpEq:
			filter[f.Field] = f.Value
		case store.OpLt:
			filter[f.Field] = bson.M{"$lt": f.Value}
		default:
			return fmt.Errorf("mongostore: unsupported filter op %q", f.Op)
		}
	}

	opts := options.Find()
	if q.OrderBy != "" {
		dir := 1
		if q.Desc {
			dir = -1
		}
		opts.SetSort(bson.D{{Key: q.OrderBy, Value: dir}})
	}
	if q.Limit > 0 {
		opts.SetLimit(q.Limit)
	}

	cursor, err := s.db.Collection(coll).Find(ctx, filter, opts)
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)
	return cursor.All(ctx, out)
}

func (s *Store) Batch(ctx context.Context, ops []store.Op) error {
	session, err := s.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		for _, op := range ops {
			coll := s.db.Collection(op.Coll)
			switch op.Kind {
			case store.OpCreate:
				m, err := toDoc(op.ID, op.Doc)
				if err != nil {
					return nil, err
				}
				if _, err := coll.InsertOne(sc, m); err != nil {
					if mongo.IsDuplicateKeyError(err) {
						return nil, store.ErrExists
					}
					return nil, err
				}
			case store.OpSet:
				m, err := toDoc(op.ID, op.Doc)
				if err != nil {
					return nil, err
				}
				opts := options.Replace().SetUpsert(true)
				if _, err := coll.ReplaceOne(sc, bson.M{"_id": op.ID}, m, opts); err != nil {
					return nil, err
				}
			case store.OpUpdate:
				res, err := coll.UpdateOne(sc, bson.M{"_id": op.ID}, updateDoc(op.Update))
				if err != nil {
					return nil, err
				}
				if res.MatchedCount == 0 {
					return nil, store.ErrNotFound
				}
			case store.OpDelete:
				if _, err := coll.DeleteOne(sc, bson.M{"_id": op.ID}); err != nil {
					return nil, err
				}
			}
		}
		return nil, nil
	})
	return err
}

func updateDoc(upd store.Update) bson.M {
	u := bson.M{}
	if len(upd.Set) > 0 {
		u["$set"] = bson.M(upd.Set)
	}
	if len(upd.Inc) > 0 {
		u["$inc"] = bson.M(upd.Inc)
	}
	if len(u) == 0 {
		u["$set"] = bson.M{}
	}
	return u
}
