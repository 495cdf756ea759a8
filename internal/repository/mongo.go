package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

var _ Store = (*MongoStore)(nil)

// MongoStore implements Store on a single MongoDB database.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
	log    *zap.Logger
}

// Connect dials uri, verifies the connection with a ping and returns a store
// bound to dbName. The caller treats an error as fatal.
func Connect(ctx context.Context, uri, dbName string, log *zap.Logger) (*MongoStore, error) {
	if uri == "" {
		return nil, fmt.Errorf("database connection URL is empty")
	}
	clientOptions := options.Client().ApplyURI(uri).
		SetMaxPoolSize(50).
		SetMinPoolSize(5).
		SetConnectTimeout(5 * time.Second).
		SetServerSelectionTimeout(10 * time.Second).
		// nested documents decode as maps so they serialize as JSON objects
		SetBSONOptions(&options.BSONOptions{DefaultDocumentM: true})

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(connectCtx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	pingCtx, cancelPing := context.WithTimeout(ctx, 5*time.Second)
	defer cancelPing()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	log.Info("Connected to MongoDB", zap.String("database", dbName))
	return &MongoStore{client: client, db: client.Database(dbName), log: log}, nil
}

func (s *MongoStore) Find(ctx context.Context, collection string, filter bson.M, opts FindOptions) ([]bson.M, int64, error) {
	if filter == nil {
		filter = bson.M{}
	}
	var (
		items []bson.M
		total int64
	)
	err := instrument(ctx, "find", collection, func(ctx context.Context) error {
		var err error
		total, err = s.db.Collection(collection).CountDocuments(ctx, filter)
		if err != nil {
			return fmt.Errorf("count %s: %w", collection, err)
		}

		findOpts := options.Find()
		if opts.SortField != "" {
			dir := 1
			if opts.SortDesc {
				dir = -1
			}
			sort := bson.D{{Key: opts.SortField, Value: dir}}
			if opts.SortField != "_id" {
				sort = append(sort, bson.E{Key: "_id", Value: dir})
			}
			findOpts.SetSort(sort)
		}
		if opts.Skip > 0 {
			findOpts.SetSkip(opts.Skip)
		}
		if opts.Limit > 0 {
			findOpts.SetLimit(opts.Limit)
		}

		cursor, err := s.db.Collection(collection).Find(ctx, filter, findOpts)
		if err != nil {
			return fmt.Errorf("find %s: %w", collection, err)
		}
		defer cursor.Close(ctx)
		items = make([]bson.M, 0)
		if err := cursor.All(ctx, &items); err != nil {
			return fmt.Errorf("decode %s: %w", collection, err)
		}
		return nil
	})
	return items, total, err
}

func (s *MongoStore) FindOne(ctx context.Context, collection string, filter bson.M) (bson.M, error) {
	var doc bson.M
	err := instrument(ctx, "find_one", collection, func(ctx context.Context) error {
		err := s.db.Collection(collection).FindOne(ctx, filter).Decode(&doc)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("find one %s: %w", collection, err)
		}
		return nil
	})
	return doc, err
}

func (s *MongoStore) InsertOne(ctx context.Context, collection string, doc bson.M) (any, error) {
	var id any
	err := instrument(ctx, "insert_one", collection, func(ctx context.Context) error {
		res, err := s.db.Collection(collection).InsertOne(ctx, doc)
		if err != nil {
			return fmt.Errorf("insert %s: %w", collection, err)
		}
		id = res.InsertedID
		return nil
	})
	return id, err
}

func (s *MongoStore) FindOneAndUpdate(ctx context.Context, collection string, filter bson.M, set bson.M) (bson.M, error) {
	var doc bson.M
	err := instrument(ctx, "find_one_and_update", collection, func(ctx context.Context) error {
		opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
		err := s.db.Collection(collection).FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&doc)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("update %s: %w", collection, err)
		}
		return nil
	})
	return doc, err
}

func (s *MongoStore) DeleteOne(ctx context.Context, collection string, filter bson.M) (int64, error) {
	var n int64
	err := instrument(ctx, "delete_one", collection, func(ctx context.Context) error {
		res, err := s.db.Collection(collection).DeleteOne(ctx, filter)
		if err != nil {
			return fmt.Errorf("delete %s: %w", collection, err)
		}
		n = res.DeletedCount
		return nil
	})
	return n, err
}

func (s *MongoStore) DeleteMany(ctx context.Context, collection string, filter bson.M) (int64, error) {
	var n int64
	err := instrument(ctx, "delete_many", collection, func(ctx context.Context) error {
		res, err := s.db.Collection(collection).DeleteMany(ctx, filter)
		if err != nil {
			return fmt.Errorf("delete many %s: %w", collection, err)
		}
		n = res.DeletedCount
		return nil
	})
	return n, err
}

func (s *MongoStore) Count(ctx context.Context, collection string, filter bson.M) (int64, error) {
	if filter == nil {
		filter = bson.M{}
	}
	var n int64
	err := instrument(ctx, "count", collection, func(ctx context.Context) error {
		var err error
		n, err = s.db.Collection(collection).CountDocuments(ctx, filter)
		if err != nil {
			return fmt.Errorf("count %s: %w", collection, err)
		}
		return nil
	})
	return n, err
}

func (s *MongoStore) Aggregate(ctx context.Context, collection string, pipeline []bson.M) ([]bson.M, error) {
	var out []bson.M
	err := instrument(ctx, "aggregate", collection, func(ctx context.Context) error {
		cursor, err := s.db.Collection(collection).Aggregate(ctx, pipeline)
		if err != nil {
			return fmt.Errorf("aggregate %s: %w", collection, err)
		}
		defer cursor.Close(ctx)
		out = make([]bson.M, 0)
		if err := cursor.All(ctx, &out); err != nil {
			return fmt.Errorf("decode aggregate %s: %w", collection, err)
		}
		return nil
	})
	return out, err
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Close disconnects the client.
func (s *MongoStore) Close(ctx context.Context) error {
	if err := s.client.Disconnect(ctx); err != nil {
		s.log.Error("Failed to disconnect MongoDB client", zap.Error(err))
		return err
	}
	s.log.Info("Disconnected from MongoDB")
	return nil
}
