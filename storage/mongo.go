package storage

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
	"go.mongodb.org/mongo-driver/v2/x/mongo/driver/connstring"

	"github.com/atento-labs/callaudit/analysis"
)

const (
	evaluationsCollection = "audio_evaluations"
	resultsCollection     = "audio_analysis_results"
)

// MongoStore is the MongoDB-backed Store used in production.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

type evaluationDoc struct {
	ID        bson.ObjectID `bson:"_id,omitempty"`
	FileName  string        `bson:"fileName"`
	Sent      bool          `bson:"sent"`
	Treated   bool          `bson:"treated"`
	CreatedAt time.Time     `bson:"createdAt"`
	UpdatedAt time.Time     `bson:"updatedAt"`
}

// NewMongoStore connects to MongoDB and ensures the indexes the worker
// relies on, including the unique result-per-file index.
func NewMongoStore(connString string) (*MongoStore, error) {
	clientOpts := options.Client().ApplyURI(connString)

	client, err := mongo.Connect(clientOpts)
	if err != nil {
		return nil, err
	}

	// Extract database name from the connection string
	dbName := "callaudit" // default
	if cs, err := connstring.ParseAndValidate(connString); err == nil && cs.Database != "" {
		dbName = cs.Database
	}

	db := client.Database(dbName)

	indexModel := mongo.IndexModel{
		Keys: bson.D{
			{Key: "fileName", Value: 1},
		},
	}
	if _, err = db.Collection(evaluationsCollection).Indexes().CreateOne(context.TODO(), indexModel); err != nil {
		return nil, err
	}

	indexModel = mongo.IndexModel{
		Keys: bson.D{
			{Key: "treated", Value: 1},
		},
	}
	if _, err = db.Collection(evaluationsCollection).Indexes().CreateOne(context.TODO(), indexModel); err != nil {
		return nil, err
	}

	// One result per file name, enforced at the store as the backstop
	// for the idempotency guard.
	indexModel = mongo.IndexModel{
		Keys: bson.D{
			{Key: "fileName", Value: 1},
		},
		Options: options.Index().SetUnique(true),
	}
	if _, err = db.Collection(resultsCollection).Indexes().CreateOne(context.TODO(), indexModel); err != nil {
		return nil, err
	}

	indexModel = mongo.IndexModel{
		Keys: bson.D{
			{Key: "createdAt", Value: -1},
		},
	}
	if _, err = db.Collection(resultsCollection).Indexes().CreateOne(context.TODO(), indexModel); err != nil {
		return nil, err
	}

	return &MongoStore{client: client, db: db}, nil
}

func (s *MongoStore) FindEvaluation(ctx context.Context, fileName string) (*Evaluation, error) {
	var doc evaluationDoc
	err := s.db.Collection(evaluationsCollection).
		FindOne(ctx, bson.M{"fileName": fileName}).
		Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &Evaluation{
		ID:        doc.ID.Hex(),
		FileName:  doc.FileName,
		Sent:      doc.Sent,
		Treated:   doc.Treated,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}, nil
}

func (s *MongoStore) ResultExists(ctx context.Context, fileName string) (bool, error) {
	count, err := s.db.Collection(resultsCollection).
		CountDocuments(ctx, bson.M{"fileName": fileName}, options.Count().SetLimit(1))
	return count > 0, err
}

func (s *MongoStore) InsertResult(ctx context.Context, result *analysis.Result) (string, error) {
	res, err := s.db.Collection(resultsCollection).InsertOne(ctx, result)
	if mongo.IsDuplicateKeyError(err) {
		return "", ErrDuplicateResult
	}
	if err != nil {
		return "", err
	}

	if id, ok := res.InsertedID.(bson.ObjectID); ok {
		return id.Hex(), nil
	}
	return "", nil
}

// MarkTreated performs the conditional treated=false -> true transition as
// a single update, so concurrent deliveries for the same file cannot both
// win it.
func (s *MongoStore) MarkTreated(ctx context.Context, fileName string) (bool, error) {
	res, err := s.db.Collection(evaluationsCollection).UpdateOne(ctx,
		bson.M{"fileName": fileName, "treated": false},
		bson.M{"$set": bson.M{"treated": true, "updatedAt": time.Now().UTC()}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *MongoStore) Close() error {
	return s.client.Disconnect(context.Background())
}
