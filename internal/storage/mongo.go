package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"kinobot/internal/catalog"
)

const channelsDocID = "required_channels"

type Mongo struct {
	client   *mongo.Client
	catalog  *mongo.Collection
	settings *mongo.Collection
	users    *mongo.Collection
}

type catalogDoc struct {
	Code      string         `bson:"_id"`
	Parts     []catalog.Part `bson:"parts"`
	UpdatedAt time.Time      `bson:"updated_at"`
}

type channelsDoc struct {
	ID        string    `bson:"_id"`
	Channels  []string  `bson:"channels"`
	UpdatedAt time.Time `bson:"updated_at"`
}

type userDoc struct {
	UserID    int64     `bson:"_id"`
	FirstSeen time.Time `bson:"first_seen"`
}

func NewMongo(ctx context.Context, uri, database string) (*Mongo, error) {
	if uri == "" {
		return nil, errors.New("MONGODB_URI is empty")
	}
	if database == "" {
		database = "kinobot"
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	db := client.Database(database)
	return &Mongo{
		client:   client,
		catalog:  db.Collection("catalog"),
		settings: db.Collection("settings"),
		users:    db.Collection("users"),
	}, nil
}

func (m *Mongo) Entries(ctx context.Context) ([]catalog.Entry, error) {
	opts := options.Find().SetSort(bson.D{bson.E{Key: "_id", Value: 1}})
	cur, err := m.catalog.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []catalog.Entry
	for cur.Next(ctx) {
		var doc catalogDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode catalog doc: %w", err)
		}
		out = append(out, catalog.Entry{Code: doc.Code, Parts: doc.Parts})
	}
	return out, cur.Err()
}

// SaveEntry replaces the whole document; single-document writes are atomic.
func (m *Mongo) SaveEntry(ctx context.Context, e catalog.Entry) error {
	doc := catalogDoc{Code: e.Code, Parts: e.Parts, UpdatedAt: time.Now()}
	_, err := m.catalog.ReplaceOne(ctx, bson.M{"_id": e.Code}, doc, options.Replace().SetUpsert(true))
	return err
}

func (m *Mongo) DeleteEntry(ctx context.Context, code string) error {
	_, err := m.catalog.DeleteOne(ctx, bson.M{"_id": code})
	return err
}

func (m *Mongo) Channels(ctx context.Context) ([]string, error) {
	var doc channelsDoc
	err := m.settings.FindOne(ctx, bson.M{"_id": channelsDocID}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return doc.Channels, nil
}

func (m *Mongo) SaveChannels(ctx context.Context, channels []string) error {
	doc := channelsDoc{ID: channelsDocID, Channels: channels, UpdatedAt: time.Now()}
	if doc.Channels == nil {
		doc.Channels = []string{}
	}
	_, err := m.settings.ReplaceOne(ctx, bson.M{"_id": channelsDocID}, doc, options.Replace().SetUpsert(true))
	return err
}

func (m *Mongo) AddUser(ctx context.Context, userID int64) error {
	_, err := m.users.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$setOnInsert": userDoc{UserID: userID, FirstSeen: time.Now()}},
		options.Update().SetUpsert(true),
	)
	return err
}

func (m *Mongo) CountUsers(ctx context.Context) (int, error) {
	n, err := m.users.CountDocuments(ctx, bson.M{})
	return int(n), err
}

func (m *Mongo) Close(ctx context.Context) error {
	if m == nil || m.client == nil {
		return nil
	}
	return m.client.Disconnect(ctx)
}
