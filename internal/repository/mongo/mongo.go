// Package mongo implements the repository interfaces on MongoDB.
//
// Selected when DATABASE_URL starts with mongodb:// or mongodb+srv://.
// Uniqueness is enforced with unique indexes created at startup, and a
// duplicate-key write error is reported as apperror.ErrConflict.
package mongo

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/sakif/repo-bookmarks/internal/repository"
)

const (
	usersCollection     = "users"
	bookmarksCollection = "bookmarks"
	defaultDBName       = "repo_bookmarks"
	disconnectTimeout   = 10 * time.Second
)

var _ repository.Store = (*Mongo)(nil)

// Mongo is a thin adapter over the client and its two collections.
type Mongo struct {
	client    *mongodriver.Client
	db        *mongodriver.Database
	users     *mongodriver.Collection
	bookmarks *mongodriver.Collection
}

// New connects, pings the primary, and ensures indexes.
func New(ctx context.Context, uri string) (*Mongo, error) {
	if uri == "" {
		return nil, fmt.Errorf("mongo: empty uri")
	}

	cli, err := mongodriver.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	if err := cli.Ping(ctx, readpref.Primary()); err != nil {
		_ = cli.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	db := cli.Database(databaseFromURI(uri))
	m := &Mongo{
		client:    cli,
		db:        db,
		users:     db.Collection(usersCollection),
		bookmarks: db.Collection(bookmarksCollection),
	}

	if err := m.ensureIndexes(ctx); err != nil {
		_ = m.Close()
		return nil, err
	}

	return m, nil
}

func (m *Mongo) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, readpref.Primary())
}

func (m *Mongo) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
	defer cancel()
	return m.client.Disconnect(ctx)
}

// ensureIndexes creates:
//   - users: unique email
//   - bookmarks: unique (userId, repoId), plus (userId, createdAt) for listing
func (m *Mongo) ensureIndexes(ctx context.Context) error {
	_, err := m.users.Indexes().CreateOne(ctx, mongodriver.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetName("email_unique").SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("mongo ensure user indexes: %w", err)
	}

	models := []mongodriver.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "repoId", Value: 1}},
			Options: options.Index().SetName("user_repo_unique").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: 1}},
			Options: options.Index().SetName("user_created_asc"),
		},
	}
	if _, err := m.bookmarks.Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("mongo ensure bookmark indexes: %w", err)
	}
	return nil
}

// databaseFromURI extracts the database name from the URI path, falling
// back to defaultDBName.
func databaseFromURI(uri string) string {
	u, err := url.Parse(uri)
	if err == nil {
		if name := strings.Trim(u.Path, "/"); name != "" {
			return name
		}
	}
	return defaultDBName
}

// MongoDB stores milliseconds.
func nowMS() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
