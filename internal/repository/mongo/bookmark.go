package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sakif/repo-bookmarks/internal/apperror"
	"github.com/sakif/repo-bookmarks/internal/model"
)

type ownerDoc struct {
	Login     string `bson:"login"`
	AvatarURL string `bson:"avatar_url"`
	HTMLURL   string `bson:"html_url"`
}

// bookmarkDoc mirrors model.Bookmark. userId is stored as a string so the
// unique (userId, repoId) index works for any user id format.
type bookmarkDoc struct {
	ID          primitive.ObjectID `bson:"_id"`
	UserID      string             `bson:"userId"`
	RepoID      int64              `bson:"repoId"`
	Name        string             `bson:"name"`
	FullName    string             `bson:"full_name"`
	Description *string            `bson:"description"`
	Stars       int                `bson:"stars"`
	Forks       int                `bson:"forks"`
	Language    *string            `bson:"language"`
	HTMLURL     string             `bson:"html_url"`
	Owner       ownerDoc           `bson:"owner"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

func (d *bookmarkDoc) toModel() model.Bookmark {
	return model.Bookmark{
		ID:          d.ID.Hex(),
		UserID:      d.UserID,
		RepoID:      d.RepoID,
		Name:        d.Name,
		FullName:    d.FullName,
		Description: d.Description,
		Stars:       d.Stars,
		Forks:       d.Forks,
		Language:    d.Language,
		HTMLURL:     d.HTMLURL,
		Owner: model.RepoOwner{
			Login:     d.Owner.Login,
			AvatarURL: d.Owner.AvatarURL,
			HTMLURL:   d.Owner.HTMLURL,
		},
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

func (m *Mongo) CreateBookmark(ctx context.Context, b *model.Bookmark) error {
	now := nowMS()
	doc := bookmarkDoc{
		ID:          primitive.NewObjectID(),
		UserID:      b.UserID,
		RepoID:      b.RepoID,
		Name:        b.Name,
		FullName:    b.FullName,
		Description: b.Description,
		Stars:       b.Stars,
		Forks:       b.Forks,
		Language:    b.Language,
		HTMLURL:     b.HTMLURL,
		Owner: ownerDoc{
			Login:     b.Owner.Login,
			AvatarURL: b.Owner.AvatarURL,
			HTMLURL:   b.Owner.HTMLURL,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := m.bookmarks.InsertOne(ctx, doc); err != nil {
		if mongodriver.IsDuplicateKeyError(err) {
			return apperror.Conflict("Already bookmarked")
		}
		return fmt.Errorf("mongo: inserting bookmark: %w", err)
	}

	b.ID = doc.ID.Hex()
	b.CreatedAt = now
	b.UpdatedAt = now
	return nil
}

// ListBookmarks sorts by (createdAt, _id). ObjectIDs grow monotonically per
// process, which breaks ties between inserts in the same millisecond.
func (m *Mongo) ListBookmarks(ctx context.Context, userID string) ([]model.Bookmark, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})

	cur, err := m.bookmarks.Find(ctx, bson.D{{Key: "userId", Value: userID}}, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo: listing bookmarks: %w", err)
	}
	defer cur.Close(ctx)

	out := make([]model.Bookmark, 0)
	for cur.Next(ctx) {
		var doc bookmarkDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("mongo: decoding bookmark: %w", err)
		}
		out = append(out, doc.toModel())
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("mongo: iterating bookmarks: %w", err)
	}
	return out, nil
}

// DeleteBookmark treats a malformed id like a missing one: nothing happens.
func (m *Mongo) DeleteBookmark(ctx context.Context, id, userID string) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, nil
	}

	filter := bson.D{{Key: "_id", Value: oid}, {Key: "userId", Value: userID}}
	res, err := m.bookmarks.DeleteOne(ctx, filter)
	if err != nil {
		return false, fmt.Errorf("mongo: deleting bookmark: %w", err)
	}
	return res.DeletedCount > 0, nil
}

func (m *Mongo) DeleteBookmarksByUser(ctx context.Context, userID string) error {
	if _, err := m.bookmarks.DeleteMany(ctx, bson.D{{Key: "userId", Value: userID}}); err != nil {
		return fmt.Errorf("mongo: deleting user bookmarks: %w", err)
	}
	return nil
}
