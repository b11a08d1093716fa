package model

import "time"

// Bookmark is a user's saved snapshot of a repository.
//
// ID vs RepoID:
//   - ID is OUR identifier, assigned by the store. DELETE /api/bookmarks/{id}
//     takes this one.
//   - RepoID is GitHub's numeric repository id. (UserID, RepoID) is unique:
//     a user can bookmark a given repository at most once.
//
// The JSON keys (_id, userId, repoId) keep the shape existing clients read.
type Bookmark struct {
	ID          string    `json:"_id"`
	UserID      string    `json:"userId"`
	RepoID      int64     `json:"repoId"`
	Name        string    `json:"name"`
	FullName    string    `json:"full_name"`
	Description *string   `json:"description"`
	Stars       int       `json:"stars"`
	Forks       int       `json:"forks"`
	Language    *string   `json:"language"`
	HTMLURL     string    `json:"html_url"`
	Owner       RepoOwner `json:"owner"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// NewBookmark copies every field of the snapshot into a bookmark owned by userID.
// ID and timestamps are left for the store to fill in.
func NewBookmark(userID string, repo RepoSummary) *Bookmark {
	return &Bookmark{
		UserID:      userID,
		RepoID:      repo.ID,
		Name:        repo.Name,
		FullName:    repo.FullName,
		Description: repo.Description,
		Stars:       repo.Stars,
		Forks:       repo.Forks,
		Language:    repo.Language,
		HTMLURL:     repo.HTMLURL,
		Owner:       repo.Owner,
	}
}
