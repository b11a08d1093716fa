package model

import "time"

// RepoOwner is the owner block embedded in every repository view.
type RepoOwner struct {
	Login     string `json:"login"`
	AvatarURL string `json:"avatar_url"`
	HTMLURL   string `json:"html_url"`
}

// RepoSummary is our reshaped view of a GitHub repository. Search results
// use it directly, and bookmarks store a snapshot of it.
//
// The JSON names (full_name, stars, forks, html_url) are the wire contract
// the client already speaks; they intentionally differ from GitHub's own
// field names (stargazers_count, forks_count).
//
// Description and Language are pointers because GitHub returns null for
// repositories without them, and the client distinguishes null from "".
type RepoSummary struct {
	ID          int64     `json:"id"          validate:"required,gt=0"`
	Name        string    `json:"name"        validate:"required"`
	FullName    string    `json:"full_name"`
	Description *string   `json:"description"`
	Stars       int       `json:"stars"`
	Forks       int       `json:"forks"`
	Language    *string   `json:"language"`
	HTMLURL     string    `json:"html_url"    validate:"required"`
	Owner       RepoOwner `json:"owner"`
}

// RepoLicense is the license block of a repository detail.
type RepoLicense struct {
	Key    string `json:"key"`
	Name   string `json:"name"`
	SPDXID string `json:"spdx_id"`
}

// RepoDetail is the single-repository view served by GET /api/repos/{owner}/{repo}.
type RepoDetail struct {
	RepoSummary
	Watchers      int          `json:"watchers"`
	OpenIssues    int          `json:"open_issues"`
	Topics        []string     `json:"topics"`
	License       *RepoLicense `json:"license"`
	DefaultBranch string       `json:"default_branch"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}
