package github

import (
	"time"

	"github.com/sakif/repo-bookmarks/internal/model"
)

// Wire types for the GitHub responses. Only the fields we reshape are
// decoded.

type owner struct {
	Login     string `json:"login"`
	AvatarURL string `json:"avatar_url"`
	HTMLURL   string `json:"html_url"`
}

type license struct {
	Key    string `json:"key"`
	Name   string `json:"name"`
	SPDXID string `json:"spdx_id"`
}

type repository struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	FullName        string    `json:"full_name"`
	Description     *string   `json:"description"`
	StargazersCount int       `json:"stargazers_count"`
	ForksCount      int       `json:"forks_count"`
	WatchersCount   int       `json:"watchers_count"`
	OpenIssuesCount int       `json:"open_issues_count"`
	Language        *string   `json:"language"`
	HTMLURL         string    `json:"html_url"`
	Owner           owner     `json:"owner"`
	Topics          []string  `json:"topics"`
	License         *license  `json:"license"`
	DefaultBranch   string    `json:"default_branch"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type searchResponse struct {
	TotalCount int          `json:"total_count"`
	Items      []repository `json:"items"`
}

func (r repository) summary() model.RepoSummary {
	return model.RepoSummary{
		ID:          r.ID,
		Name:        r.Name,
		FullName:    r.FullName,
		Description: r.Description,
		Stars:       r.StargazersCount,
		Forks:       r.ForksCount,
		Language:    r.Language,
		HTMLURL:     r.HTMLURL,
		Owner: model.RepoOwner{
			Login:     r.Owner.Login,
			AvatarURL: r.Owner.AvatarURL,
			HTMLURL:   r.Owner.HTMLURL,
		},
	}
}

func (r repository) detail() model.RepoDetail {
	d := model.RepoDetail{
		RepoSummary:   r.summary(),
		Watchers:      r.WatchersCount,
		OpenIssues:    r.OpenIssuesCount,
		Topics:        r.Topics,
		DefaultBranch: r.DefaultBranch,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
	if d.Topics == nil {
		d.Topics = []string{}
	}
	if r.License != nil {
		d.License = &model.RepoLicense{Key: r.License.Key, Name: r.License.Name, SPDXID: r.License.SPDXID}
	}
	return d
}
