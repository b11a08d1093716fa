package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/sakif/repo-bookmarks/internal/apperror"
	"github.com/sakif/repo-bookmarks/internal/github"
	"github.com/sakif/repo-bookmarks/internal/model"
)

// SearchPageSize is how many results one search returns.
const SearchPageSize = 10

const upstreamFailed = "GitHub API failed"

// GitHubClient is the part of *github.Client RepoService uses.
type GitHubClient interface {
	SearchRepositories(ctx context.Context, query string, perPage int) ([]model.RepoSummary, error)
	GetRepository(ctx context.Context, owner, repo string) (*model.RepoDetail, error)
	GetReadmeHTML(ctx context.Context, owner, repo string) (string, error)
}

// RepoService proxies the GitHub API: search, repository detail, and
// README. Failures are logged here, once, with the upstream cause; clients
// only ever see "GitHub API failed" or a not-found.
type RepoService struct {
	gh     GitHubClient
	logger *slog.Logger
}

func NewRepoService(gh GitHubClient, logger *slog.Logger) *RepoService {
	return &RepoService{gh: gh, logger: logger}
}

// Search returns at most SearchPageSize repositories matching query. An
// empty or blank query is rejected before any network call.
func (s *RepoService) Search(ctx context.Context, query string) ([]model.RepoSummary, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperror.ValidationFailed("query", "Query is required")
	}

	repos, err := s.gh.SearchRepositories(ctx, query, SearchPageSize)
	if err != nil {
		s.logger.Error("github search failed", slog.String("query", query), slog.String("error", err.Error()))
		return nil, apperror.Upstream(upstreamFailed, err)
	}
	if len(repos) > SearchPageSize {
		repos = repos[:SearchPageSize]
	}
	return repos, nil
}

// Repo returns one repository's detail.
func (s *RepoService) Repo(ctx context.Context, owner, name string) (*model.RepoDetail, error) {
	if err := validateRepoRef(owner, name); err != nil {
		return nil, err
	}

	d, err := s.gh.GetRepository(ctx, owner, name)
	if err != nil {
		return nil, s.mapError(err, "repository", owner+"/"+name)
	}
	return d, nil
}

// Readme returns the repository README rendered to HTML by GitHub.
func (s *RepoService) Readme(ctx context.Context, owner, name string) (string, error) {
	if err := validateRepoRef(owner, name); err != nil {
		return "", err
	}

	html, err := s.gh.GetReadmeHTML(ctx, owner, name)
	if err != nil {
		return "", s.mapError(err, "readme", owner+"/"+name)
	}
	return html, nil
}

func (s *RepoService) mapError(err error, resource, ref string) error {
	if errors.Is(err, github.ErrNotFound) {
		return apperror.NotFound(resource, ref)
	}
	s.logger.Error("github request failed",
		slog.String("resource", resource),
		slog.String("ref", ref),
		slog.String("error", err.Error()),
	)
	return apperror.Upstream(upstreamFailed, err)
}

func validateRepoRef(owner, name string) error {
	if strings.TrimSpace(owner) == "" {
		return apperror.ValidationFailed("owner", "owner is required")
	}
	if strings.TrimSpace(name) == "" {
		return apperror.ValidationFailed("repo", "repo is required")
	}
	return nil
}
