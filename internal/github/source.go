package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/sirupsen/logrus"

	apperrors "github.com/Kamar-Folarin/github-activity-mirror/internal/errors"
	"github.com/Kamar-Folarin/github-activity-mirror/internal/models"
	"github.com/Kamar-Folarin/github-activity-mirror/internal/utils"
)

// Source reads the acting identity's activity from the GitHub REST API.
// Every listing is lazy: pages are delivered to the callback as they arrive,
// and calling the method again restarts from the first page.
type Source struct {
	client *GitHubClient
	logger *logrus.Logger
}

// NewSource wraps a client as an activity source
func NewSource(client *GitHubClient, logger *logrus.Logger) *Source {
	return &Source{client: client, logger: logger}
}

// AuthenticatedLogin returns the login of the token's owner
func (s *Source) AuthenticatedLogin(ctx context.Context) (string, error) {
	body, err := s.client.get(ctx, "/user")
	if err != nil {
		return "", err
	}
	var user apiUser
	if err := json.Unmarshal(body, &user); err != nil {
		return "", apperrors.NewSourceReadError("failed to decode user", NewGitHubError(200, "failed to decode response", err))
	}
	if user.Login == "" {
		return "", apperrors.NewSourceReadError("GET /user", NewValidationError("login", "empty login for authenticated user"))
	}
	return user.Login, nil
}

// ListRepositories lists every repository visible to the acting identity
func (s *Source) ListRepositories(ctx context.Context, fn func([]models.RepoRef) error) error {
	query := url.Values{}
	query.Set("visibility", "all")
	query.Set("affiliation", "owner,collaborator,organization_member")

	return s.client.paginate(ctx, "/user/repos", query, func(body []byte) error {
		var page []apiRepository
		if err := decodePage(body, &page, "repositories"); err != nil {
			return err
		}
		repos := make([]models.RepoRef, 0, len(page))
		for _, r := range page {
			repo := models.RepoRef{
				Owner:         r.Owner.Login,
				Name:          r.Name,
				FullName:      r.FullName,
				DefaultBranch: r.DefaultBranch,
				Fork:          r.Fork,
			}
			repo.FullName = fullName(repo)
			repos = append(repos, repo)
		}
		return fn(repos)
	})
}

// ListBranches lists the branches of repo whose names contain one of allow (case-insensitive).
// An empty allow-list keeps every branch.
func (s *Source) ListBranches(ctx context.Context, repo models.RepoRef, allow []string, fn func([]models.BranchRef) error) error {
	if err := validateRepo(repo); err != nil {
		return err
	}
	path := fmt.Sprintf("/repos/%s/%s/branches", repo.Owner, repo.Name)

	err := s.client.paginate(ctx, path, nil, func(body []byte) error {
		var page []apiBranch
		if err := decodePage(body, &page, "branches"); err != nil {
			return err
		}
		branches := make([]models.BranchRef, 0, len(page))
		for _, b := range page {
			if !utils.MatchesAny(b.Name, allow) {
				continue
			}
			branches = append(branches, models.BranchRef{Name: b.Name, HeadSHA: b.Commit.SHA})
		}
		return fn(branches)
	})
	return notFound(repo, err)
}

// ListCommits lists commits of repo authored by author, scoped to branch when it is not empty.
// An empty repository yields no commits.
func (s *Source) ListCommits(ctx context.Context, repo models.RepoRef, author, branch string, fn func([]models.ActivityItem) error) error {
	if err := validateRepo(repo); err != nil {
		return err
	}
	path := fmt.Sprintf("/repos/%s/%s/commits", repo.Owner, repo.Name)
	query := url.Values{}
	if author != "" {
		query.Set("author", author)
	}
	if branch != "" {
		query.Set("sha", branch)
	}

	err := s.client.paginate(ctx, path, query, func(body []byte) error {
		var page []apiCommit
		if err := decodePage(body, &page, "commits"); err != nil {
			return err
		}
		items := make([]models.ActivityItem, 0, len(page))
		for _, c := range page {
			items = append(items, models.NewCommitItem(
				fullName(repo),
				c.SHA,
				c.Commit.Author.date(),
				c.Commit.Committer.date(),
				len(c.Parents),
			))
		}
		return fn(items)
	})
	if err != nil && isEmptyRepository(err) {
		s.logger.WithFields(logrus.Fields{
			"repository": fullName(repo),
			"branch":     branch,
		}).Info("Repository is empty, no commits to list")
		return nil
	}
	return notFound(repo, err)
}

// ListIssuesAndPRs lists issues and pull requests of repo opened by creator, in any state
func (s *Source) ListIssuesAndPRs(ctx context.Context, repo models.RepoRef, creator string, fn func([]models.ActivityItem) error) error {
	if err := validateRepo(repo); err != nil {
		return err
	}
	path := fmt.Sprintf("/repos/%s/%s/issues", repo.Owner, repo.Name)
	query := url.Values{}
	query.Set("state", "all")
	if creator != "" {
		query.Set("creator", creator)
	}

	err := s.client.paginate(ctx, path, query, func(body []byte) error {
		var page []apiIssue
		if err := decodePage(body, &page, "issues"); err != nil {
			return err
		}
		items := make([]models.ActivityItem, 0, len(page))
		for _, is := range page {
			if is.PullRequest != nil {
				items = append(items, models.NewPullRequestItem(fullName(repo), is.Number, is.Title, deref(is.CreatedAt)))
				continue
			}
			items = append(items, models.NewIssueItem(fullName(repo), is.Number, is.Title, deref(is.CreatedAt)))
		}
		return fn(items)
	})
	return notFound(repo, err)
}

// decodePage decodes a list page; a malformed page is a source read failure
func decodePage(body []byte, v any, what string) error {
	if err := json.Unmarshal(body, v); err != nil {
		return apperrors.NewSourceReadError("failed to decode "+what, NewGitHubError(200, "failed to decode response", err))
	}
	return nil
}

// notFound replaces a 404 with a RepositoryNotFoundError, keeping the source read classification
func notFound(repo models.RepoRef, err error) error {
	if err == nil || StatusCode(err) != http.StatusNotFound {
		return err
	}
	return apperrors.NewSourceReadError("repository "+fullName(repo), NewRepositoryNotFoundError(repo.Owner, repo.Name))
}

// validateRepo rejects a repository reference that cannot address the API
func validateRepo(repo models.RepoRef) error {
	var err error
	switch {
	case repo.Owner == "":
		err = NewValidationError("owner", "cannot be empty")
	case repo.Name == "":
		err = NewValidationError("name", "cannot be empty")
	default:
		return nil
	}
	return apperrors.NewSourceReadError("repository "+fullName(repo), err)
}

func fullName(repo models.RepoRef) string {
	if repo.FullName != "" {
		return repo.FullName
	}
	return repo.Owner + "/" + repo.Name
}
