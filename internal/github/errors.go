package github

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// GitHubError is a failed API exchange. StatusCode is 0 when no response arrived.
type GitHubError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *GitHubError) Error() string {
	msg := fmt.Sprintf("github: status %d", e.StatusCode)
	if e.StatusCode == 0 {
		msg = "github: no response"
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *GitHubError) Unwrap() error {
	return e.Err
}

// RateLimitError reports an exhausted primary or secondary quota
type RateLimitError struct {
	ResetTime time.Time
	Limit     int
	Remaining int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("github: rate limit exhausted (%d/%d left), resets at %s",
		e.Remaining, e.Limit, e.ResetTime.UTC().Format(time.RFC3339))
}

// ValidationError rejects a request before it is sent
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("github: invalid %s: %s", e.Field, e.Reason)
}

// RepositoryNotFoundError is a 404 on a repository-scoped listing
type RepositoryNotFoundError struct {
	Owner string
	Name  string
}

func (e *RepositoryNotFoundError) Error() string {
	return fmt.Sprintf("github: repository %s/%s not found or not visible to the token", e.Owner, e.Name)
}

func NewGitHubError(statusCode int, message string, err error) error {
	return &GitHubError{StatusCode: statusCode, Message: message, Err: err}
}

func NewRateLimitError(resetTime time.Time, limit, remaining int) error {
	return &RateLimitError{ResetTime: resetTime, Limit: limit, Remaining: remaining}
}

func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

func NewRepositoryNotFoundError(owner, name string) error {
	return &RepositoryNotFoundError{Owner: owner, Name: name}
}

// IsRateLimitError reports whether err carries a RateLimitError
func IsRateLimitError(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}

// StatusCode returns the HTTP status carried by a GitHubError, or 0
func StatusCode(err error) int {
	var ghErr *GitHubError
	if errors.As(err, &ghErr) {
		return ghErr.StatusCode
	}
	return 0
}

// isRateLimited reports a 429, or a 403 with the quota at zero
func isRateLimited(resp *http.Response) bool {
	return resp.StatusCode == http.StatusTooManyRequests ||
		(resp.StatusCode == http.StatusForbidden && resp.Header.Get("X-RateLimit-Remaining") == "0")
}

// isEmptyRepository reports the 409 GitHub returns when listing commits of an empty repository
func isEmptyRepository(err error) bool {
	return StatusCode(err) == http.StatusConflict
}
