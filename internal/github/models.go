package github

import "time"

// apiUser mirrors GET /user
type apiUser struct {
	Login string `json:"login"`
}

// apiRepository mirrors an entry of GET /user/repos
type apiRepository struct {
	Name          string  `json:"name"`
	FullName      string  `json:"full_name"`
	Owner         apiUser `json:"owner"`
	DefaultBranch string  `json:"default_branch"`
	Fork          bool    `json:"fork"`
}

// apiBranch mirrors an entry of GET /repos/{owner}/{repo}/branches
type apiBranch struct {
	Name   string `json:"name"`
	Commit struct {
		SHA string `json:"sha"`
	} `json:"commit"`
}

type apiSignature struct {
	Name  string     `json:"name"`
	Email string     `json:"email"`
	Date  *time.Time `json:"date"`
}

// apiCommit mirrors an entry of GET /repos/{owner}/{repo}/commits
type apiCommit struct {
	SHA    string `json:"sha"`
	Commit struct {
		Message   string        `json:"message"`
		Author    *apiSignature `json:"author"`
		Committer *apiSignature `json:"committer"`
	} `json:"commit"`
	Parents []struct {
		SHA string `json:"sha"`
	} `json:"parents"`
}

// apiIssue mirrors an entry of GET /repos/{owner}/{repo}/issues.
// Pull requests carry a non-nil PullRequest link.
type apiIssue struct {
	Number      int        `json:"number"`
	Title       string     `json:"title"`
	State       string     `json:"state"`
	CreatedAt   *time.Time `json:"created_at"`
	PullRequest *struct {
		URL string `json:"url"`
	} `json:"pull_request"`
}

func (s *apiSignature) date() time.Time {
	if s == nil || s.Date == nil {
		return time.Time{}
	}
	return *s.Date
}

func deref(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
