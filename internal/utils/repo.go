package utils

import (
	"fmt"
	"net/url"
	"strings"
)

// ParseRepoURL parses a repository URL or an owner/name slug into its components
func ParseRepoURL(repoURL string) (owner, name string, err error) {
	path := repoURL
	if strings.Contains(repoURL, "://") {
		u, err := url.Parse(repoURL)
		if err != nil {
			return "", "", err
		}
		path = u.Path
	}

	parts := strings.Split(strings.Trim(strings.TrimSuffix(path, ".git"), "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository reference %q", repoURL)
	}

	return parts[0], parts[1], nil
}

// CloneURL builds an authenticated HTTPS clone URL
func CloneURL(host, token, owner, name string) string {
	u := url.URL{
		Scheme: "https",
		Host:   host,
		Path:   "/" + owner + "/" + name + ".git",
	}
	if token != "" {
		u.User = url.UserPassword("x-access-token", token)
	}
	return u.String()
}

// RedactURL hides credentials embedded in a URL
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	u.User = url.User("***")
	return u.String()
}

// ContainsName reports whether name is in names (exact match)
func ContainsName(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

// MatchesAny reports whether name contains any of the patterns, ignoring case.
// An empty pattern list matches everything.
func MatchesAny(name string, patterns []string) bool {
	if len(patterns) == 0 {
		return true
	}
	lower := strings.ToLower(name)
	for _, p := range patterns {
		if strings.Contains(lower, strings.ToLower(p)) {
			return true
		}
	}
	return false
}
