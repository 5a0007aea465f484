package models

// RepoRef is a source repository visible to the acting identity
type RepoRef struct {
	Owner         string `json:"owner"`
	Name          string `json:"name"`
	FullName      string `json:"full_name"`
	DefaultBranch string `json:"default_branch"`
	Fork          bool   `json:"fork"`
}

// BranchRef is a branch of a source repository
type BranchRef struct {
	Name    string `json:"name"`
	HeadSHA string `json:"head_sha"`
}

// QualifiedBranch is the ledger identifier for a branch of a repository
func QualifiedBranch(repo RepoRef, branch string) string {
	return repo.FullName + ":" + branch
}

// Identity is a git author or committer
type Identity struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}
