package config

// SyncConfig holds synchronization configuration
type SyncConfig struct {
	LocalRepoPath  string   `yaml:"local_repo_path" env:"LOCAL_REPO_PATH"`
	ReposToExclude []string `yaml:"repos_to_exclude" env:"REPOS_TO_EXCLUDE" envSeparator:","`
	// BranchFilter is a case-insensitive substring allow-list; empty means all branches
	BranchFilter []string `yaml:"branch_filter" env:"BRANCH_FILTER" envSeparator:","`
	// Reconcile records identifiers already present in the destination history
	Reconcile       bool        `yaml:"reconcile" env:"RECONCILE"`
	IntervalMinutes int         `yaml:"interval_minutes" env:"SYNC_INTERVAL_MINUTES"`
	BatchConfig     BatchConfig `yaml:"batch"`
}

// BatchConfig holds parallel enumeration configuration
type BatchConfig struct {
	Workers int `yaml:"workers" env:"FETCH_CONCURRENCY"`
}

// DefaultSyncConfig returns the default sync configuration
func DefaultSyncConfig() *SyncConfig {
	return &SyncConfig{
		LocalRepoPath:   "./local_repo",
		Reconcile:       true,
		IntervalMinutes: 60,
		BatchConfig: BatchConfig{
			Workers: 4,
		},
	}
}
