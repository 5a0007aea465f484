package cli

import (
	"github.com/sirupsen/logrus"

	"github.com/Kamar-Folarin/github-activity-mirror/internal/batch"
	"github.com/Kamar-Folarin/github-activity-mirror/internal/config"
	"github.com/Kamar-Folarin/github-activity-mirror/internal/github"
	"github.com/Kamar-Folarin/github-activity-mirror/internal/ledger"
	"github.com/Kamar-Folarin/github-activity-mirror/internal/models"
	"github.com/Kamar-Folarin/github-activity-mirror/internal/replay"
	"github.com/Kamar-Folarin/github-activity-mirror/internal/utils"
	"github.com/Kamar-Folarin/github-activity-mirror/internal/workcopy"
)

// app holds the components behind sync and serve
type app struct {
	client    *github.GitHubClient
	store     ledger.Store
	processor *batch.Processor
	tracker   *replay.StatusTracker
	scheduler *replay.Scheduler
	close     func() error
}

func newApp(cfg *config.Config, logger *logrus.Logger) (*app, error) {
	store, closeStore, err := ledger.Open(cfg.Ledger, logger)
	if err != nil {
		return nil, err
	}

	client := newGitHubClient(cfg, logger)
	processor := batch.NewProcessor(&cfg.Sync.BatchConfig, logger)
	driver := replay.NewDriver(
		github.NewSource(client, logger),
		newWorkingCopy(cfg, logger),
		store,
		processor,
		logger,
		replay.Options{
			ExcludeRepos: cfg.Sync.ReposToExclude,
			BranchFilter: cfg.Sync.BranchFilter,
			Reconcile:    cfg.Sync.Reconcile,
			Identity:     identity(cfg),
		},
	)

	logger.WithFields(logrus.Fields{
		"destination": cfg.DestinationSlug(),
		"workers":     processor.Workers(),
		"reconcile":   cfg.Sync.Reconcile,
	}).Info("Replay components ready")

	tracker := replay.NewStatusTracker()
	return &app{
		client:    client,
		store:     store,
		processor: processor,
		tracker:   tracker,
		scheduler: replay.NewScheduler(driver, tracker, cfg.SyncInterval(), logger),
		close:     closeStore,
	}, nil
}

func newGitHubClient(cfg *config.Config, logger *logrus.Logger) *github.GitHubClient {
	rl := cfg.GitHub.RateLimit
	return github.NewGitHubClient(
		cfg.SourceToken,
		logger,
		github.WithBaseURL(cfg.GitHub.APIBaseURL),
		github.WithRetryConfig(rl.MaxRetries, rl.InitialBackoff, rl.MaxBackoff),
		github.WithRetryMultiplier(rl.RetryMultiplier),
		github.WithRequestTimeout(cfg.GitHub.RequestTimeout),
	)
}

func newWorkingCopy(cfg *config.Config, logger *logrus.Logger) *workcopy.Manager {
	remote := utils.CloneURL(cfg.GitHub.GitHost, cfg.DestToken, cfg.SyncRepoOwner, cfg.SyncRepoName)
	return workcopy.New(cfg.Sync.LocalRepoPath, remote, logger)
}

func identity(cfg *config.Config) models.Identity {
	return models.Identity{Name: cfg.Author.Name, Email: cfg.Author.Email}
}
