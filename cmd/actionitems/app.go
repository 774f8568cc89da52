package main

import (
	"fmt"

	"gorm.io/gorm"

	"action-items/internal/config"
	"action-items/internal/extract"
	"action-items/internal/repository"
	"action-items/internal/service"
	"action-items/internal/slack"
)

// app holds the wired services shared by every subcommand.
type app struct {
	cfg    *config.Config
	db     *gorm.DB
	repo   *repository.TaskRepository
	tasks  *service.TaskService
	digest *service.DigestService
	sync   *service.SyncService
}

func newApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	db, err := repository.NewDB(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("db: %w", err)
	}

	repo := repository.NewTaskRepository(db)
	tasks := service.NewTaskService(repo)

	return &app{
		cfg:    cfg,
		db:     db,
		repo:   repo,
		tasks:  tasks,
		digest: service.NewDigestService(tasks),
		sync: service.NewSyncService(service.SyncDeps{
			Store:       repo,
			Credentials: cfg.Credentials,
			NewSource: func(token string) service.MessageSource {
				var opts []slack.Option
				if cfg.SlackAPIURL != "" {
					opts = append(opts, slack.WithAPIURL(cfg.SlackAPIURL))
				}
				return slack.New(token, opts...)
			},
			NewExtractor: func(key string) service.Extractor {
				return extract.New(key, extract.Config{
					Model:              cfg.AnthropicModel,
					BaseURL:            cfg.AnthropicBaseURL,
					HighPriorityAuthor: cfg.HighPriorityAuthor,
				})
			},
			HighPriorityAuthor: cfg.HighPriorityAuthor,
		}),
	}, nil
}

func (a *app) Close() {
	if sqlDB, err := a.db.DB(); err == nil {
		sqlDB.Close()
	}
}
