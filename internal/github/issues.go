// Package github creates issues on the site repository from the
// github-issue slash command.
package github

import (
	"context"
	"fmt"
	"log/slog"

	gh "github.com/google/go-github/v68/github"

	"github.com/neststoplabs/mbtbridge/internal/config"
)

// IssueService opens issues on the configured repository.
type IssueService struct {
	logger *slog.Logger
	client *gh.Client
	owner  string
	repo   string
}

func NewIssueService(log *slog.Logger, cfg config.GitHubConfig) *IssueService {
	if log == nil {
		log = slog.Default()
	}
	client := gh.NewClient(nil)
	if cfg.Token != "" {
		client = client.WithAuthToken(cfg.Token)
	}
	return &IssueService{
		logger: log.With(slog.String("component", "github")),
		client: client,
		owner:  cfg.Owner,
		repo:   cfg.Repo,
	}
}

// CreateIssue opens an issue and returns its HTML URL. The reporter name is
// appended to the body so the attribution survives outside Discord.
func (s *IssueService) CreateIssue(ctx context.Context, title, body, reportedBy string) (string, error) {
	fullBody := fmt.Sprintf("%s\n\n— Created by **%s** via Discord", body, reportedBy)
	issue, _, err := s.client.Issues.Create(ctx, s.owner, s.repo, &gh.IssueRequest{
		Title: gh.Ptr(title),
		Body:  gh.Ptr(fullBody),
	})
	if err != nil {
		return "", fmt.Errorf("create issue: %w", err)
	}
	s.logger.Info("issue created",
		slog.String("repo", s.owner+"/"+s.repo),
		slog.Int("number", issue.GetNumber()),
	)
	return issue.GetHTMLURL(), nil
}
