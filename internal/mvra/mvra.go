package mvra

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/diffsec/parsentry/internal/report"
)

// Analyze runs the single-repo analysis pipeline against a local working
// copy and returns whatever findings it produced.
type Analyze func(ctx context.Context, repo Repo, path string) ([]report.Finding, error)

// Coordinator drives a full MVRA run: discover candidate repositories,
// materialize each locally, analyze it, and aggregate the results.
type Coordinator struct {
	discoverer   *Discoverer
	materializer *Materializer
	logger       *logrus.Entry
}

// NewCoordinator wires a Discoverer and Materializer from cfg.
func NewCoordinator(ctx context.Context, cfg Config) *Coordinator {
	return &Coordinator{
		discoverer:   NewDiscoverer(ctx, cfg),
		materializer: NewMaterializer(cfg),
		logger:       logrus.WithField("component", "mvra"),
	}
}

// Run discovers repositories, materializes and analyzes each in turn, and
// aggregates the resulting findings into cross-repository variants. A
// repository that fails to clone or analyze is recorded with its error and
// does not stop the rest of the run.
func (c *Coordinator) Run(ctx context.Context, analyze Analyze) (*Results, error) {
	repos, err := c.discoverer.Discover(ctx)
	if err != nil {
		return nil, fmt.Errorf("discover repositories: %w", err)
	}

	results := &Results{}
	for _, repo := range repos {
		if ctx.Err() != nil {
			break
		}

		rr := RepoResult{Repo: repo}

		path, err := c.materializer.Materialize(repo)
		if err != nil {
			rr.Err = err.Error()
			c.logger.WithError(err).WithField("repo", repo.FullName()).
				Warn("dropping repository after materialization failure")
			results.Repos = append(results.Repos, rr)
			continue
		}
		rr.Path = path

		findings, err := analyze(ctx, repo, path)
		if err != nil {
			rr.Err = err.Error()
			c.logger.WithError(err).WithField("repo", repo.FullName()).
				Warn("dropping repository after analysis failure")
			results.Repos = append(results.Repos, rr)
			continue
		}
		rr.Findings = findings
		results.Repos = append(results.Repos, rr)
	}

	results.Variants = Aggregate(results.Repos)
	return results, nil
}
