package commands

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/depaudit/internal/domain/entities"
	"github.com/rios0rios0/depaudit/internal/domain/repositories"
	infraRepos "github.com/rios0rios0/depaudit/internal/infrastructure/repositories"
)

const (
	branchTimestampLayout = "20060102150405"
	branchSuffixLength    = 8
)

// Remediate is the interface for the remediate command.
type Remediate interface {
	Execute(ctx context.Context, settings *entities.Settings, opts RemediateOptions) (*entities.RemediationResult, error)
}

// RemediateOptions holds runtime options for a single remediation.
type RemediateOptions struct {
	Provider   string
	Token      string
	Repository string
	Request    entities.RemediationRequest
}

// RemediateCommand turns a selection of outdated packages in one manifest into a
// branch, a commit and a pull request. Steps run strictly in order, are never retried,
// and nothing is rolled back when a later step fails.
type RemediateCommand struct {
	providerRegistry *infraRepos.ProviderRegistry
	ecosystems       infraRepos.EcosystemRegistryBuilder
	metrics          repositories.MetricsRepository

	now    func() time.Time
	suffix func() string
}

// NewRemediateCommand creates a new RemediateCommand.
func NewRemediateCommand(
	providerRegistry *infraRepos.ProviderRegistry,
	ecosystems infraRepos.EcosystemRegistryBuilder,
	metrics repositories.MetricsRepository,
) *RemediateCommand {
	return &RemediateCommand{
		providerRegistry: providerRegistry,
		ecosystems:       ecosystems,
		metrics:          metrics,
		now:              time.Now,
		suffix:           randomSuffix,
	}
}

// Execute runs resolve -> fetch -> branch -> rewrite -> commit -> pull_request.
// Every returned error is a *entities.PipelineError naming the step that failed.
func (it *RemediateCommand) Execute(
	ctx context.Context,
	settings *entities.Settings,
	opts RemediateOptions,
) (*entities.RemediationResult, error) {
	request := opts.Request
	if request.FilePath == "" || len(request.Updates) == 0 {
		return nil, entities.NewError(entities.KindInvalidRequest, "file_path and at least one update are required", nil)
	}

	provider, err := openProvider(it.providerRegistry, settings, opts.Provider, opts.Token)
	if err != nil {
		return nil, err
	}

	// resolve
	repo, err := resolveRepository(ctx, provider, opts.Repository)
	if err = it.observe(entities.StepResolve, err); err != nil {
		return nil, entities.NewStepError(
			entities.KindRemediationStepFailed, entities.StepResolve, "repository unreachable", err,
		)
	}
	logger.Infof("[remediate] Updating %d packages in %s of %s", len(request.Updates), request.FilePath, entities.FullName(repo))

	// fetch
	current, err := provider.GetFile(ctx, repo, repo.DefaultBranch, request.FilePath)
	if err = it.observe(entities.StepFetch, err); err != nil {
		return nil, entities.NewStepError(
			entities.KindRemediationStepFailed, entities.StepFetch,
			fmt.Sprintf("failed to fetch %q from %q", request.FilePath, repo.DefaultBranch), err,
		)
	}

	// branch
	branchName := it.branchName()
	err = provider.CreateBranch(ctx, repo, branchName, repo.DefaultBranch)
	if err = it.observe(entities.StepBranch, err); err != nil {
		return nil, entities.NewStepError(
			entities.KindRemediationStepFailed, entities.StepBranch,
			fmt.Sprintf("failed to create branch %q", branchName), err,
		)
	}
	logger.Infof("[remediate] Created branch %q from %q", branchName, repo.DefaultBranch)

	// rewrite
	ecosystem, rewritten, err := it.rewrite(settings, request, current.Content)
	if err = it.observe(entities.StepRewrite, err); err != nil {
		return nil, entities.NewStepError(
			entities.KindRemediationStepFailed, entities.StepRewrite,
			fmt.Sprintf("failed to rewrite %q", request.FilePath), err,
		)
	}

	// commit
	title := pullRequestTitle(ecosystem, request.FilePath)
	err = provider.UpdateFile(ctx, repo, entities.CommitInput{
		BranchName:    branchName,
		Path:          request.FilePath,
		Content:       rewritten,
		ExpectedSHA:   current.SHA,
		CommitMessage: title,
	})
	if err = it.observe(entities.StepCommit, err); err != nil {
		return nil, commitError(request.FilePath, branchName, err)
	}

	// pull_request
	pr, err := provider.CreatePullRequest(ctx, repo, entities.PullRequestInput{
		SourceBranch: branchName,
		TargetBranch: repo.DefaultBranch,
		Title:        title,
		Description:  pullRequestBody(request.Updates),
	})
	if err = it.observe(entities.StepPullRequest, err); err != nil {
		logger.Errorf("[remediate] Branch %q is left in place after the pull request failed", branchName)
		return nil, entities.NewStepError(
			entities.KindRemediationStepFailed, entities.StepPullRequest,
			fmt.Sprintf("failed to open a pull request from %q", branchName), err,
		)
	}

	logger.Infof("[remediate] Created PR #%d: %s (%s)", pr.ID, pr.Title, pr.URL)
	return &entities.RemediationResult{
		BranchName:        branchName,
		PullRequestURL:    pr.URL,
		PullRequestNumber: pr.ID,
	}, nil
}

// observe records the outcome of a step and hands err back unchanged.
func (it *RemediateCommand) observe(step string, err error) error {
	it.metrics.ObserveRemediation(step, err)
	if err != nil {
		logger.Errorf("[remediate] Step %q failed: %v", step, err)
	}
	return err
}

// rewrite applies the requested versions through the ecosystem that owns the file name.
func (it *RemediateCommand) rewrite(
	settings *entities.Settings,
	request entities.RemediationRequest,
	content string,
) (entities.Ecosystem, string, error) {
	ecosystem, ok := it.ecosystems(settings).ForPath(request.FilePath)
	if !ok {
		return "", "", entities.NewError(
			entities.KindManifestParseError,
			fmt.Sprintf("unsupported manifest %q", path.Base(request.FilePath)),
			nil,
		)
	}

	rewritten, err := ecosystem.RewriteManifest(content, request.LatestVersions())
	if err != nil {
		return "", "", err
	}
	return ecosystem.Ecosystem(), rewritten, nil
}

// branchName is unique per call: a second-resolution timestamp plus a random suffix.
func (it *RemediateCommand) branchName() string {
	return entities.BranchPrefix + it.now().UTC().Format(branchTimestampLayout) + "-" + it.suffix()
}

func randomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:branchSuffixLength]
}

func commitError(filePath, branchName string, err error) error {
	if entities.KindOf(err) == entities.KindConcurrentModification {
		return entities.NewStepError(
			entities.KindConcurrentModification, entities.StepCommit,
			fmt.Sprintf("%q changed since it was read, branch %q is left without a commit", filePath, branchName),
			err,
		)
	}
	return entities.NewStepError(
		entities.KindRemediationStepFailed, entities.StepCommit,
		fmt.Sprintf("failed to commit %q on %q", filePath, branchName), err,
	)
}

func pullRequestTitle(ecosystem entities.Ecosystem, filePath string) string {
	return fmt.Sprintf("chore(deps): update %s dependencies in %s", ecosystem, filePath)
}

// pullRequestBody lists one bullet per package, sorted by package name.
func pullRequestBody(updates map[string]entities.VersionUpdate) string {
	packages := make([]string, 0, len(updates))
	for pkg := range updates {
		packages = append(packages, pkg)
	}
	sort.Strings(packages)

	var sb strings.Builder
	sb.WriteString("Updates the following dependencies:\n\n")
	for _, pkg := range packages {
		update := updates[pkg]
		fmt.Fprintf(&sb, "- %s: %s → %s\n", pkg, update.Current, update.Latest)
	}
	return sb.String()
}
