//go:build unit

package commands_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rios0rios0/depaudit/internal/domain/commands"
	"github.com/rios0rios0/depaudit/internal/domain/entities"
	doubles "github.com/rios0rios0/depaudit/test/infrastructure/repositorydoubles"
)

func TestCleanupCommandExecute(t *testing.T) {
	t.Parallel()

	t.Run("should delete a remediation branch", func(t *testing.T) {
		t.Parallel()

		// given
		spy := &doubles.SpyProviderRepository{}
		cmd := commands.NewCleanupCommand(newProviderRegistry(spy))
		branch := "dependency-updates-20240301123045-deadbeef"

		// when
		err := cmd.Execute(context.Background(), newSettings(), commands.CleanupOptions{
			Repository: "octocat/app",
			Branch:     branch,
		})

		// then
		require.NoError(t, err)
		assert.Equal(t, []string{branch}, spy.DeletedBranches)
	})

	t.Run("should refuse branches not created by a remediation", func(t *testing.T) {
		t.Parallel()

		// given
		spy := &doubles.SpyProviderRepository{}
		cmd := commands.NewCleanupCommand(newProviderRegistry(spy))

		// when
		err := cmd.Execute(context.Background(), newSettings(), commands.CleanupOptions{
			Repository: "octocat/app",
			Branch:     "main",
		})

		// then
		require.ErrorIs(t, err, entities.ErrInvalidRequest)
		assert.Empty(t, spy.DeletedBranches)
		assert.Empty(t, spy.RequestedRefs)
	})

	t.Run("should report a failed deletion as RepositoryUnavailable", func(t *testing.T) {
		t.Parallel()

		// given
		spy := &doubles.SpyProviderRepository{DeleteBranchErr: errors.New("422 Reference does not exist")}
		cmd := commands.NewCleanupCommand(newProviderRegistry(spy))

		// when
		err := cmd.Execute(context.Background(), newSettings(), commands.CleanupOptions{
			Repository: "octocat/app",
			Branch:     "dependency-updates-20240301123045-deadbeef",
		})

		// then
		require.ErrorIs(t, err, entities.ErrRepositoryUnavailable)
	})
}
