package commands

import (
	"go.uber.org/dig"
)

// RegisterProviders registers all command providers with the DIG container.
func RegisterProviders(container *dig.Container) error {
	// Register command constructors
	if err := container.Provide(NewAuditCommand); err != nil {
		return err
	}
	if err := container.Provide(NewRemediateCommand); err != nil {
		return err
	}
	if err := container.Provide(NewCleanupCommand); err != nil {
		return err
	}
	if err := container.Provide(NewDiscoverCommand); err != nil {
		return err
	}

	// Bind interfaces to implementations
	if err := container.Provide(func(impl *AuditCommand) Audit {
		return impl
	}); err != nil {
		return err
	}
	if err := container.Provide(func(impl *RemediateCommand) Remediate {
		return impl
	}); err != nil {
		return err
	}
	if err := container.Provide(func(impl *CleanupCommand) Cleanup {
		return impl
	}); err != nil {
		return err
	}
	if err := container.Provide(func(impl *DiscoverCommand) Discover {
		return impl
	}); err != nil {
		return err
	}

	return nil
}
