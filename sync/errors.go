package sync

import "errors"

var (
	// ErrCatalogUnavailable marks a workspace-store read failure before any
	// write happened. The whole run fails and the caller may retry.
	ErrCatalogUnavailable = errors.New("catalog store unavailable")

	// ErrFolderProvision marks a destination-folder failure. Without a folder
	// nothing can be materialized, so the run fails.
	ErrFolderProvision = errors.New("folder provisioning failed")

	// ErrSyncInProgress is returned when another sync for the same user holds
	// the cross-process lock.
	ErrSyncInProgress = errors.New("sync already in progress for user")
)

// Retryable reports whether the caller should retry the failed run.
func Retryable(err error) bool {
	return errors.Is(err, ErrCatalogUnavailable) || errors.Is(err, ErrSyncInProgress)
}
