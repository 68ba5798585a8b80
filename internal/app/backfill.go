package app

import (
	"context"
	"errors"
)

// BackfillDefaults is the one-off data repair job: rows with null or empty
// label columns get the same defaults new entries receive.
func (a *App) BackfillDefaults(ctx context.Context) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database.dsn must be configured to backfill")
	}
	if closeStore != nil {
		defer closeStore()
	}

	updated, err := store.BackfillDefaults(ctx)
	if err != nil {
		return err
	}

	a.Logger.Info().Int64("updated", updated).Msg("backfill completed")
	return nil
}
