package store

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/fieldcrm/internal/logging"
)

// OpenOrMemory opens s and returns it. If the database is unavailable the
// failure is logged and a MemoryStore for the same schema is returned, so
// the caller keeps working without persistence. Other errors are returned.
func OpenOrMemory(ctx context.Context, s *SQLiteStore, log logging.Logger) (Store, bool, error) {
	err := s.Open(ctx)
	if err == nil {
		return s, true, nil
	}
	if errors.Is(err, ErrStorageUnavailable) {
		log.Warn(ctx, "local storage unavailable, running without persistence",
			"db", s.schema.Name, "path", s.path, "error", err)
		return NewMemory(s.schema), false, nil
	}
	return nil, false, err
}
