package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/yukikurage/hierarchy-api/internal/repository"
)

// withConflictRetry runs op and repeats it once when a versioned write lost a race.
// op must re-read everything it writes.
func withConflictRetry(ctx context.Context, kind string, op func() error) error {
	err := op()
	if !errors.Is(err, repository.ErrVersionConflict) {
		return err
	}
	recordWriteConflict(kind)
	logWithFields(ctx, logrus.WarnLevel, "write conflict, retrying", logrus.Fields{"kind": kind})

	if err := ctx.Err(); err != nil {
		return err
	}

	err = op()
	if errors.Is(err, repository.ErrVersionConflict) {
		recordWriteConflict(kind)
		return fmt.Errorf("%s: %w", kind, ErrConflict)
	}
	return err
}
