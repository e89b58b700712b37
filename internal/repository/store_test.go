package repository

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/hierarchy-api/internal/models"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	return db, mock
}

func TestParentRepository_Update(t *testing.T) {
	t.Run("stale version conflicts", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("UPDATE `parents` SET")).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		parent := &models.Parent{ID: 7, Name: "Acme", Version: 3, UserIDs: models.IDList{1, 2}}
		err := NewParentRepository(db).Update(context.Background(), parent)
		assert.ErrorIs(t, err, ErrVersionConflict)
		assert.EqualValues(t, 3, parent.Version, "version is restored on conflict")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("current version bumps", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("UPDATE `parents` SET")).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		parent := &models.Parent{ID: 7, Name: "Acme", Version: 3}
		require.NoError(t, NewParentRepository(db).Update(context.Background(), parent))
		assert.EqualValues(t, 4, parent.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUserRepository_DeleteByOwner(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM `users` WHERE branch_id = ?")).
		WithArgs(uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	deleted, err := NewUserRepository(db).DeleteByOwner(context.Background(), models.OwnerBranch, 5)
	require.NoError(t, err)
	assert.EqualValues(t, 3, deleted)
	assert.NoError(t, mock.ExpectationsWereMet())

	_, err = NewUserRepository(db).DeleteByOwner(context.Background(), "team", 5)
	assert.Error(t, err)
}

func TestScopeFilter(t *testing.T) {
	parentID := uint64(1)
	assert.True(t, ScopeFilter{}.Empty())
	assert.False(t, ScopeFilter{ParentID: &parentID}.Empty())
	assert.False(t, ScopeFilter{BranchIDs: []uint64{2}}.Empty())
}
