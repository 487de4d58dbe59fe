package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	apidomain "github.com/cuongbtq/pi-work/internal/api/domain"
	"github.com/cuongbtq/pi-work/internal/worker/domain"
	"github.com/cuongbtq/pi-work/shared/logger"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	swipeID = "6f1c2b8e-3d4a-4f5b-9c6d-7e8f9a0b1c2d"
	jobID   = "0b6f4a1e-2c3d-4e5f-8a9b-0c1d2e3f4a5b"
)

func newMockStorage(t *testing.T) (*Storage, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewStorage(sqlx.NewDb(db, "sqlmock"), logger.NewDiscard().Logger), mock
}

func TestStorage_ApplySwipe(t *testing.T) {
	tests := []struct {
		name    string
		action  apidomain.Action
		counter string
	}{
		{name: "accept", action: apidomain.ActionAccept, counter: "accept_count"},
		{name: "reject", action: apidomain.ActionReject, counter: "reject_count"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMockStorage(t)

			mock.ExpectBegin()
			mock.ExpectExec(`UPDATE swipes\s+SET processed_at = NOW\(\)`).
				WithArgs(swipeID).
				WillReturnResult(sqlmock.NewResult(0, 1))
			mock.ExpectExec(`UPDATE jobs\s+SET ` + tt.counter + ` = ` + tt.counter + ` \+ 1`).
				WithArgs(jobID).
				WillReturnResult(sqlmock.NewResult(0, 1))
			mock.ExpectCommit()

			applied, err := s.ApplySwipe(context.Background(), swipeID, jobID, tt.action)
			require.NoError(t, err)
			assert.True(t, applied)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestStorage_ApplySwipeAlreadyProcessed(t *testing.T) {
	s, mock := newMockStorage(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE swipes`).WithArgs(swipeID).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT EXISTS`).WithArgs(swipeID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	applied, err := s.ApplySwipe(context.Background(), swipeID, jobID, apidomain.ActionAccept)
	require.NoError(t, err)
	assert.False(t, applied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStorage_ApplySwipeNotFound(t *testing.T) {
	s, mock := newMockStorage(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE swipes`).WithArgs(swipeID).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT EXISTS`).WithArgs(swipeID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectRollback()

	_, err := s.ApplySwipe(context.Background(), swipeID, jobID, apidomain.ActionReject)
	require.ErrorIs(t, err, domain.ErrSwipeNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStorage_ApplySwipeCounterFailureRollsBack(t *testing.T) {
	s, mock := newMockStorage(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE swipes`).WithArgs(swipeID).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE jobs`).WithArgs(jobID).WillReturnError(errors.New("deadlock detected"))
	mock.ExpectRollback()

	_, err := s.ApplySwipe(context.Background(), swipeID, jobID, apidomain.ActionAccept)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accept_count")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStorage_MarkJobFilled(t *testing.T) {
	tests := []struct {
		name string
		rows int64
		want bool
	}{
		{name: "open job", rows: 1, want: true},
		{name: "already filled", rows: 0, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMockStorage(t)

			mock.ExpectExec(`UPDATE jobs\s+SET status = \$1`).
				WithArgs(apidomain.JobStatusFilled, jobID, apidomain.JobStatusOpen).
				WillReturnResult(sqlmock.NewResult(0, tt.rows))

			filled, err := s.MarkJobFilled(context.Background(), jobID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, filled)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
