package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rayyhq/rayy-backend/internal/model"
)

// The payout flag is written exactly as the caller decided it: an
// absent child must land payout_eligible = false or the partner payout
// query would sweep the no-show in.
func TestRecordAttendance_WritesPayoutFlag(t *testing.T) {
	cases := []struct {
		name     string
		att      model.Attendance
		status   model.BookingStatus
		eligible bool
	}{
		{"present", model.AttendancePresent, model.BookingAttended, true},
		{"absent", model.AttendanceAbsent, model.BookingNoShow, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
			require.NoError(t, err)
			defer db.Close()
			r := NewBookingRepo(db)

			mock.ExpectExec(`UPDATE bookings\s+SET attendance = \?, attendance_notes = \?, attendance_at = \?, booking_status = \?, payout_eligible = \?`).
				WithArgs(string(tc.att), nil, sqlmock.AnyArg(), string(tc.status), tc.eligible, "bk-1").
				WillReturnResult(sqlmock.NewResult(0, 1))

			err = r.RecordAttendance(context.Background(), "bk-1", tc.att, nil, tc.status, tc.eligible)

			assert.NoError(t, err)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRecordAttendance_AlreadyFinalized(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()
	r := NewBookingRepo(db)

	mock.ExpectExec(`UPDATE bookings`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = r.RecordAttendance(context.Background(), "bk-1", model.AttendancePresent, nil, model.BookingAttended, true)

	assert.ErrorIs(t, err, ErrConflict)
}
