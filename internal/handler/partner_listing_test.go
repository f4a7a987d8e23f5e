package handler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rayyhq/rayy-backend/internal/model"
)

func TestParseWeekdays(t *testing.T) {
	days, err := parseWeekdays("Mon,Wed,Fri")
	require.NoError(t, err)
	assert.True(t, days[time.Monday])
	assert.True(t, days[time.Wednesday])
	assert.True(t, days[time.Friday])
	assert.False(t, days[time.Sunday])

	// full names and mixed case are accepted
	days, err = parseWeekdays("saturday, SUNDAY")
	require.NoError(t, err)
	assert.True(t, days[time.Saturday])
	assert.True(t, days[time.Sunday])

	_, err = parseWeekdays("Mon,Noday")
	assert.Error(t, err)

	_, err = parseWeekdays("")
	assert.Error(t, err)
}

func TestExpandBatchSchedule(t *testing.T) {
	// 2025-03-10 is a Monday
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	b := model.Batch{
		Weekdays:  "Mon,Thu",
		StartTime: "16:00",
		StartDate: "2025-03-01",
	}

	starts, err := expandBatchSchedule(b, 4, now)
	require.NoError(t, err)
	require.Len(t, starts, 4)

	// first hit is today at 16:00 since that is still in the future
	assert.Equal(t, time.Date(2025, 3, 10, 16, 0, 0, 0, time.UTC), starts[0])
	assert.Equal(t, time.Date(2025, 3, 13, 16, 0, 0, 0, time.UTC), starts[1])
	assert.Equal(t, time.Date(2025, 3, 17, 16, 0, 0, 0, time.UTC), starts[2])
	assert.Equal(t, time.Date(2025, 3, 20, 16, 0, 0, 0, time.UTC), starts[3])

	for _, at := range starts {
		assert.True(t, at.After(now))
		wd := at.Weekday()
		assert.True(t, wd == time.Monday || wd == time.Thursday)
	}
}

func TestExpandBatchScheduleSkipsPastStartTime(t *testing.T) {
	// Monday after the batch's daily start time: today must be skipped
	now := time.Date(2025, 3, 10, 17, 0, 0, 0, time.UTC)
	b := model.Batch{
		Weekdays:  "Mon",
		StartTime: "16:00",
		StartDate: "2025-03-01",
	}

	starts, err := expandBatchSchedule(b, 2, now)
	require.NoError(t, err)
	require.Len(t, starts, 2)
	assert.Equal(t, time.Date(2025, 3, 17, 16, 0, 0, 0, time.UTC), starts[0])
	assert.Equal(t, time.Date(2025, 3, 24, 16, 0, 0, 0, time.UTC), starts[1])
}

func TestExpandBatchScheduleFutureStartDate(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	b := model.Batch{
		Weekdays:  "Tue",
		StartTime: "09:30",
		StartDate: "2025-04-01", // a Tuesday, three weeks out
	}

	starts, err := expandBatchSchedule(b, 1, now)
	require.NoError(t, err)
	require.Len(t, starts, 1)
	assert.Equal(t, time.Date(2025, 4, 1, 9, 30, 0, 0, time.UTC), starts[0])
}

func TestExpandBatchScheduleMalformedBatch(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	_, err := expandBatchSchedule(model.Batch{Weekdays: "Mon", StartTime: "4pm", StartDate: "2025-03-01"}, 1, now)
	assert.Error(t, err)

	_, err = expandBatchSchedule(model.Batch{Weekdays: "Mon", StartTime: "16:00", StartDate: "03/01/2025"}, 1, now)
	assert.Error(t, err)
}
