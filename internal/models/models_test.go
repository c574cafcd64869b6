package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveSignupRole(t *testing.T) {
	assert.Equal(t, RoleAdmin, ResolveSignupRole("", "Site.ADMIN@example.com"))
	assert.Equal(t, RoleStudent, ResolveSignupRole(RoleStudent, "ada@example.com"))
	assert.Equal(t, RoleAdmin, ResolveSignupRole(RoleStudent, "admin@example.com"))
	assert.Equal(t, RoleAdmin, ResolveSignupRole(RoleAdmin, "ada@example.com"))
}

func TestAttendanceStatusEvaluate(t *testing.T) {
	assert.Equal(t, AttendanceInProgress, AttendanceInProgress.Evaluate(29, 30))
	assert.Equal(t, AttendancePresent, AttendanceInProgress.Evaluate(30, 30))
	assert.Equal(t, AttendancePresent, AttendancePresent.Evaluate(0, 30))
	assert.Equal(t, AttendanceInProgress, AttendanceStatus("").Evaluate(5, 30))
}

func TestAttendanceRecomputeIsIdempotent(t *testing.T) {
	a := Attendance{Status: AttendanceInProgress}
	assert.True(t, a.Recompute(35, 30))
	assert.False(t, a.Recompute(35, 30))
	assert.Equal(t, AttendancePresent, a.Status)

	assert.True(t, a.Recompute(10, 30))
	assert.Equal(t, AttendancePresent, a.Status)
	assert.Equal(t, int64(10), a.TotalSeconds)
}

func TestTimeOfDay(t *testing.T) {
	tod, err := ParseTimeOfDay("09:05:07")
	require.NoError(t, err)
	assert.Equal(t, "09:05:07", tod.String())

	_, err = ParseTimeOfDay("9am")
	assert.Error(t, err)
	_, err = ParseTimeOfDay("25:00:00")
	assert.Error(t, err)

	var scanned TimeOfDay
	require.NoError(t, scanned.Scan([]byte("13:45:10.123456")))
	assert.Equal(t, "13:45:10", scanned.String())

	out, err := json.Marshal(tod)
	require.NoError(t, err)
	assert.Equal(t, `"09:05:07"`, string(out))

	var nilTOD *TimeOfDay
	assert.Nil(t, nilTOD.StringPtr())
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "00:00:35", FormatDuration(35))
	assert.Equal(t, "03:00:00", FormatDuration(10800))
	assert.Equal(t, "26:01:01", FormatDuration(26*3600+61))
	assert.Nil(t, FormatDurationPtr(0))
	assert.Equal(t, "00:00:20", *FormatDurationPtr(20))
}

func TestDateOf(t *testing.T) {
	loc := time.FixedZone("WIB", 7*3600)
	instant := time.Date(2024, 1, 1, 20, 0, 0, 0, time.UTC)
	assert.Equal(t, "2024-01-02", FormatDate(DateOf(instant, loc)))
	assert.Equal(t, "2024-01-01", FormatDate(DateOf(instant, nil)))

	d, err := ParseDate("2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, 29, d.Day())
	_, err = ParseDate("29/02/2024")
	assert.Error(t, err)
}
