package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		input   string
		want    TimeOfDay
		wantErr bool
	}{
		{input: "09:00", want: NewTimeOfDay(9, 0)},
		{input: "00:00", want: NewTimeOfDay(0, 0)},
		{input: "23:59", want: NewTimeOfDay(23, 59)},
		{input: "24:00", wantErr: true},
		{input: "12:60", wantErr: true},
		{input: "noon", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseTimeOfDay(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTimeOfDayString(t *testing.T) {
	assert.Equal(t, "09:05", NewTimeOfDay(9, 5).String())
	assert.Equal(t, "00:00", TimeOfDay(0).String())
	assert.Equal(t, "23:30", NewTimeOfDay(23, 30).String())
}

func TestTimeOfDayAdd(t *testing.T) {
	start := NewTimeOfDay(9, 30)
	assert.Equal(t, NewTimeOfDay(10, 0), start.Add(30))
	assert.Equal(t, NewTimeOfDay(9, 30), start.Add(0))
}

func TestTimeOfDayOn(t *testing.T) {
	date := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	at := NewTimeOfDay(14, 30).On(date)
	assert.Equal(t, time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC), at)
}

func TestTimeOfDayJSON(t *testing.T) {
	data, err := json.Marshal(NewTimeOfDay(8, 15))
	require.NoError(t, err)
	assert.Equal(t, `"08:15"`, string(data))

	var parsed TimeOfDay
	require.NoError(t, json.Unmarshal([]byte(`"16:45"`), &parsed))
	assert.Equal(t, NewTimeOfDay(16, 45), parsed)

	assert.Error(t, json.Unmarshal([]byte(`"25:00"`), &parsed))
	assert.Error(t, json.Unmarshal([]byte(`42`), &parsed))
}

func TestTimeOfDaySQL(t *testing.T) {
	v, err := NewTimeOfDay(7, 30).Value()
	require.NoError(t, err)
	assert.Equal(t, "07:30:00", v)

	var scanned TimeOfDay
	require.NoError(t, scanned.Scan("13:15:00"))
	assert.Equal(t, NewTimeOfDay(13, 15), scanned)

	require.NoError(t, scanned.Scan([]byte("09:00:00")))
	assert.Equal(t, NewTimeOfDay(9, 0), scanned)

	require.NoError(t, scanned.Scan(time.Date(0, 1, 1, 11, 45, 0, 0, time.UTC)))
	assert.Equal(t, NewTimeOfDay(11, 45), scanned)

	assert.Error(t, scanned.Scan(42))
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2026-03-02")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), d)

	_, err = ParseDate("02/03/2026")
	assert.Error(t, err)
}

func TestDateOf(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	at := time.Date(2026, 3, 2, 18, 45, 12, 0, loc)
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), DateOf(at))
}
