package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var nairobi = time.FixedZone("EAT", 3*60*60)

func sunday(active bool) *Event {
	return &Event{
		Name:      "Sunday Service",
		Date:      Date{Year: 2026, Month: time.March, Day: 8},
		StartTime: ClockTime{Hour: 9, Minute: 0},
		EndTime:   ClockTime{Hour: 12, Minute: 30},
		Type:      "SERVICE",
		IsActive:  active,
	}
}

func at(hour, minute, second int) time.Time {
	return time.Date(2026, time.March, 8, hour, minute, second, 0, nairobi)
}

func TestClassify(t *testing.T) {
	w := NewWindow(nairobi)
	e := sunday(true)

	cases := []struct {
		name string
		now  time.Time
		want Status
	}{
		{"day before", at(9, 0, 0).AddDate(0, 0, -1), StatusUpcoming},
		{"just before start", at(8, 59, 59), StatusUpcoming},
		{"at start", at(9, 0, 0), StatusOngoing},
		{"midway", at(10, 45, 0), StatusOngoing},
		{"at end", at(12, 30, 0), StatusOngoing},
		{"just after end", at(12, 30, 1), StatusPast},
		{"day after", at(10, 0, 0).AddDate(0, 0, 1), StatusPast},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, w.Classify(e, tc.now))
		})
	}
}

func TestClassifyUsesWindowLocation(t *testing.T) {
	e := sunday(true)
	// 07:00 UTC is 10:00 in Nairobi: ongoing there, upcoming for a UTC evaluator.
	now := time.Date(2026, time.March, 8, 7, 0, 0, 0, time.UTC)

	assert.Equal(t, StatusOngoing, NewWindow(nairobi).Classify(e, now))
	assert.Equal(t, StatusUpcoming, NewWindow(time.UTC).Classify(e, now))
}

func TestIsCheckInOpen(t *testing.T) {
	w := NewWindow(nairobi)

	for _, now := range []time.Time{at(8, 0, 0), at(9, 0, 0), at(11, 0, 0), at(12, 30, 0), at(13, 0, 0)} {
		active := sunday(true)
		inactive := sunday(false)
		ongoing := w.Classify(active, now) == StatusOngoing

		assert.Equal(t, ongoing, w.IsCheckInOpen(active, now), "active at %s", now)
		assert.False(t, w.IsCheckInOpen(inactive, now), "inactive at %s", now)
	}
}

func TestToday(t *testing.T) {
	w := NewWindow(nairobi)
	// 22:30 UTC on the 7th is already the 8th in Nairobi.
	now := time.Date(2026, time.March, 7, 22, 30, 0, 0, time.UTC)
	assert.Equal(t, Date{Year: 2026, Month: time.March, Day: 8}, w.Today(now))
}

func TestValueEncoding(t *testing.T) {
	d, err := ParseDate("2026-03-08")
	require.NoError(t, err)
	c, err := ParseClock("9:05")
	require.NoError(t, err)

	assert.Equal(t, "2026-03-08", d.String())
	assert.Equal(t, "09:05", c.String())
	assert.True(t, Date{Year: 2026, Month: 2, Day: 28}.Before(d))
	assert.False(t, d.Before(d))

	b, err := json.Marshal(struct {
		D Date      `json:"d"`
		C ClockTime `json:"c"`
	}{d, c})
	require.NoError(t, err)
	assert.JSONEq(t, `{"d":"2026-03-08","c":"09:05"}`, string(b))

	var back Date
	require.NoError(t, json.Unmarshal([]byte(`"2026-12-31"`), &back))
	assert.Equal(t, Date{Year: 2026, Month: time.December, Day: 31}, back)

	var scanned ClockTime
	require.NoError(t, scanned.Scan([]byte("18:45")))
	assert.Equal(t, ClockTime{Hour: 18, Minute: 45}, scanned)

	_, err = ParseDate("08/03/2026")
	assert.Error(t, err)
	_, err = ParseClock("25:00")
	assert.Error(t, err)
}
