package clock

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	mu sync.Mutex
	t  time.Time
}

func (f *fakeSource) now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeSource) advance(d time.Duration) {
	f.mu.Lock()
	f.t = f.t.Add(d)
	f.mu.Unlock()
}

func TestClockFollowsSource(t *testing.T) {
	src := &fakeSource{t: time.Date(2026, 3, 1, 14, 7, 9, 0, time.UTC)}
	c := NewWithSource(src.now)

	assert.Equal(t, 14, c.CurrentHour())
	assert.Equal(t, "02:07:09 PM", c.CurrentTimeText())

	src.advance(time.Hour)
	assert.Equal(t, 15, c.CurrentHour())
}

func TestClockSet(t *testing.T) {
	src := &fakeSource{t: time.Date(2026, 3, 1, 14, 0, 0, 0, time.UTC)}
	c := NewWithSource(src.now)

	c.Set(time.Date(2017, 2, 17, 0, 30, 0, 0, time.UTC))
	assert.Equal(t, 0, c.CurrentHour())
	assert.Equal(t, "12:30:00 AM", c.CurrentTimeText())

	// The set clock keeps running with the source.
	src.advance(90 * time.Second)
	assert.Equal(t, "12:31:30 AM", c.CurrentTimeText())
	assert.Equal(t, 2017, c.Now().Year())
}

func TestTimeTextIsFixedWidth(t *testing.T) {
	src := &fakeSource{t: time.Date(2026, 1, 1, 9, 5, 0, 0, time.UTC)}
	c := NewWithSource(src.now)
	for i := 0; i < 24; i++ {
		assert.Len(t, c.CurrentTimeText(), len(TextLayout))
		src.advance(time.Hour + 7*time.Minute)
	}
}

func TestHour24(t *testing.T) {
	tests := []struct {
		hour int
		pm   bool
		want int
	}{
		{12, false, 0},
		{1, false, 1},
		{11, false, 11},
		{12, true, 12},
		{1, true, 13},
		{11, true, 23},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Hour24(tt.hour, tt.pm), "%d pm=%v", tt.hour, tt.pm)
	}
}

func TestEntryTime(t *testing.T) {
	e := Entry{Month: 2, Day: 17, Year: 17, Hour: 3, Minute: 45, Second: 10, PM: true}
	got, err := e.Time(time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2017, 2, 17, 15, 45, 10, 0, time.UTC), got)
}

func TestEntryValidation(t *testing.T) {
	valid := Entry{Month: 2, Day: 28, Year: 17, Hour: 12, Minute: 0, Second: 0}
	require.NoError(t, valid.ValidateDate())
	require.NoError(t, valid.ValidateTime())

	badDates := []Entry{
		{Month: 0, Day: 1, Year: 17},
		{Month: 13, Day: 1, Year: 17},
		{Month: 2, Day: 29, Year: 17},
		{Month: 4, Day: 31, Year: 20},
		{Month: 1, Day: 0, Year: 20},
		{Month: 1, Day: 1, Year: 100},
	}
	for _, e := range badDates {
		assert.Error(t, e.ValidateDate(), "%+v", e)
	}
	leap := Entry{Month: 2, Day: 29, Year: 20}
	assert.NoError(t, leap.ValidateDate())

	badTimes := []Entry{
		{Hour: 0, Minute: 0, Second: 0},
		{Hour: 13, Minute: 0, Second: 0},
		{Hour: 1, Minute: 60, Second: 0},
		{Hour: 1, Minute: 0, Second: 60},
	}
	for _, e := range badTimes {
		assert.Error(t, e.ValidateTime(), "%+v", e)
	}

	_, err := Entry{Month: 13, Day: 1, Hour: 1}.Time(time.UTC)
	assert.Error(t, err)
}
