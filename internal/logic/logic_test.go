package logic

import "testing"

func TestModeForChoice(t *testing.T) {
	tests := []struct {
		choice int
		want   Mode
		ok     bool
	}{
		{1, ModeScan, true},
		{2, ModeAlarm, true},
		{3, ModeAccess, true},
		{0, ModeInitialize, false},
		{4, ModeInitialize, false},
		{16, ModeInitialize, false},
	}
	for _, tt := range tests {
		got, ok := ModeForChoice(tt.choice)
		if got != tt.want || ok != tt.ok {
			t.Errorf("choice %d: expected (%v, %v), got (%v, %v)", tt.choice, tt.want, tt.ok, got, ok)
		}
	}
}

func TestModeString(t *testing.T) {
	want := map[Mode]string{
		ModeInitialize: "INITIALIZE",
		ModeScan:       "SCAN",
		ModeAlarm:      "ALARM",
		ModeAccess:     "ACCESS",
		Mode(42):       "UNKNOWN",
	}
	for m, s := range want {
		if m.String() != s {
			t.Errorf("mode %d: expected %q, got %q", int(m), s, m.String())
		}
	}
}

func TestResultString(t *testing.T) {
	if ResultIncomplete.String() != "INCOMPLETE" || ResultIncorrect.String() != "INCORRECT" ||
		ResultCorrect.String() != "CORRECT" || Result(9).String() != "UNKNOWN" {
		t.Error("unexpected result strings")
	}
}

func TestCustomerCount(t *testing.T) {
	tests := []struct {
		breaks uint32
		want   uint32
	}{
		{0, 0},
		{1, 1},
		{2, 1},
		{3, 2},
		{4, 2},
		{101, 51},
	}
	for _, tt := range tests {
		if got := CustomerCount(tt.breaks); got != tt.want {
			t.Errorf("breaks %d: expected %d customers, got %d", tt.breaks, tt.want, got)
		}
	}
}

func TestTwelveHour(t *testing.T) {
	tests := []struct {
		hour   int
		want   int
		suffix string
	}{
		{0, 12, "AM"},
		{1, 1, "AM"},
		{11, 11, "AM"},
		{12, 12, "PM"},
		{13, 1, "PM"},
		{23, 11, "PM"},
	}
	for _, tt := range tests {
		h, s := TwelveHour(tt.hour)
		if h != tt.want || s != tt.suffix {
			t.Errorf("hour %d: expected %d%s, got %d%s", tt.hour, tt.want, tt.suffix, h, s)
		}
	}
}

func TestBreakTrackerAdvance(t *testing.T) {
	var b BreakTracker

	steps := []struct {
		current uint32
		want    uint32
	}{
		{0, 0},
		{1, 1},
		{1, 0},
		{4, 3}, // several breaks between polls
		{4, 0},
	}
	for i, s := range steps {
		if got := b.Advance(s.current); got != s.want {
			t.Errorf("step %d: expected advance %d, got %d", i, s.want, got)
		}
	}
	if b.Seen() != 4 {
		t.Errorf("expected seen 4, got %d", b.Seen())
	}
}

func TestBreakTrackerWrap(t *testing.T) {
	b := BreakTracker{seen: ^uint32(0)}
	if got := b.Advance(1); got != 2 {
		t.Errorf("expected advance 2 across wrap, got %d", got)
	}
}

func TestHistogramRecord(t *testing.T) {
	// (hour, breakDetected) pairs
	events := []struct {
		hour  int
		broke bool
	}{
		{9, true}, {9, false}, {9, true}, {10, true}, {13, false}, {13, true}, {9, true}, {23, true},
	}

	var h Histogram
	want := map[int]uint32{}
	for _, e := range events {
		if e.broke {
			if !h.Record(e.hour, 1) {
				t.Fatalf("record hour %d failed", e.hour)
			}
			want[e.hour]++
		}
	}

	for hour := 0; hour < HoursPerDay; hour++ {
		if h.Slot(hour) != want[hour] {
			t.Errorf("hour %d: expected %d, got %d", hour, want[hour], h.Slot(hour))
		}
	}
	if h.Total() != 6 {
		t.Errorf("expected total 6, got %d", h.Total())
	}
	if h.Busiest() != 9 {
		t.Errorf("expected busiest hour 9, got %d", h.Busiest())
	}
}

func TestHistogramOutOfRange(t *testing.T) {
	var h Histogram
	if h.Record(-1, 1) || h.Record(24, 1) {
		t.Error("out-of-range hours should be rejected")
	}
	if h.Total() != 0 {
		t.Errorf("expected empty histogram, got total %d", h.Total())
	}
	if h.Slot(24) != 0 || h.Slot(-3) != 0 {
		t.Error("out-of-range slots should read 0")
	}
}

func TestHistogramBusiestTies(t *testing.T) {
	var h Histogram
	if h.Busiest() != 0 {
		t.Errorf("empty histogram: expected hour 0, got %d", h.Busiest())
	}

	h.Record(17, 3)
	h.Record(8, 3)
	h.Record(20, 2)
	if h.Busiest() != 8 {
		t.Errorf("tie between 8 and 17: expected 8, got %d", h.Busiest())
	}

	h.Record(17, 1)
	if h.Busiest() != 17 {
		t.Errorf("expected 17 after it pulls ahead, got %d", h.Busiest())
	}
}

func TestHistogramMultiBreakRecord(t *testing.T) {
	var h Histogram
	h.Record(6, 3)
	if h.Slot(6) != 3 {
		t.Errorf("expected slot 3, got %d", h.Slot(6))
	}
}
