package document

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

func TestTimestamp_Representations(t *testing.T) {
	want := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
	wantFrac := time.Date(2024, 3, 15, 10, 30, 0, 123000000, time.UTC)

	tests := []struct {
		name  string
		input any
		want  time.Time
	}{
		{"native time", want, want},
		{"native time with zone", want.In(time.FixedZone("ART", -3*3600)), want},
		{"bson datetime", bson.NewDateTimeFromTime(want), want},
		{"zulu string", "2024-03-15T10:30:00Z", want},
		{"zulu string with fraction", "2024-03-15T10:30:00.123Z", wantFrac},
		{"explicit offset", "2024-03-15T07:30:00-03:00", want},
		{"explicit positive offset", "2024-03-15T12:30:00+02:00", want},
		{"naive string", "2024-03-15T10:30:00", want},
		{"extended json string", map[string]any{"$date": "2024-03-15T10:30:00Z"}, want},
		{"extended json fraction", Doc{"$date": "2024-03-15T10:30:00.123Z"}, wantFrac},
		{"extended json millis", Doc{"$date": want.UnixMilli()}, want},
		{"extended json number long", Doc{"$date": Doc{"$numberLong": "1710498600000"}}, want},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Timestamp(tt.input)
			if !ok {
				t.Fatalf("Timestamp(%v) not ok", tt.input)
			}
			if !got.Equal(tt.want) {
				t.Errorf("Timestamp(%v) = %v, want %v", tt.input, got, tt.want)
			}
			if got.Location() != time.UTC {
				t.Errorf("location = %v, want UTC", got.Location())
			}
		})
	}
}

func TestTimestamp_AbsentOrInvalid(t *testing.T) {
	tests := []struct {
		name  string
		input any
	}{
		{"nil", nil},
		{"empty string", ""},
		{"blank string", "   "},
		{"garbage", "not a date"},
		{"zero time", time.Time{}},
		{"bare number", int64(1710498600000)},
		{"empty envelope", Doc{"$date": ""}},
		{"object without date", Doc{"foo": "bar"}},
		{"array", []any{"2024-03-15T10:30:00Z"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got, ok := Timestamp(tt.input); ok {
				t.Errorf("Timestamp(%v) = %v, want not ok", tt.input, got)
			}
			if v := TimestampValue(tt.input); v != nil {
				t.Errorf("TimestampValue(%v) = %v, want nil", tt.input, v)
			}
		})
	}
}

func TestPreferTimestamp(t *testing.T) {
	native := time.Date(2023, 1, 2, 3, 4, 5, 0, time.UTC)

	got := PreferTimestamp(native, "2020-01-01T00:00:00Z")
	if got != native {
		t.Errorf("native field should win, got %v", got)
	}

	got = PreferTimestamp(nil, "2020-01-01T00:00:00Z")
	want := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	if ts, ok := got.(time.Time); !ok || !ts.Equal(want) {
		t.Errorf("legacy fallback = %v, want %v", got, want)
	}

	if got := PreferTimestamp(nil, ""); got != nil {
		t.Errorf("expected nil, got %v", got)
	}
}
