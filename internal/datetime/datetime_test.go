package datetime_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/victornm/ecoquest/internal/datetime"
)

func TestParseDate(t *testing.T) {
	tests := map[string]struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		"us date and time": {
			in:   "10/5/2024 3:04:05 PM",
			want: time.Date(2024, 10, 5, 15, 4, 5, 0, time.UTC),
		},
		"us date only": {
			in:   "3/15/2023",
			want: time.Date(2023, 3, 15, 0, 0, 0, 0, time.UTC),
		},
		"iso date": {
			in:   "2024-01-31",
			want: time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
		},
		"rfc3339 keeps its offset": {
			in:   "2024-01-31T10:00:00+05:00",
			want: time.Date(2024, 1, 31, 5, 0, 0, 0, time.UTC),
		},
		"empty": {
			in:      "  ",
			wantErr: true,
		},
		"garbage": {
			in:      "not a date",
			wantErr: true,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := datetime.ParseDate(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestParseDuration(t *testing.T) {
	tests := map[string]struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		"hours minutes seconds": {in: "01:30:15", want: time.Hour + 30*time.Minute + 15*time.Second},
		"hours minutes":         {in: "00:45", want: 45 * time.Minute},
		"with days":             {in: "2.04:00:00", want: 52 * time.Hour},
		"with fraction":         {in: "00:00:01.5", want: 1500 * time.Millisecond},
		"bare days":             {in: "3", want: 72 * time.Hour},
		"negative":              {in: "-00:10", want: -10 * time.Minute},
		"go duration":           {in: "1h30m", want: 90 * time.Minute},
		"minutes out of range":  {in: "00:75:00", wantErr: true},
		"empty":                 {in: "", wantErr: true},
		"garbage":               {in: "soon", wantErr: true},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := datetime.ParseDuration(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestFormatEditStamp(t *testing.T) {
	loc := time.FixedZone("YEKT", 5*60*60)
	at := time.Date(2024, 2, 3, 20, 7, 9, 0, time.UTC)

	require.Equal(t, "2/4/2024 1:07:09 AM", datetime.FormatEditStamp(at, loc))
	require.Equal(t, "2/3/2024 8:07:09 PM", datetime.FormatEditStamp(at, nil))
}
