package fat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDOSTimeRoundTrip(t *testing.T) {
	in := time.Date(2024, time.March, 9, 17, 45, 31, 250*int(time.Millisecond), time.UTC)
	got := decodeDOSTime(encodeDOSTime(in))
	require.Equal(t, time.Date(2024, time.March, 9, 17, 45, 31, 250*int(time.Millisecond), time.UTC), got)

	date, tm, _ := encodeDOSTime(in)
	require.Equal(t, time.Date(2024, time.March, 9, 17, 45, 30, 0, time.UTC), decodeDOSTime(date, tm, 0))
}

func TestDOSTimeClamps(t *testing.T) {
	early := decodeDOSTime(encodeDOSTime(time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC)))
	require.Equal(t, dosEpoch, early)

	late := decodeDOSTime(encodeDOSTime(time.Date(2200, time.January, 1, 0, 0, 0, 0, time.UTC)))
	require.Equal(t, 2107, late.Year())

	require.True(t, decodeDOSTime(0, 0, 0).IsZero())
}
