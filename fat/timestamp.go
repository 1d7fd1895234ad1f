package fat

import (
	"time"
)

var dosEpoch = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

// encodeDOSTime packs t into the FAT date and time words. The time word
// has two second resolution; tenths carries the remainder in 10ms units.
func encodeDOSTime(t time.Time) (date uint16, tm uint16, tenths uint8) {
	t = t.UTC()
	if t.Before(dosEpoch) {
		t = dosEpoch
	}
	if t.Year() > 2107 {
		t = time.Date(2107, time.December, 31, 23, 59, 59, 0, time.UTC)
	}
	date = uint16(t.Year()-1980)<<9 | uint16(t.Month())<<5 | uint16(t.Day())
	tm = uint16(t.Hour())<<11 | uint16(t.Minute())<<5 | uint16(t.Second()/2)
	tenths = uint8((t.Second()%2)*100 + t.Nanosecond()/int(10*time.Millisecond))
	return date, tm, tenths
}

func decodeDOSTime(date, tm uint16, tenths uint8) time.Time {
	if date == 0 {
		return time.Time{}
	}
	year := int(date>>9) + 1980
	month := time.Month(date >> 5 & 0x0F)
	day := int(date & 0x1F)
	hour := int(tm >> 11)
	min := int(tm >> 5 & 0x3F)
	sec := int(tm&0x1F) * 2
	if tenths >= 200 {
		tenths = 0
	}
	extra := time.Duration(tenths) * 10 * time.Millisecond
	return time.Date(year, month, day, hour, min, sec, 0, time.UTC).Add(extra)
}
