package transform

import (
	"math"
	"time"
)

// j2000 is the Julian Date of the J2000.0 epoch.
const j2000 = 2451545.0

// JulianDate converts t (UTC) to a Julian Date.
func JulianDate(t time.Time) float64 {
	t = t.UTC()
	year := float64(t.Year())
	month := float64(t.Month())
	dayFrac := float64(t.Day()) +
		(float64(t.Hour())+
			float64(t.Minute())/60.0+
			(float64(t.Second())+float64(t.Nanosecond())/1e9)/3600.0)/24.0

	// January and February count as months 13 and 14 of the previous year.
	if month <= 2 {
		year--
		month += 12
	}

	century := math.Floor(year / 100)
	gregorian := 2 - century + math.Floor(century/4)

	return math.Floor(365.25*(year+4716)) + math.Floor(30.6001*(month+1)) + dayFrac + gregorian - 1524.5
}

// GMST returns Greenwich Mean Sidereal Time in radians for t, using the
// IAU-82 polynomial (seconds of time, T in Julian centuries of UT1).
func GMST(t time.Time) float64 {
	tUT1 := (JulianDate(t) - j2000) / 36525.0

	sec := 67310.54841 +
		(876600.0*3600.0+8640184.812866)*tUT1 +
		0.093104*tUT1*tUT1 -
		6.2e-6*tUT1*tUT1*tUT1

	sec = math.Mod(sec, 86400.0)
	if sec < 0 {
		sec += 86400.0
	}
	return sec / 86400.0 * 2.0 * math.Pi
}
