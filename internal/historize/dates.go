package historize

import (
	"strconv"
	"time"

	"github.com/rotisserie/eris"
)

// VintageStart returns January 1 of the vintage year, the dt_debut of
// records inserted for that vintage.
func VintageStart(vintage string) (time.Time, error) {
	year, err := vintageYear(vintage)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC), nil
}

// VintageEnd returns December 31 of the vintage year.
func VintageEnd(vintage string) (time.Time, error) {
	year, err := vintageYear(vintage)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC), nil
}

// CloseDate returns December 31 of the year preceding the vintage: the
// dt_fin applied to records superseded by that vintage.
func CloseDate(vintage string) (time.Time, error) {
	year, err := vintageYear(vintage)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(year-1, time.December, 31, 0, 0, 0, 0, time.UTC), nil
}

func vintageYear(vintage string) (int, error) {
	year, err := strconv.Atoi(vintage)
	if err != nil || year < 1900 || year > 2200 {
		return 0, eris.Errorf("historize: invalid vintage %q, expected a year", vintage)
	}
	return year, nil
}
