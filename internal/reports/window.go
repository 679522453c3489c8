package reports

import "time"

// WindowSize is the number of trailing years a report covers by default.
const WindowSize = 4

// Window returns the report years: the requested year alone, or the
// trailing window ending at the current year.
func Window(now time.Time, year *int) []int {
	if year != nil {
		return []int{*year}
	}

	current := now.Year()
	years := make([]int, 0, WindowSize)
	for y := current - WindowSize + 1; y <= current; y++ {
		years = append(years, y)
	}
	return years
}
