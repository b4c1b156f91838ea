package engine

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// DateKey is the calendar date the daily challenge is keyed on, taken in a
// fixed location so every device agrees.
func DateKey(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(dateLayout)
}

// DailySeed turns "2025-09-12" into 20250912.
func DailySeed(date string) (int, error) {
	if _, err := time.Parse(dateLayout, date); err != nil {
		return 0, fmt.Errorf("daily seed: %w", err)
	}
	return strconv.Atoi(strings.ReplaceAll(date, "-", ""))
}

// DailyIndex picks the catalog position for date out of n players.
func DailyIndex(date string, n int) (int, error) {
	if n <= 0 {
		return 0, ErrEmptyPool
	}
	seed, err := DailySeed(date)
	if err != nil {
		return 0, err
	}
	return seed % n, nil
}
