package activity

import (
	"sort"
	"time"
)

const dayFormat = "2006-01-02"

const daysPerWeekRow = 7

// DayCell is one calendar day with its activity count and intensity level.
type DayCell struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
	Level int    `json:"level"`
}

// Report is the contribution calendar served to clients.
type Report struct {
	TotalContributions  int         `json:"totalContributions"`
	ContributionsByWeek [][]DayCell `json:"contributionsByWeek"`
	LongestStreak       int         `json:"longestStreak"`
	CurrentStreak       int         `json:"currentStreak"`
	MaxContributions    int         `json:"maxContributions"`
	Levels              [5]int      `json:"levels"`
	Months              []string    `json:"months"`
	Failures            []Failure   `json:"failures,omitempty"`
}

// Aggregate folds commit times into a per-day count keyed by UTC date.
func Aggregate(times []time.Time) map[string]int {
	days := make(map[string]int, len(times))
	for _, t := range times {
		days[t.UTC().Format(dayFormat)]++
	}
	return days
}

// ComputeStreaks derives the current and longest consecutive-active-day
// runs. The current streak counts backwards from today and ends at the
// first day without activity.
func ComputeStreaks(days map[string]int, today time.Time) (current, longest int) {
	if len(days) == 0 {
		return 0, 0
	}

	for day := startOfDay(today); days[day.Format(dayFormat)] > 0; day = day.AddDate(0, 0, -1) {
		current++
	}

	active := make([]string, 0, len(days))
	for date, count := range days {
		if count > 0 {
			active = append(active, date)
		}
	}
	sort.Strings(active)

	run := 0
	var prev time.Time
	for _, date := range active {
		day, err := time.ParseInLocation(dayFormat, date, time.UTC)
		if err != nil {
			continue
		}
		if run > 0 && day.Sub(prev) == 24*time.Hour {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
		prev = day
	}
	return current, longest
}

// Classify derives the five intensity thresholds from the largest observed
// single-day count: zero, the quarter points, and the maximum itself.
func Classify(days map[string]int) [5]int {
	max := 0
	for _, count := range days {
		if count > max {
			max = count
		}
	}
	return [5]int{0, ceilDiv(max, 4), ceilDiv(max, 2), ceilDiv(3*max, 4), max}
}

// ceilDiv returns the integer ceiling of n divided by d.
func ceilDiv(n, d int) int {
	return (n + d - 1) / d
}

// levelFor returns the index of the smallest threshold at or above count.
func levelFor(count int, levels [5]int) int {
	if count <= 0 {
		return 0
	}
	for i := 1; i < len(levels); i++ {
		if count <= levels[i] {
			return i
		}
	}
	return len(levels) - 1
}

// Bucketize groups ascending dates into week rows of seven annotated days;
// the final row may be shorter.
func Bucketize(dates []string, days map[string]int, levels [5]int) [][]DayCell {
	weeks := make([][]DayCell, 0, (len(dates)+daysPerWeekRow-1)/daysPerWeekRow)
	var row []DayCell
	for _, date := range dates {
		count := days[date]
		row = append(row, DayCell{Date: date, Count: count, Level: levelFor(count, levels)})
		if len(row) == daysPerWeekRow {
			weeks = append(weeks, row)
			row = nil
		}
	}
	if len(row) > 0 {
		weeks = append(weeks, row)
	}
	return weeks
}

// MonthLabels emits a short month name for the first date and every
// subsequent date whose calendar month differs from the previous one.
func MonthLabels(dates []string) []string {
	var labels []string
	previousMonth := time.Month(0)
	for _, date := range dates {
		day, err := time.ParseInLocation(dayFormat, date, time.UTC)
		if err != nil {
			continue
		}
		if day.Month() != previousMonth {
			labels = append(labels, day.Format("Jan"))
			previousMonth = day.Month()
		}
	}
	return labels
}

// BuildReport assembles the calendar for a window of windowDays ending
// today, from a per-day count map.
func BuildReport(days map[string]int, today time.Time, windowDays int) *Report {
	if windowDays <= 0 {
		windowDays = 365
	}

	dates := make([]string, 0, windowDays)
	start := startOfDay(today).AddDate(0, 0, -(windowDays - 1))
	for i := 0; i < windowDays; i++ {
		dates = append(dates, start.AddDate(0, 0, i).Format(dayFormat))
	}

	total, max := 0, 0
	for _, date := range dates {
		count := days[date]
		total += count
		if count > max {
			max = count
		}
	}

	levels := Classify(days)
	current, longest := ComputeStreaks(days, today)

	return &Report{
		TotalContributions:  total,
		ContributionsByWeek: Bucketize(dates, days, levels),
		LongestStreak:       longest,
		CurrentStreak:       current,
		MaxContributions:    max,
		Levels:              levels,
		Months:              MonthLabels(dates),
	}
}
