package models

import "sort"

// DailyTopicCounts maps an ISO day to per-topic article counts.
type DailyTopicCounts map[string]map[string]int

// Days returns the days in ascending order.
func (d DailyTopicCounts) Days() []string {
	days := make([]string, 0, len(d))
	for day := range d {
		days = append(days, day)
	}

	sort.Strings(days)

	return days
}

// Count returns the count of a topic on a day, zero when absent.
func (d DailyTopicCounts) Count(day, topic string) int {
	return d[day][topic]
}

// Total sums every topic count on a day.
func (d DailyTopicCounts) Total(day string) int {
	total := 0
	for _, n := range d[day] {
		total += n
	}

	return total
}
