// Package stats derives productivity figures from task collections. All
// functions are pure: authorization and scoping happen before the tasks
// reach this package.
package stats

import (
	"math"
	"sort"
	"time"

	"taskhive.org/internal/task"
)

// BucketNone labels tasks without a priority.
const BucketNone = "none"

// BucketUntagged labels tasks with an empty tag set.
const BucketUntagged = "untagged"

// Bucket is one labeled count in an ordered breakdown.
type Bucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// StatusCounts splits a collection by completion state.
type StatusCounts struct {
	Completed int `json:"completed"`
	Pending   int `json:"pending"`
}

// DayRate is the completion rate for one calendar day.
type DayRate struct {
	Date string `json:"date"`
	Rate int    `json:"rate"`
}

// ByPriority counts tasks per priority label. Tasks without a priority land
// in the "none" bucket. Bucket counts sum to len(tasks).
func ByPriority(tasks []task.Task) map[string]int {
	out := make(map[string]int)
	for _, t := range tasks {
		label := string(t.Priority)
		if label == "" {
			label = BucketNone
		}
		out[label]++
	}
	return out
}

// ByStatus counts completed and pending tasks.
func ByStatus(tasks []task.Task) StatusCounts {
	var c StatusCounts
	for _, t := range tasks {
		if t.Complete {
			c.Completed++
		} else {
			c.Pending++
		}
	}
	return c
}

// ByTag counts tasks per tag, ordered by count descending. A task carrying
// several tags is counted once per tag; a task with no tags lands in the
// "untagged" bucket. Ties in count keep the order tags were first seen in.
func ByTag(tasks []task.Task) []Bucket {
	counts := make(map[string]int)
	var order []string
	bump := func(label string) {
		if _, seen := counts[label]; !seen {
			order = append(order, label)
		}
		counts[label]++
	}
	for _, t := range tasks {
		if len(t.Tags) == 0 {
			bump(BucketUntagged)
			continue
		}
		for _, tag := range t.Tags {
			bump(tag)
		}
	}

	firstSeen := make(map[string]int, len(order))
	for i, label := range order {
		firstSeen[label] = i
	}
	out := make([]Bucket, 0, len(order))
	for _, label := range order {
		out = append(out, Bucket{Label: label, Count: counts[label]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return firstSeen[out[i].Label] < firstSeen[out[j].Label]
	})
	return out
}

// CompletionRate returns the completed share as a rounded integer percent.
// An empty collection yields 0, never NaN.
func CompletionRate(tasks []task.Task) int {
	if len(tasks) == 0 {
		return 0
	}
	completed := 0
	for _, t := range tasks {
		if t.Complete {
			completed++
		}
	}
	return rate(completed, len(tasks))
}

// CompletionRateSeries computes a per-day completion rate for each calendar
// day in [today-windowDays, today], inclusive. Tasks are bucketed by the
// calendar date of CreatedAt; days with no tasks appear with rate 0. The
// series is sorted ascending by date.
func CompletionRateSeries(tasks []task.Task, windowDays int, today time.Time) []DayRate {
	if windowDays < 0 {
		windowDays = 0
	}
	type tally struct{ completed, total int }
	byDay := make(map[string]tally)
	for _, t := range tasks {
		day := t.CreatedAt.UTC().Format(time.DateOnly)
		c := byDay[day]
		c.total++
		if t.Complete {
			c.completed++
		}
		byDay[day] = c
	}

	start := today.UTC().AddDate(0, 0, -windowDays)
	out := make([]DayRate, 0, windowDays+1)
	for i := 0; i <= windowDays; i++ {
		day := start.AddDate(0, 0, i).Format(time.DateOnly)
		c := byDay[day]
		r := 0
		if c.total > 0 {
			r = rate(c.completed, c.total)
		}
		out = append(out, DayRate{Date: day, Rate: r})
	}
	return out
}

func rate(completed, total int) int {
	return int(math.Round(100 * float64(completed) / float64(total)))
}
