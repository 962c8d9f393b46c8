package stats

import (
	"testing"
	"time"

	"taskhive.org/internal/task"
)

func day(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestByPriority(t *testing.T) {
	tasks := []task.Task{
		{Priority: task.PriorityHigh, CreatedAt: day("2024-01-01"), Complete: true},
		{Priority: task.PriorityNone, CreatedAt: day("2024-01-01")},
	}
	got := ByPriority(tasks)
	if len(got) != 2 || got["high"] != 1 || got[BucketNone] != 1 {
		t.Fatalf("unexpected breakdown: %v", got)
	}
	if CompletionRate(tasks) != 50 {
		t.Fatalf("expected rate 50, got %d", CompletionRate(tasks))
	}
}

func TestByPriorityCountsSumToTotal(t *testing.T) {
	tasks := []task.Task{
		{Priority: task.PriorityLow},
		{Priority: task.PriorityLow},
		{Priority: task.PriorityMedium},
		{},
		{},
		{},
	}
	got := ByPriority(tasks)
	sum := 0
	for _, n := range got {
		sum += n
	}
	if sum != len(tasks) {
		t.Fatalf("bucket counts sum to %d, want %d", sum, len(tasks))
	}
	if got[BucketNone] != 3 {
		t.Fatalf("expected 3 tasks without priority, got %d", got[BucketNone])
	}
}

func TestByStatus(t *testing.T) {
	tasks := []task.Task{{Complete: true}, {Complete: true}, {}}
	got := ByStatus(tasks)
	if got.Completed != 2 || got.Pending != 1 {
		t.Fatalf("unexpected counts: %+v", got)
	}
}

func TestByTagOrderAndTieBreak(t *testing.T) {
	tasks := []task.Task{
		{Tags: []string{"work", "urgent"}},
		{Tags: []string{"home"}},
		{Tags: []string{"home"}},
		{},
	}
	got := ByTag(tasks)
	want := []Bucket{
		{Label: "home", Count: 2},
		{Label: "work", Count: 1},
		{Label: "urgent", Count: 1},
		{Label: BucketUntagged, Count: 1},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d buckets, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("bucket %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestCompletionRateEmpty(t *testing.T) {
	if got := CompletionRate(nil); got != 0 {
		t.Fatalf("expected 0 for empty collection, got %d", got)
	}
}

func TestCompletionRateRounds(t *testing.T) {
	tasks := []task.Task{{Complete: true}, {}, {}}
	if got := CompletionRate(tasks); got != 33 {
		t.Fatalf("expected 33, got %d", got)
	}
	tasks = []task.Task{{Complete: true}, {Complete: true}, {}}
	if got := CompletionRate(tasks); got != 67 {
		t.Fatalf("expected 67, got %d", got)
	}
}

func TestCompletionRateSeries(t *testing.T) {
	today := day("2024-01-05")
	tasks := []task.Task{
		{CreatedAt: day("2024-01-03"), Complete: true},
		{CreatedAt: day("2024-01-03")},
		{CreatedAt: day("2024-01-05"), Complete: true},
		// Outside the window, must not appear.
		{CreatedAt: day("2024-01-01"), Complete: true},
	}
	got := CompletionRateSeries(tasks, 3, today)
	want := []DayRate{
		{Date: "2024-01-02", Rate: 0},
		{Date: "2024-01-03", Rate: 50},
		{Date: "2024-01-04", Rate: 0},
		{Date: "2024-01-05", Rate: 100},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d days, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("day %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestCompletionRateSeriesZeroWindow(t *testing.T) {
	today := day("2024-01-05")
	got := CompletionRateSeries(nil, 0, today)
	if len(got) != 1 || got[0].Date != "2024-01-05" || got[0].Rate != 0 {
		t.Fatalf("unexpected series: %v", got)
	}
}
