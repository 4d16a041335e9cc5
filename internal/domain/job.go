package domain

import "time"

// Recurrence is the repeat class of a scheduled job.
type Recurrence string

const (
	RecurDaily      Recurrence = "daily"
	RecurTwiceDaily Recurrence = "twice_daily"
	RecurWeekly     Recurrence = "weekly"
)

// Job names.
const (
	JobDailyRewrite    = "daily_rewrite"
	JobColdDrain       = "cold_drain"
	JobTopicResearch   = "topic_research"
	JobSourceDiscovery = "source_discovery"
	JobWeeklySummary   = "weekly_summary"
)

// ClockTime is a wall-clock time of day.
type ClockTime struct {
	Hour   int
	Minute int
}

// JobDescriptor configures one scheduled job.
type JobDescriptor struct {
	Name       string
	Recurrence Recurrence
	Enabled    bool
	At         ClockTime
	Weekday    time.Weekday
	LastRun    *time.Time
}

// Occurrence is a registered future run.
type Occurrence struct {
	Job    string    `json:"job"`
	FireAt time.Time `json:"fire_at"`
}

// RecurrenceOf returns the fixed recurrence class of a known job.
func RecurrenceOf(name string) Recurrence {
	switch name {
	case JobColdDrain:
		return RecurTwiceDaily
	case JobSourceDiscovery, JobWeeklySummary:
		return RecurWeekly
	}
	return RecurDaily
}

// JobNames lists every job in dispatch order.
func JobNames() []string {
	return []string{JobDailyRewrite, JobColdDrain, JobTopicResearch, JobSourceDiscovery, JobWeeklySummary}
}
