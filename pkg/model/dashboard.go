package model

import "time"

// DashboardSummary is the aggregate read model behind the dashboard
// endpoint. Counts are computed from the store and cached briefly.
type DashboardSummary struct {
	ConfirmedCount int64     `json:"confirmed_count"`
	CancelledCount int64     `json:"cancelled_count"`
	UpcomingCount  int64     `json:"upcoming_count"`
	TodayCount     int64     `json:"today_count"`
	GeneratedAt    time.Time `json:"generated_at"`
}
