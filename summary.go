package reengage

import "time"

// Summary holds dashboard counters for one community.
type Summary struct {
	Active    int
	AtRisk    int
	ReEngaged int
}

// Summarize counts rows the way the dashboard shows them. Active and at-risk split rows purely by
// last activity, so a re_engaged member is counted in one of them as well.
func Summarize(rows []MemberActivity, threshold time.Time) Summary {
	var s Summary
	for _, row := range rows {
		if row.LastActiveAt.Before(threshold) {
			s.AtRisk++
		} else {
			s.Active++
		}
		if row.Status == StatusReEngaged {
			s.ReEngaged++
		}
	}
	return s
}
