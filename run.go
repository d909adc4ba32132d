package reengage

import (
	"errors"
	"time"
)

var ErrRunNotFound = errors.New("run not found")

// RunReport summarizes one pass of the re-engagement batch job.
type RunReport struct {
	Id            string    `json:"id"`
	StartedAt     time.Time `json:"startedAt"`
	CompletedAt   time.Time `json:"completedAt"`
	ThresholdDays int       `json:"thresholdDays"`
	Processed     int       `json:"processed"`
	Sent          int       `json:"sent"`
	Skipped       int       `json:"skipped"`
	Failed        int       `json:"failed"`

	// Aborted runs stopped early, counters cover only the candidates handled before that.
	Aborted bool   `json:"aborted"`
	Error   string `json:"error,omitempty"`
}

type RunStore interface {
	Save(report RunReport) error

	ById(id string) (RunReport, error)

	Last() (RunReport, error)
}
