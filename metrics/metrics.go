package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "reengage"

// Failure reasons used as the "reason" label of candidate failures.
const (
	ReasonMemberLookup = "member_lookup"
	ReasonNotification = "notification"
	ReasonStatusUpdate = "status_update"
)

// Collectors groups every counter the service exports. A nil *Collectors is valid and records nothing.
type Collectors struct {
	runs              prometheus.Counter
	runsAborted       prometheus.Counter
	candidates        prometheus.Counter
	sent              prometheus.Counter
	skipped           prometheus.Counter
	candidateFailures *prometheus.CounterVec
	composerFallbacks prometheus.Counter
	beacons           prometheus.Counter
}

func New(reg prometheus.Registerer) *Collectors {
	c := &Collectors{
		runs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "runs_total",
			Help:      "Completed re-engagement batch runs.",
		}),
		runsAborted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "runs_aborted_total",
			Help:      "Re-engagement batch runs stopped by a candidate read failure.",
		}),
		candidates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "candidates_total",
			Help:      "Members classified as at-risk candidates.",
		}),
		sent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "notifications_sent_total",
			Help:      "Re-engagement notifications delivered.",
		}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "candidates_skipped_total",
			Help:      "Candidates skipped because the platform no longer knows the member.",
		}),
		candidateFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "candidate_failures_total",
			Help:      "Candidates that failed, by failing step.",
		}, []string{"reason"}),
		composerFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "composer",
			Name:      "fallbacks_total",
			Help:      "Messages replaced with the static fallback text.",
		}),
		beacons: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "activity",
			Name:      "beacons_total",
			Help:      "Activity beacons recorded.",
		}),
	}
	reg.MustRegister(c.runs, c.runsAborted, c.candidates, c.sent, c.skipped, c.candidateFailures, c.composerFallbacks, c.beacons)
	return c
}

func (c *Collectors) RunCompleted() {
	if c != nil {
		c.runs.Inc()
	}
}

func (c *Collectors) RunAborted() {
	if c != nil {
		c.runsAborted.Inc()
	}
}

func (c *Collectors) Candidate() {
	if c != nil {
		c.candidates.Inc()
	}
}

func (c *Collectors) Sent() {
	if c != nil {
		c.sent.Inc()
	}
}

func (c *Collectors) Skipped() {
	if c != nil {
		c.skipped.Inc()
	}
}

func (c *Collectors) CandidateFailed(reason string) {
	if c != nil {
		c.candidateFailures.WithLabelValues(reason).Inc()
	}
}

func (c *Collectors) ComposerFallback() {
	if c != nil {
		c.composerFallbacks.Inc()
	}
}

func (c *Collectors) Beacon() {
	if c != nil {
		c.beacons.Inc()
	}
}
