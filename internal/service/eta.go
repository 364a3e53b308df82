package service

import (
	"time"
)

// EtaConfig holds the static parameters of the ready-time estimate.
type EtaConfig struct {
	Buffer       time.Duration // fixed slack added to every estimate
	QueuePenalty time.Duration // added per order already in the kitchen
}

// EstimateReadyTime estimates when an order will be ready. The slowest
// item dominates (the kitchen works lines in parallel) and every order
// already queued pushes the estimate out by a fixed penalty, so the
// result is non-decreasing in queueLength. Pure, no I/O.
func EstimateReadyTime(prepTimes []time.Duration, queueLength int, now time.Time, cfg EtaConfig) time.Time {
	var base time.Duration
	for _, pt := range prepTimes {
		if pt > base {
			base = pt
		}
	}

	queueDelay := time.Duration(queueLength) * cfg.QueuePenalty

	return now.Add(base + cfg.Buffer + queueDelay)
}
