package srs

import "math"

// freshnessDecayHours is the e-folding time of the freshness score: a
// concept loses roughly 63% of its newness per day it sits unreviewed.
const freshnessDecayHours = 24.0

// Freshness returns the decaying newness score of a never-reviewed concept,
// used to interleave brand-new concepts into the queue: when nothing is due,
// the concept with the highest freshness surfaces first.
//
// The score is e^(-hours / 24), always in (0, 1]: it equals 1.0 at creation,
// strictly decreases as the concept ages, and asymptotically approaches but
// never reaches zero. Negative input (clock skew) is clamped to zero and
// yields maximum freshness rather than an error; the due-queue read path
// must never fail over a timing artifact.
func Freshness(hoursSinceCreation float64) float64 {
	if hoursSinceCreation < 0 {
		hoursSinceCreation = 0
	}
	return math.Exp(-hoursSinceCreation / freshnessDecayHours)
}
