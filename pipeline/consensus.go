package pipeline

import "github.com/atento-labs/callaudit/analysis"

// concurrenceMargin is the score distance within which two assessments
// are considered to agree when the secondary gives no explicit verdict.
const concurrenceMargin = 10

// Merge reconciles one or two assessments into a consensus score.
//
// With a single source the primary score stands unvalidated. With two
// sources, agreement keeps the primary score and marks it validated;
// disagreement averages the two scores (rounded half away from zero)
// and clamps the result. Agreement is the secondary's explicit verdict
// when present, otherwise a score distance within concurrenceMargin.
func Merge(primary, secondary *analysis.Assessment) analysis.Consensus {
	if secondary == nil {
		return analysis.Consensus{
			Score:     analysis.ClampScore(primary.TotalScore),
			Validated: false,
			Sources:   1,
		}
	}

	if concurs(primary, secondary) {
		return analysis.Consensus{
			Score:     analysis.ClampScore(primary.TotalScore),
			Validated: true,
			Sources:   2,
		}
	}

	sum := primary.TotalScore + secondary.TotalScore
	mean := sum / 2
	if sum%2 != 0 {
		if sum > 0 {
			mean = (sum + 1) / 2
		} else {
			mean = (sum - 1) / 2
		}
	}
	return analysis.Consensus{
		Score:     analysis.ClampScore(mean),
		Validated: false,
		Sources:   2,
	}
}

func concurs(primary, secondary *analysis.Assessment) bool {
	if secondary.Concurs != nil {
		return *secondary.Concurs
	}
	diff := primary.TotalScore - secondary.TotalScore
	if diff < 0 {
		diff = -diff
	}
	return diff <= concurrenceMargin
}
