package engine

// PHQ-2 answer codes. The "little interest or pleasure" question carries one
// extra top band (everyday) that the "feeling down" question does not; the
// two vocabularies are scored through independent lookup tables so a
// different list length can never shift a code's value.
const (
	AnswerNotAtAll       = "not_at_all"
	AnswerSeveralDays    = "several_days"
	AnswerMoreThanHalf   = "more_than_half"
	AnswerNearlyEveryday = "nearly_everyday"
	AnswerEveryday       = "everyday"
)

var interestScores = map[string]int{
	AnswerNotAtAll:       0,
	AnswerSeveralDays:    1,
	AnswerMoreThanHalf:   2,
	AnswerNearlyEveryday: 3,
	// Alternate label for the top band; same per-item cap of 3.
	AnswerEveryday: 3,
}

var depressedScores = map[string]int{
	AnswerNotAtAll:       0,
	AnswerSeveralDays:    1,
	AnswerMoreThanHalf:   2,
	AnswerNearlyEveryday: 3,
}

// ScoreBand buckets a PHQ-2 total for triage display.
type ScoreBand string

const (
	BandNormal   ScoreBand = "normal"
	BandWatch    ScoreBand = "watch"
	BandElevated ScoreBand = "elevated"
)

// ScoreResult is the computed PHQ-2 outcome. It is recomputed from the two
// source answer codes at submission time and never hand-edited.
type ScoreResult struct {
	RawAnswers [2]string `json:"raw_answers"`
	Total      int       `json:"total"`
	Band       ScoreBand `json:"band"`
}

// ScorePHQ2 maps the two answer codes to their composite score. Unmapped or
// empty codes contribute 0 rather than failing, so a partially answered
// screening still produces a deterministic result.
func ScorePHQ2(interest, depressed string) ScoreResult {
	total := interestScores[interest] + depressedScores[depressed]
	return ScoreResult{
		RawAnswers: [2]string{interest, depressed},
		Total:      total,
		Band:       bandFor(total),
	}
}

func bandFor(total int) ScoreBand {
	switch {
	case total >= 5:
		return BandElevated
	case total >= 3:
		return BandWatch
	default:
		return BandNormal
	}
}

// InterestAnswerCodes returns the answer vocabulary for the interest/pleasure
// question in severity order.
func InterestAnswerCodes() []string {
	return []string{AnswerNotAtAll, AnswerSeveralDays, AnswerMoreThanHalf, AnswerNearlyEveryday, AnswerEveryday}
}

// DepressedAnswerCodes returns the answer vocabulary for the down/depressed
// question in severity order.
func DepressedAnswerCodes() []string {
	return []string{AnswerNotAtAll, AnswerSeveralDays, AnswerMoreThanHalf, AnswerNearlyEveryday}
}
