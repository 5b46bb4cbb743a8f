package cohort

import (
	"math"
	"time"

	"github.com/credwatch/credwatch/credibility"
)

// Four-level raid risk label derived from the raid score.
type Risk string

const (
	RiskHigh  Risk = "high"
	RiskMed   Risk = "medium"
	RiskWatch Risk = "watch"
	RiskClean Risk = "clean"
)

// Risk thresholds are contractual: high iff score >= 70, medium iff
// 50 <= score < 70, watch iff 35 <= score < 50.
const (
	HighRiskMinScore   = 70
	MediumRiskMinScore = 50
	WatchRiskMinScore  = 35
)

// Detection policy constants. The weighting and the dual cluster threshold
// encode the policy and are tunable, but changing them changes which cohorts
// get flagged.
const (
	MinSampleSize = 8
	MaxSampleSize = 24

	NewAccountMaxDays     = 45.0
	VeryNewAccountMaxDays = 14.0
	LowScoreThreshold     = 40
	LowFollowerThreshold  = 30

	// a creation-month cluster needs both an absolute and a relative
	// majority, so small or evenly-spread samples are not flagged
	ClusterMinCount = 4
	ClusterMinShare = 0.45

	WeightNewAccounts     = 0.4
	WeightVeryNewAccounts = 0.2
	WeightLowScore        = 0.3
	WeightLowFollowers    = 0.1
	ClusterBonus          = 10.0
)

// bucket key for profiles whose creation timestamp is unknown; never counts
// toward the cluster signal
const UnknownMonthBucket = "unknown"

// RaidSummary is the aggregate risk assessment for one cohort sample.
// Ephemeral: recomputed per scan, never cached.
type RaidSummary struct {
	SampleSize          int     `json:"sampleSize"`
	Score               int     `json:"score"`
	Risk                Risk    `json:"risk"`
	NewAccounts         int     `json:"newAccounts"`
	VeryNewAccounts     int     `json:"veryNewAccounts"`
	LowScoreAccounts    int     `json:"lowScoreAccounts"`
	LowFollowerAccounts int     `json:"lowFollowerAccounts"`
	MeanScore           float64 `json:"meanScore"`
	DominantMonth       string  `json:"dominantMonth,omitempty"`
	DominantMonthCount  int     `json:"dominantMonthCount"`
	DominantMonthShare  float64 `json:"dominantMonthShare"`
	ClusterSignal       bool    `json:"clusterSignal"`
}

// Analyze computes the aggregate raid risk for a sample as of the given
// instant. Returns nil when the sample is too small to say anything useful.
func Analyze(s *Sample, now time.Time) *RaidSummary {
	if s == nil || s.Size() < MinSampleSize {
		return nil
	}

	size := s.Size()
	buckets := make(map[string]int)
	var scoreSum float64
	sum := &RaidSummary{SampleSize: size}

	for _, p := range s.Members() {
		res := credibility.Score(p, now)
		scoreSum += float64(res.Score)

		if !p.CreatedAt.IsZero() {
			age := p.AgeDays(now)
			if age < NewAccountMaxDays {
				sum.NewAccounts++
			}
			if age < VeryNewAccountMaxDays {
				sum.VeryNewAccounts++
			}
		}
		if res.Score < LowScoreThreshold {
			sum.LowScoreAccounts++
		}
		if p.FollowersCount < LowFollowerThreshold {
			sum.LowFollowerAccounts++
		}
		buckets[monthBucket(p.CreatedAt)]++
	}

	sum.MeanScore = scoreSum / float64(size)
	sum.DominantMonth, sum.DominantMonthCount = dominantBucket(buckets)
	sum.DominantMonthShare = float64(sum.DominantMonthCount) / float64(size)
	sum.ClusterSignal = sum.DominantMonthCount >= ClusterMinCount &&
		sum.DominantMonthShare >= ClusterMinShare

	raw := 100 * (WeightNewAccounts*frac(sum.NewAccounts, size) +
		WeightVeryNewAccounts*frac(sum.VeryNewAccounts, size) +
		WeightLowScore*frac(sum.LowScoreAccounts, size) +
		WeightLowFollowers*frac(sum.LowFollowerAccounts, size))
	if sum.ClusterSignal {
		raw += ClusterBonus
	}
	sum.Score = int(math.Round(math.Max(0, math.Min(100, raw))))
	sum.Risk = RiskFor(sum.Score)
	return sum
}

// RiskFor maps a raid score to its four-level risk label.
func RiskFor(score int) Risk {
	switch {
	case score >= HighRiskMinScore:
		return RiskHigh
	case score >= MediumRiskMinScore:
		return RiskMed
	case score >= WatchRiskMinScore:
		return RiskWatch
	default:
		return RiskClean
	}
}

func frac(n, total int) float64 {
	return float64(n) / float64(total)
}

func monthBucket(created time.Time) string {
	if created.IsZero() {
		return UnknownMonthBucket
	}
	return created.UTC().Format("2006-01")
}

// modal creation-month bucket among members with a known creation timestamp
func dominantBucket(buckets map[string]int) (string, int) {
	var month string
	var count int
	for k, v := range buckets {
		if k == UnknownMonthBucket {
			continue
		}
		if v > count || (v == count && k > month) {
			month = k
			count = v
		}
	}
	return month, count
}
