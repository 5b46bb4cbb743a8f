// Package credibility converts raw profile attributes into a bounded
// credibility score. Scoring is pure and deterministic: the same profile and
// reference instant always produce the same result, so scores are recomputed
// on demand and never cached.
package credibility

import (
	"math"
	"time"

	"github.com/credwatch/credwatch/profile"
)

// Three-level credibility label derived from the final score.
type Label string

const (
	LabelStrong Label = "strong"
	LabelMedium Label = "medium"
	LabelWeak   Label = "weak"
)

// Label thresholds are contractual: strong iff score >= 75, medium iff
// 50 <= score < 75.
const (
	StrongMinScore = 75
	MediumMinScore = 50
)

// Tunable scoring constants. The sub-score caps sum to 100; penalties can
// push the raw total negative, but the final score clamps to [0,100].
const (
	AgeScoreMax       = 30.0
	AgeSaturationDays = 3650.0 // ~10 years

	FollowerScoreMax       = 15.0
	FollowerSaturation     = 100000.0
	BalanceScoreMax        = 10.0
	BalanceReferenceRatio  = 1.0
	ActivityScoreMax       = 25.0
	ReferencePostsPerDay   = 5.0
	SignalScoreMax         = 20.0
	BonusPaidVerified      = 6.0
	BonusPlatformVerified  = 5.0
	BonusCustomAvatar      = 3.0
	BonusFollowerFloor     = 3.0
	BonusPostFloor         = 3.0
	SignalFollowerMinimum  = 100
	SignalPostMinimum      = 100

	YoungAccountMaxDays    = 30.0
	ProlificPostThreshold  = 1200
	PenaltyYoungProlific   = 25.0
	SpamPostsPerDay        = 300.0
	PenaltySpamRate        = 20.0
	FarmRatioThreshold     = 0.03
	FarmFollowingThreshold = 500
	PenaltyFollowFarm      = 15.0
)

// widths of the log-space bell curves for the balance and activity terms
var (
	balanceLogWidth  = math.Log(10)
	activityLogWidth = math.Log(8)
)

// Result of scoring one profile. Derived, never stored.
type Result struct {
	Score         int     `json:"score"`
	Label         Label   `json:"label"`
	AgeDays       float64 `json:"ageDays"`
	PostsPerDay   float64 `json:"postsPerDay"`
	FollowerRatio float64 `json:"followerRatio"`
}

// Score computes the credibility of a profile as of the given instant.
func Score(p *profile.Profile, now time.Time) Result {
	ageDays := p.AgeDays(now)
	rate := postsPerDay(p.PostsCount, ageDays)
	ratio := float64(p.FollowersCount) / math.Max(1, float64(p.FollowsCount))

	total := ageScore(ageDays) +
		networkScore(p.FollowersCount, ratio) +
		activityScore(rate) +
		signalScore(p) -
		penalty(p, ageDays, rate, ratio)

	final := int(math.Round(clamp(total, 0, 100)))
	return Result{
		Score:         final,
		Label:         LabelFor(final),
		AgeDays:       ageDays,
		PostsPerDay:   rate,
		FollowerRatio: ratio,
	}
}

// LabelFor maps a final score to its three-level label.
func LabelFor(score int) Label {
	switch {
	case score >= StrongMinScore:
		return LabelStrong
	case score >= MediumMinScore:
		return LabelMedium
	default:
		return LabelWeak
	}
}

// logarithmic, saturating near the reference age; older is never worse
func ageScore(ageDays float64) float64 {
	if ageDays <= 0 {
		return 0
	}
	frac := math.Log(1+ageDays) / math.Log(1+AgeSaturationDays)
	return AgeScoreMax * math.Min(1, frac)
}

// follower term saturates logarithmically; balance term peaks at the
// reference follower/following ratio and decays in both directions
func networkScore(followers int64, ratio float64) float64 {
	var followerTerm float64
	if followers > 0 {
		frac := math.Log(1+float64(followers)) / math.Log(1+FollowerSaturation)
		followerTerm = FollowerScoreMax * math.Min(1, frac)
	}
	return followerTerm + balanceTerm(ratio)
}

func balanceTerm(ratio float64) float64 {
	if ratio <= 0 {
		return 0
	}
	dev := math.Log(ratio / BalanceReferenceRatio)
	return BalanceScoreMax * math.Exp(-(dev*dev)/(2*balanceLogWidth*balanceLogWidth))
}

// peaks at the reference posting rate; near-silent and spam-like rates both
// decay symmetrically in log-space
func activityScore(rate float64) float64 {
	if rate <= 0 {
		return 0
	}
	dev := math.Log(rate / ReferencePostsPerDay)
	return ActivityScoreMax * math.Exp(-(dev*dev)/(2*activityLogWidth*activityLogWidth))
}

func signalScore(p *profile.Profile) float64 {
	var total float64
	if p.PaidVerified {
		total += BonusPaidVerified
	}
	if p.Verified {
		total += BonusPlatformVerified
	}
	if !p.DefaultAvatar {
		total += BonusCustomAvatar
	}
	if p.FollowersCount >= SignalFollowerMinimum {
		total += BonusFollowerFloor
	}
	if p.PostsCount >= SignalPostMinimum {
		total += BonusPostFloor
	}
	return math.Min(total, SignalScoreMax)
}

func penalty(p *profile.Profile, ageDays, rate, ratio float64) float64 {
	var total float64
	if ageDays > 0 && ageDays < YoungAccountMaxDays && p.PostsCount > ProlificPostThreshold {
		total += PenaltyYoungProlific
	}
	if rate > SpamPostsPerDay {
		total += PenaltySpamRate
	}
	if ratio < FarmRatioThreshold && p.FollowsCount > FarmFollowingThreshold {
		total += PenaltyFollowFarm
	}
	return total
}

func postsPerDay(posts int64, ageDays float64) float64 {
	if posts <= 0 {
		return 0
	}
	return float64(posts) / math.Max(1, ageDays)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
