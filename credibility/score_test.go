package credibility

import (
	"testing"
	"time"

	"github.com/credwatch/credwatch/profile"

	"github.com/stretchr/testify/assert"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func aged(days int) time.Time {
	return testNow.AddDate(0, 0, -days)
}

func TestLabelBoundaries(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(LabelWeak, LabelFor(49))
	assert.Equal(LabelMedium, LabelFor(50))
	assert.Equal(LabelMedium, LabelFor(74))
	assert.Equal(LabelStrong, LabelFor(75))
	assert.Equal(LabelWeak, LabelFor(0))
	assert.Equal(LabelStrong, LabelFor(100))
}

func TestScoreBounded(t *testing.T) {
	assert := assert.New(t)

	profiles := []profile.Profile{
		{},
		{Handle: "fresh", CreatedAt: aged(1)},
		{Handle: "spam", CreatedAt: aged(2), PostsCount: 5000, DefaultAvatar: true},
		{Handle: "whale", CreatedAt: aged(6000), FollowersCount: 90_000_000, FollowsCount: 1, PostsCount: 80_000, Verified: true, PaidVerified: true},
		{Handle: "farm", CreatedAt: aged(400), FollowersCount: 10, FollowsCount: 7000, PostsCount: 100},
		{Handle: "lurker", CreatedAt: aged(3000), FollowersCount: 5, FollowsCount: 20, PostsCount: 1},
	}
	for _, p := range profiles {
		res := Score(&p, testNow)
		assert.GreaterOrEqual(res.Score, 0, "handle %q", p.Handle)
		assert.LessOrEqual(res.Score, 100, "handle %q", p.Handle)
		assert.Equal(LabelFor(res.Score), res.Label)
	}
}

func TestScoreDeterministic(t *testing.T) {
	assert := assert.New(t)

	p := profile.Profile{
		Handle:         "steady",
		CreatedAt:      aged(900),
		FollowersCount: 4000,
		FollowsCount:   900,
		PostsCount:     3000,
	}
	assert.Equal(Score(&p, testNow), Score(&p, testNow))
}

func TestAgeSubScoreMonotonic(t *testing.T) {
	assert := assert.New(t)

	prev := 0.0
	for _, days := range []float64{1, 7, 30, 180, 365, 1000, 3650, 9000} {
		cur := ageScore(days)
		assert.GreaterOrEqual(cur, prev, "age %v days", days)
		prev = cur
	}
	// saturates at the reference age
	assert.InDelta(AgeScoreMax, ageScore(AgeSaturationDays), 0.01)
	assert.InDelta(AgeScoreMax, ageScore(20000), 0.01)
}

func TestActivityPeaksAtReferenceRate(t *testing.T) {
	assert := assert.New(t)

	peak := activityScore(ReferencePostsPerDay)
	assert.InDelta(ActivityScoreMax, peak, 0.01)

	// decays in both directions, and keeps decaying beyond the reference
	assert.Less(activityScore(50), peak)
	assert.Less(activityScore(500), activityScore(50))
	assert.Less(activityScore(0.01), peak)
	assert.Equal(0.0, activityScore(0))
}

func TestBalanceTermDecaysBothWays(t *testing.T) {
	assert := assert.New(t)

	peak := balanceTerm(BalanceReferenceRatio)
	assert.InDelta(BalanceScoreMax, peak, 0.01)
	assert.Less(balanceTerm(100), peak)
	assert.Less(balanceTerm(0.01), peak)
}

func TestEstablishedAccountScoresStrong(t *testing.T) {
	assert := assert.New(t)

	p := profile.Profile{
		Handle:         "veteran",
		CreatedAt:      aged(3650),
		FollowersCount: 10_000,
		FollowsCount:   200,
		PostsCount:     5_000,
		PaidVerified:   true,
	}
	res := Score(&p, testNow)
	assert.GreaterOrEqual(res.Score, 75)
	assert.Equal(LabelStrong, res.Label)
	assert.InDelta(AgeScoreMax, ageScore(res.AgeDays), 0.05)
}

func TestYoungProlificAccountScoresWeak(t *testing.T) {
	assert := assert.New(t)

	p := profile.Profile{
		Handle:        "burst",
		CreatedAt:     aged(5),
		PostsCount:    1500,
		FollowsCount:  40,
		DefaultAvatar: true,
	}
	res := Score(&p, testNow)
	assert.Less(res.Score, 40)
	assert.Equal(LabelWeak, res.Label)
	assert.InDelta(5, res.AgeDays, 0.1)
	assert.InDelta(300, res.PostsPerDay, 5)
}

func TestPenaltiesApply(t *testing.T) {
	assert := assert.New(t)

	follows := profile.Profile{
		Handle:         "farmy",
		CreatedAt:      aged(200),
		FollowersCount: 10,
		FollowsCount:   600,
		PostsCount:     300,
	}
	base := follows
	base.FollowsCount = 300

	// crossing the follow-farm thresholds costs the penalty
	assert.Less(Score(&follows, testNow).Score, Score(&base, testNow).Score)
}
