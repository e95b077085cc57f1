package usecase

import (
	"estimator-core/internal/domain/entity"
	"math"
	"regexp"
	"strings"
)

var bulletLine = regexp.MustCompile(`(?m)^[ \t]*[*-][ \t]+`)

// HeuristicDuration estimates hours from word count, keyword weights and bullet structure. It does no I/O.
func (c EstimationConfig) HeuristicDuration(description string) float64 {
	words := len(strings.Fields(description))
	baseDuration := float64(words) / c.BaseWordsPerHour

	score := c.ComplexityScore(description)
	factor := math.Max(c.MinComplexityFactor, 1+score*c.ComplexityMultiplier)

	duration := baseDuration * factor
	if duration < c.MinimumDuration {
		duration = c.MinimumDuration
	}
	return round2(duration)
}

// ComplexityScore sums the weights of matched keywords (each counted once) plus a bonus per bullet line.
func (c EstimationConfig) ComplexityScore(description string) float64 {
	lower := strings.ToLower(description)

	var score float64
	for _, kw := range c.ComplexityKeywords {
		if strings.Contains(lower, kw.Keyword) {
			score += kw.Weight
		}
	}
	for _, kw := range c.SimplicityKeywords {
		if strings.Contains(lower, kw.Keyword) {
			score += kw.Weight
		}
	}

	bullets := len(bulletLine.FindAllStringIndex(description, -1))
	score += float64(bullets) * c.BulletPointBonus
	return score
}

// ModelDuration maps classifier scores to hours by linear interpolation between the model bounds.
// ok is false when no score carries a usable value.
func (c EstimationConfig) ModelDuration(scores []entity.LabelScore) (hours float64, ok bool) {
	var weighted float64
	usable := 0
	for _, s := range scores {
		if math.IsNaN(s.Score) || math.IsInf(s.Score, 0) || s.Score < 0 {
			continue
		}
		usable++
		weighted += c.SentimentWeights[strings.ToLower(strings.TrimSpace(s.Label))] * s.Score
	}
	if usable == 0 {
		return 0, false
	}

	complexity := (1 - weighted) / 2
	complexity = math.Min(1, math.Max(0, complexity))

	hours = c.MinEstimatedDuration + complexity*(c.MaxEstimatedDuration-c.MinEstimatedDuration)
	if hours < c.MinEstimatedDuration {
		hours = c.MinEstimatedDuration
	}
	return round2(hours), true
}
