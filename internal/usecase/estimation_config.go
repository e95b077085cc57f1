package usecase

import (
	"math"
	"regexp"
)

// KeywordWeight is a keyword matched as a substring of the lowercased description.
type KeywordWeight struct {
	Keyword string
	Weight  float64
}

// EstimationConfig holds the rate, model and heuristic constants. Treat it as read-only once an Engine is built.
type EstimationConfig struct {
	FlatRatePerHour float64
	HourlyAICost    float64

	// Model path
	MinEstimatedDuration float64
	MaxEstimatedDuration float64
	SentimentWeights     map[string]float64

	// Heuristic path
	BaseWordsPerHour     float64
	MinimumDuration      float64
	ComplexityKeywords   []KeywordWeight
	SimplicityKeywords   []KeywordWeight
	BulletPointBonus     float64
	ComplexityMultiplier float64
	MinComplexityFactor  float64

	IncapableDevicePatterns []*regexp.Regexp
}

var defaultIncapableDevicePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)android|webos|iphone|ipod|blackberry|iemobile|opera mini|mobile`),
	regexp.MustCompile(`(?i)ipad|tablet|kindle|silk|playbook`),
}

func DefaultEstimationConfig() EstimationConfig {
	return EstimationConfig{
		FlatRatePerHour: 50,
		HourlyAICost:    5,

		MinEstimatedDuration: 1,
		MaxEstimatedDuration: 40,
		SentimentWeights: map[string]float64{
			"positive": 1,
			"neutral":  0,
			"negative": -1,
		},

		BaseWordsPerHour: 2.5,
		MinimumDuration:  1,
		ComplexityKeywords: []KeywordWeight{
			{"complex", 2},
			{"enterprise", 2},
			{"scalable", 1.5},
			{"distributed", 1.5},
			{"microservice", 1.5},
			{"machine learning", 2},
			{"real-time", 1},
			{"integration", 1},
			{"authentication", 1},
			{"payment", 1},
			{"database", 0.5},
			{"dashboard", 0.5},
			{"analytics", 1},
			{"security", 1},
			{"multi-tenant", 1.5},
		},
		SimplicityKeywords: []KeywordWeight{
			{"simple", -1},
			{"basic", -1},
			{"prototype", -1},
			{"minimal", -1},
			{"static", -0.5},
			{"landing page", -1},
			{"mvp", -0.5},
			{"demo", -0.5},
		},
		BulletPointBonus:     0.1,
		ComplexityMultiplier: 0.15,
		MinComplexityFactor:  0.1,

		IncapableDevicePatterns: defaultIncapableDevicePatterns,
	}
}

// HourlyRate is the combined rate applied to every estimated hour.
func (c EstimationConfig) HourlyRate() float64 {
	return c.FlatRatePerHour + c.HourlyAICost
}

// Cost returns round2(HourlyRate * hours).
func (c EstimationConfig) Cost(hours float64) float64 {
	return round2(c.HourlyRate() * hours)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
