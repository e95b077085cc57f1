package client

import (
	"errors"
	"testing"

	"estimator-core/internal/domain/entity"
)

func TestParseLabelScores(t *testing.T) {
	raw := "```json\n[{\"label\":\"positive\",\"score\":0.7},{\"label\":\"neutral\",\"score\":0.2},{\"label\":\"negative\",\"score\":0.1}]\n```"

	scores, err := parseLabelScores(raw)
	if err != nil {
		t.Fatalf("parseLabelScores() error = %v", err)
	}
	if len(scores) != 3 || scores[0].Label != "positive" || scores[0].Score != 0.7 {
		t.Errorf("scores = %+v", scores)
	}
}

func TestParseLabelScoresRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"", "positive", `{"label":"positive"}`} {
		if _, err := parseLabelScores(raw); !errors.Is(err, entity.ErrUnexpectedOutput) {
			t.Errorf("parseLabelScores(%q) error = %v, want ErrUnexpectedOutput", raw, err)
		}
	}
}

func TestParseLabelScoresEmptyArray(t *testing.T) {
	scores, err := parseLabelScores("[]")
	if err != nil || len(scores) != 0 {
		t.Errorf("parseLabelScores([]) = %v, %v", scores, err)
	}
}

func TestParseMetadata(t *testing.T) {
	got := parseMetadata(`{"platform":" Web ","category":"ecommerce","action":"ignored"}`)
	if len(got) != 2 || got["platform"] != "web" || got["category"] != "ecommerce" {
		t.Errorf("parseMetadata() = %v", got)
	}

	if got := parseMetadata("not json"); got != nil {
		t.Errorf("parseMetadata(garbage) = %v, want nil", got)
	}
}

func TestIsYes(t *testing.T) {
	tests := map[string]bool{
		"YES":        true,
		" yes\n":     true,
		"Yes, same.": true,
		"NO":         false,
		"Not yes":    false,
		"":           false,
	}
	for in, want := range tests {
		if got := isYes(in); got != want {
			t.Errorf("isYes(%q) = %v, want %v", in, got, want)
		}
	}
}
