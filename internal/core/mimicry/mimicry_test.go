package mimicry

import (
	"testing"

	"github.com/rs/zerolog"
)

func newTestClassifier() *Classifier {
	return New(zerolog.Nop())
}

func TestScoreTemplatedSample(t *testing.T) {
	c := newTestClassifier()

	// identical canned greeting three times
	score := c.Score([]string{"привет", "привет", "привет"})
	if score < 0.7 {
		t.Fatalf("repeated greeting scored %.2f, want >= 0.7", score)
	}

	// tiny canned acknowledgements max out every sub-score
	score = c.Score([]string{"ок", "ок", "ок"})
	if score != 1.0 {
		t.Fatalf("want 1.0 for identical tiny messages, got %.2f", score)
	}
}

func TestScoreOrganicSample(t *testing.T) {
	c := newTestClassifier()
	score := c.Score([]string{
		"Интересно, а у меня другой опыт с этим",
		"@ivan согласен, выше писали про это",
		"Я думаю это зависит от настроек роутера",
	})
	if score >= 0.7 {
		t.Fatalf("organic chat scored %.2f, want < 0.7", score)
	}
}

func TestScoreWrongSampleSize(t *testing.T) {
	c := newTestClassifier()
	if got := c.Score([]string{"привет"}); got != 0 {
		t.Fatalf("undersized sample must score 0, got %.2f", got)
	}
	if got := c.Score(nil); got != 0 {
		t.Fatalf("nil sample must score 0, got %.2f", got)
	}
	if got := c.Score([]string{"a", "b", "c", "d"}); got != 0 {
		t.Fatalf("oversized sample must score 0, got %.2f", got)
	}
}

func TestScoreClamped(t *testing.T) {
	c := newTestClassifier()
	score := c.Score([]string{"", "", ""})
	if score < 0 || score > 1 {
		t.Fatalf("score %.2f outside [0,1]", score)
	}
}
