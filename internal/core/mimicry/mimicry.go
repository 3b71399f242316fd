// Package mimicry scores how templated a user's first messages look
//
// Spammers warming up an account tend to post short canned greetings
// ("привет", "как дела") before the payload. The classifier takes the
// first sample of messages and returns a 0..1 score where 1 means the
// sample looks fully scripted. It is a pure in-process heuristic, one
// call per sampled user, no network.
package mimicry

import (
	"strings"

	"doorman/internal/platform/logger"
)

// SampleSize is how many first messages a classification needs
const SampleSize = 3

// weighted sum of the four sub-scores
const (
	weightLength    = 0.25
	weightTemplate  = 0.35
	weightDiversity = 0.25
	weightContext   = 0.15
)

// templatePhrases are canned openers spammers recycle
var templatePhrases = []string{
	"привет", "приветствую", "здравствуйте", "добрый день", "добрый вечер",
	"как дела", "как у кого дела", "как дела у всех", "что нового",
	"?", "!", "ок", "понятно", "спасибо", "пасиб", "хорошо", "норм",
	"всем привет", "привет всем", "всем хай", "хай всем",
}

// contextMarkers hint the message actually responds to the conversation
var contextMarkers = []string{
	"@", "согласен", "не согласен", "выше", "интересно", "тоже", "а я", "у меня",
}

// Classifier scores first-message samples
type Classifier struct {
	log logger.Logger
}

// New constructs a Classifier
func New(log logger.Logger) *Classifier {
	return &Classifier{log: log}
}

// Score analyzes a sample of exactly SampleSize messages
// a sample of any other size scores 0 and is logged, callers control sampling
func (c *Classifier) Score(messages []string) float64 {
	if len(messages) != SampleSize {
		c.log.Warn().Int("count", len(messages)).Msg("mimicry sample must hold exactly 3 messages")
		return 0
	}

	length := lengthScore(messages)
	template := templateScore(messages)
	diversity := diversityScore(messages)
	context := contextScore(messages)

	score := length*weightLength + template*weightTemplate + diversity*weightDiversity + context*weightContext
	score = clamp01(score)

	c.log.Debug().
		Float64("score", score).
		Float64("length", length).
		Float64("template", template).
		Float64("diversity", diversity).
		Float64("context", context).
		Msg("mimicry sample scored")

	return score
}

// lengthScore punishes consistently tiny messages
func lengthScore(messages []string) float64 {
	total := 0
	for _, m := range messages {
		total += len([]rune(strings.TrimSpace(m)))
	}
	avg := float64(total) / float64(len(messages))
	switch {
	case avg <= 2:
		return 1.0
	case avg <= 5:
		return 0.7
	case avg <= 10:
		return 0.3
	}
	return 0
}

// templateScore is the fraction of messages matching a canned phrase
func templateScore(messages []string) float64 {
	hits := 0
	for _, m := range messages {
		clean := strings.ToLower(strings.TrimSpace(m))
		if clean == "" {
			continue
		}
		for _, phrase := range templatePhrases {
			if clean == phrase || strings.Contains(clean, phrase) {
				hits++
				break
			}
		}
	}
	return float64(hits) / float64(len(messages))
}

// diversityScore punishes repeated messages and low word variety
func diversityScore(messages []string) float64 {
	clean := make([]string, 0, len(messages))
	for _, m := range messages {
		m = strings.ToLower(strings.TrimSpace(m))
		if m != "" {
			clean = append(clean, m)
		}
	}
	if len(clean) == 0 {
		return 1.0
	}

	distinct := make(map[string]struct{}, len(clean))
	for _, m := range clean {
		distinct[m] = struct{}{}
	}
	if len(distinct) == 1 {
		return 1.0
	}

	var words []string
	for _, m := range clean {
		words = append(words, strings.Fields(m)...)
	}
	if len(words) == 0 {
		return 1.0
	}
	unique := make(map[string]struct{}, len(words))
	for _, w := range words {
		unique[w] = struct{}{}
	}
	ratio := float64(len(unique)) / float64(len(words))
	switch {
	case ratio < 0.3:
		return 0.8
	case ratio < 0.5:
		return 0.5
	case ratio < 0.7:
		return 0.2
	}
	return 0
}

// contextScore rewards replies that engage with the conversation
func contextScore(messages []string) float64 {
	engaged := 0
	for _, m := range messages {
		if strings.TrimSpace(m) == "" {
			continue
		}
		lower := strings.ToLower(m)
		for _, marker := range contextMarkers {
			if strings.Contains(lower, marker) {
				engaged++
				break
			}
		}
	}
	return 1.0 - float64(engaged)/float64(len(messages))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
