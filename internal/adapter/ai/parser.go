package ai

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

const (
	defaultParsedScore    = 50
	defaultParsedFeedback = "Good effort! Keep practicing."
)

var (
	scoreRe    = regexp.MustCompile(`(?i)Score:\s*(\d+)`)
	feedbackRe = regexp.MustCompile(`(?is)Feedback:\s*(.+)`)
)

// ParseEvaluation extracts a score and feedback from free-form model output. It never fails:
// a missing score yields 50, missing or blank feedback yields a generic encouragement, and the
// score is clamped to [0,100].
func ParseEvaluation(text string) domain.Evaluation {
	ev := domain.Evaluation{Score: defaultParsedScore, Feedback: defaultParsedFeedback}

	if m := scoreRe.FindStringSubmatch(text); m != nil {
		ev.Score = parseScore(m[1])
	}
	if m := feedbackRe.FindStringSubmatch(text); m != nil {
		if fb := strings.TrimSpace(m[1]); fb != "" {
			ev.Feedback = fb
		}
	}
	ev.Score = domain.ClampScore(ev.Score)
	return ev
}

// parseScore reads a run of digits; runs too long for an int are above 100 anyway.
func parseScore(digits string) int {
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 100
	}
	return n
}
