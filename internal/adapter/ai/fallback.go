package ai

import (
	"fmt"
	"strings"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

const (
	feedbackGreat   = "Great answer! You covered the key points well."
	feedbackGood    = "Good attempt. Add more detail and examples."
	feedbackShallow = "Try to elaborate more and include specific examples."

	fallbackAnswer       = "This is a good question. Try to focus on core concepts, practical usage, best practices, and common pitfalls."
	modificationSuffix   = "\n\n(Modified based on your request)"
	ruleBaseScore        = 30
	ruleWordStep         = 20
	ruleShortWordLimit   = 10
	ruleDetailedWordsMin = 30
)

// RuleBasedEvaluate scores an answer by word count when the model is unavailable:
// <=10 words 30, 11-30 words 50, more than 30 words 70.
func RuleBasedEvaluate(answer string) domain.Evaluation {
	words := len(strings.Fields(answer))
	score := ruleBaseScore
	if words > ruleShortWordLimit {
		score += ruleWordStep
	}
	if words > ruleDetailedWordsMin {
		score += ruleWordStep
	}
	return domain.Evaluation{Score: score, Feedback: feedbackForScore(score)}
}

func feedbackForScore(score int) string {
	switch {
	case score >= 70:
		return feedbackGreat
	case score >= 50:
		return feedbackGood
	default:
		return feedbackShallow
	}
}

// FallbackTopicQuestion is the canned question for topic.
func FallbackTopicQuestion(topic string) string {
	return fmt.Sprintf("Explain the key concepts and best practices in %s. What are common challenges developers face?", topic)
}

// FallbackInterviewQuestion is the canned question for a role at a difficulty level.
func FallbackInterviewQuestion(role, difficulty string) string {
	return fmt.Sprintf("As a %s candidate at the %s level, explain the key concepts and best practices of your role. What are common challenges you have faced?", role, difficulty)
}

// FallbackAnswer is the canned answer returned for any question.
func FallbackAnswer() string { return fallbackAnswer }

// FallbackModification returns the original answer with a note appended.
func FallbackModification(original string) string { return original + modificationSuffix }
