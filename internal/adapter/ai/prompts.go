// Package ai builds prompts for the interview coach, talks to the completion endpoint through
// domain.Completer, and turns raw model text into questions, answers and evaluations. Every
// operation of Service degrades to a deterministic fallback instead of returning an error.
package ai

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

// Task names a prompt in the catalog.
type Task string

const (
	TaskTopicQuestion     Task = "topic_question"
	TaskInterviewQuestion Task = "interview_question"
	TaskAnswer            Task = "answer"
	TaskEvaluation        Task = "evaluation"
	TaskModification      Task = "modification"
)

var allTasks = []Task{TaskTopicQuestion, TaskInterviewQuestion, TaskAnswer, TaskEvaluation, TaskModification}

//go:embed prompts.yaml
var defaultCatalog []byte

type promptEntry struct {
	Temperature *float64 `yaml:"temperature"`
	MaxTokens   int      `yaml:"max_tokens"`
	Template    string   `yaml:"template"`
}

// sample data each template must render against at load time
var sampleParams = map[Task]any{
	TaskTopicQuestion:     topicParams{Topic: "t", Previous: []string{"p"}},
	TaskInterviewQuestion: interviewParams{Role: "r", Difficulty: "d", Previous: []string{"p"}},
	TaskAnswer:            answerParams{Topic: "t", Question: "q"},
	TaskEvaluation:        evaluationParams{Question: "q", Answer: "a"},
	TaskModification:      modificationParams{Original: "o", Instruction: "i"},
}

type (
	topicParams struct {
		Topic    string
		Previous []string
	}
	interviewParams struct {
		Role       string
		Difficulty string
		Previous   []string
	}
	answerParams struct {
		Topic    string
		Question string
	}
	evaluationParams struct {
		Question string
		Answer   string
	}
	modificationParams struct {
		Original    string
		Instruction string
	}
)

var templateFuncs = template.FuncMap{"join": strings.Join}

// PromptBuilder renders task prompts. It is immutable after construction and safe for concurrent use.
type PromptBuilder struct {
	templates map[Task]*template.Template
	options   map[Task]domain.CompletionOptions
}

// NewPromptBuilder loads the embedded catalog and applies overridePath on top when non-empty.
func NewPromptBuilder(overridePath string) (*PromptBuilder, error) {
	entries, err := decodeCatalog(defaultCatalog)
	if err != nil {
		return nil, fmt.Errorf("op=prompts.load: embedded: %w", err)
	}
	if overridePath != "" {
		raw, err := os.ReadFile(overridePath)
		if err != nil {
			return nil, fmt.Errorf("op=prompts.load: %w", err)
		}
		over, err := decodeCatalog(raw)
		if err != nil {
			return nil, fmt.Errorf("op=prompts.load: %s: %w", overridePath, err)
		}
		for task, entry := range over {
			base := entries[task]
			if entry.Template != "" {
				base.Template = entry.Template
			}
			if entry.Temperature != nil {
				base.Temperature = entry.Temperature
			}
			if entry.MaxTokens > 0 {
				base.MaxTokens = entry.MaxTokens
			}
			entries[task] = base
		}
	}
	return compileCatalog(entries)
}

// DefaultPromptBuilder returns the builder for the embedded catalog.
func DefaultPromptBuilder() *PromptBuilder {
	b, err := NewPromptBuilder("")
	if err != nil {
		panic(err)
	}
	return b
}

func decodeCatalog(raw []byte) (map[Task]promptEntry, error) {
	var entries map[Task]promptEntry
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, err
	}
	for task := range entries {
		if _, ok := sampleParams[task]; !ok {
			return nil, fmt.Errorf("unknown prompt task %q", task)
		}
	}
	return entries, nil
}

func compileCatalog(entries map[Task]promptEntry) (*PromptBuilder, error) {
	b := &PromptBuilder{
		templates: make(map[Task]*template.Template, len(allTasks)),
		options:   make(map[Task]domain.CompletionOptions, len(allTasks)),
	}
	for _, task := range allTasks {
		entry, ok := entries[task]
		if !ok || strings.TrimSpace(entry.Template) == "" {
			return nil, fmt.Errorf("prompt %q: missing template", task)
		}
		if entry.Temperature == nil || entry.MaxTokens <= 0 {
			return nil, fmt.Errorf("prompt %q: temperature and max_tokens are required", task)
		}
		tmpl, err := template.New(string(task)).Funcs(templateFuncs).Option("missingkey=error").Parse(entry.Template)
		if err != nil {
			return nil, fmt.Errorf("prompt %q: %w", task, err)
		}
		if err := tmpl.Execute(&strings.Builder{}, sampleParams[task]); err != nil {
			return nil, fmt.Errorf("prompt %q: %w", task, err)
		}
		b.templates[task] = tmpl
		b.options[task] = domain.CompletionOptions{Temperature: *entry.Temperature, MaxTokens: entry.MaxTokens}
	}
	return b, nil
}

// Options returns the sampling options for task.
func (b *PromptBuilder) Options(task Task) domain.CompletionOptions {
	return b.options[task]
}

func (b *PromptBuilder) render(task Task, data any) string {
	var sb strings.Builder
	if err := b.templates[task].Execute(&sb, data); err != nil {
		// templates are executed against sample data at load; reaching here is a bug
		slog.Error("prompt render failed", slog.String("task", string(task)), slog.Any("error", err))
		return ""
	}
	return sb.String()
}

// TopicQuestion embeds the topic and, when present, every previous question one per line.
func (b *PromptBuilder) TopicQuestion(topic string, previous []string) string {
	return b.render(TaskTopicQuestion, topicParams{Topic: topic, Previous: previous})
}

// InterviewQuestion embeds role, difficulty and the questions already asked.
func (b *PromptBuilder) InterviewQuestion(role, difficulty string, previous []string) string {
	return b.render(TaskInterviewQuestion, interviewParams{Role: role, Difficulty: difficulty, Previous: previous})
}

// Answer asks for a structured explanation of question within topic.
func (b *PromptBuilder) Answer(question, topic string) string {
	return b.render(TaskAnswer, answerParams{Topic: topic, Question: question})
}

// Evaluation asks for a "Score: <int>" / "Feedback: <text>" reply.
func (b *PromptBuilder) Evaluation(question, answer string) string {
	return b.render(TaskEvaluation, evaluationParams{Question: question, Answer: answer})
}

// Modification asks for original rewritten according to instruction.
func (b *PromptBuilder) Modification(original, instruction string) string {
	return b.render(TaskModification, modificationParams{Original: original, Instruction: instruction})
}
