package domain

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// MessageKind is the closed set of practice message variants.
type MessageKind uint8

const (
	MessageUserQuestion MessageKind = iota + 1
	MessageAIAnswer
	MessageUserAnswer
	MessageAIQuestion
	MessageAIFeedback
	MessageSystem
)

var messageKindNames = map[MessageKind]string{
	MessageUserQuestion: "user-question",
	MessageAIAnswer:     "ai-answer",
	MessageUserAnswer:   "user-answer",
	MessageAIQuestion:   "ai-question",
	MessageAIFeedback:   "ai-feedback",
	MessageSystem:       "system",
}

// String returns the wire name of the kind.
func (k MessageKind) String() string {
	if s, ok := messageKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("MessageKind(%d)", uint8(k))
}

// ParseMessageKind maps a wire name back to its kind.
func ParseMessageKind(s string) (MessageKind, error) {
	for k, name := range messageKindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown message type %q", ErrInvalidArgument, s)
}

// MarshalText encodes the kind by name so JSON and BSON carry "ai-answer" etc.
func (k MessageKind) MarshalText() ([]byte, error) {
	s, ok := messageKindNames[k]
	if !ok {
		return nil, fmt.Errorf("%w: unknown message kind %d", ErrInvalidArgument, uint8(k))
	}
	return []byte(s), nil
}

// UnmarshalText rejects names outside the closed set.
func (k *MessageKind) UnmarshalText(b []byte) error {
	v, err := ParseMessageKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// Message is one entry of a practice session transcript.
// Score is set only on ai-feedback; MessageID only on messages that may be modified later.
type Message struct {
	Kind      MessageKind `json:"type"`
	Content   string      `json:"content"`
	Score     *int        `json:"score,omitempty"`
	MessageID string      `json:"messageId,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewUserQuestion records a question typed by the user.
func NewUserQuestion(content string, at time.Time) Message {
	return Message{Kind: MessageUserQuestion, Content: content, Timestamp: at}
}

// NewAIAnswer records a model answer; messageID makes it addressable for later modification.
func NewAIAnswer(content, messageID string, at time.Time) Message {
	return Message{Kind: MessageAIAnswer, Content: content, MessageID: messageID, Timestamp: at}
}

// NewUserAnswer records the user's answer to a question.
func NewUserAnswer(content string, at time.Time) Message {
	return Message{Kind: MessageUserAnswer, Content: content, Timestamp: at}
}

// NewAIQuestion records a generated question.
func NewAIQuestion(content string, at time.Time) Message {
	return Message{Kind: MessageAIQuestion, Content: content, Timestamp: at}
}

// NewAIFeedback records the evaluation of a user answer.
func NewAIFeedback(ev Evaluation, at time.Time) Message {
	score := ev.Score
	return Message{Kind: MessageAIFeedback, Content: ev.Feedback, Score: &score, Timestamp: at}
}

// NewSystemMessage records an informational entry.
func NewSystemMessage(content string, at time.Time) Message {
	return Message{Kind: MessageSystem, Content: content, Timestamp: at}
}

// UnmarshalJSON requires a known message type.
func (m *Message) UnmarshalJSON(b []byte) error {
	type alias Message
	var raw struct {
		alias
		Kind *MessageKind `json:"type"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw.Kind == nil {
		return fmt.Errorf("%w: message type missing", ErrInvalidArgument)
	}
	*m = Message(raw.alias)
	m.Kind = *raw.Kind
	return nil
}

var (
	msgEntropyMu sync.Mutex
	msgEntropy   = ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0) //nolint:gosec // Weak random is sufficient for ULID entropy.
)

// NewMessageID returns a sortable, unique id for addressable messages.
func NewMessageID(at time.Time) string {
	msgEntropyMu.Lock()
	id, err := ulid.New(ulid.Timestamp(at), msgEntropy)
	msgEntropyMu.Unlock()
	if err != nil {
		return fmt.Sprintf("msg_%d", at.UnixNano())
	}
	return "msg_" + id.String()
}
