package chat

import (
	"fmt"
	"strings"
)

// MaxWindowMessages bounds how much prior conversation is forwarded upstream.
const MaxWindowMessages = 12

// Message is one chat turn in the OpenAI-compatible wire shape.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// SystemPrompt builds the pedagogical instruction for the tutor, tailored to
// the learner's grade and subject under the Kenyan CBC curriculum.
func SystemPrompt(grade, subject string) string {
	var b strings.Builder
	b.WriteString("You are HappyLearn, a friendly tutor for learners following the Kenyan Competency Based Curriculum (CBC). ")
	b.WriteString("Explain concepts step by step in simple language, use examples from everyday Kenyan life, and encourage the learner. ")
	b.WriteString("Ask one guiding question at a time instead of giving the full answer away. ")
	b.WriteString("Keep answers short and age-appropriate.")

	grade = strings.TrimSpace(grade)
	subject = strings.TrimSpace(subject)
	if grade != "" {
		fmt.Fprintf(&b, " The learner is in %s.", grade)
	}
	if subject != "" {
		fmt.Fprintf(&b, " The current subject is %s.", subject)
	}
	return b.String()
}

// BoundMessages returns at most MaxWindowMessages of the most recent turns,
// preserving order.
func BoundMessages(messages []Message) []Message {
	if len(messages) <= MaxWindowMessages {
		return messages
	}
	return messages[len(messages)-MaxWindowMessages:]
}
