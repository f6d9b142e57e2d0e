package chat

import (
	"fmt"
	"strings"
	"testing"
)

func TestSystemPromptIncludesContext(t *testing.T) {
	prompt := SystemPrompt("Grade 4", "Mathematics")
	if !strings.Contains(prompt, "Grade 4") {
		t.Fatalf("expected prompt to mention grade, got %q", prompt)
	}
	if !strings.Contains(prompt, "Mathematics") {
		t.Fatalf("expected prompt to mention subject, got %q", prompt)
	}
	if !strings.Contains(prompt, "CBC") {
		t.Fatalf("expected prompt to mention the curriculum, got %q", prompt)
	}
}

func TestSystemPromptWithoutContext(t *testing.T) {
	prompt := SystemPrompt("", "  ")
	if strings.Contains(prompt, "The learner is in") || strings.Contains(prompt, "The current subject") {
		t.Fatalf("expected no context sentences for empty inputs, got %q", prompt)
	}
}

func TestBoundMessagesKeepsMostRecent(t *testing.T) {
	var messages []Message
	for i := 0; i < 30; i++ {
		messages = append(messages, Message{Role: "user", Content: fmt.Sprintf("msg-%d", i)})
	}

	window := BoundMessages(messages)
	if len(window) != MaxWindowMessages {
		t.Fatalf("expected %d messages, got %d", MaxWindowMessages, len(window))
	}
	if window[0].Content != "msg-18" || window[len(window)-1].Content != "msg-29" {
		t.Fatalf("expected the most recent messages in order, got first=%q last=%q",
			window[0].Content, window[len(window)-1].Content)
	}
}

func TestBoundMessagesShortWindowUnchanged(t *testing.T) {
	messages := []Message{{Role: "user", Content: "hi"}}
	window := BoundMessages(messages)
	if len(window) != 1 || window[0].Content != "hi" {
		t.Fatalf("short conversations must pass through unchanged")
	}
}
