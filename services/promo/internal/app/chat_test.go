package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"bookpromo/pkg/domain"
)

func TestChatPassesHistoryAndSystemPrompt(t *testing.T) {
	env := newTestEnv(t)
	env.text.responses = []string{"  Design your structure first.  "}

	history := []domain.ChatMessage{
		{Role: "user", Text: "What is rule one?"},
		{Role: "assistant", Text: "Pay yourself first."},
		{Role: "system", Text: "ignored"},
		{Role: "user", Text: "   "},
	}
	reply, err := env.app.Chat(context.Background(), history, "And after that?")
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if reply.Answer != "Design your structure first." || reply.Fallback {
		t.Fatalf("unexpected reply: %+v", reply)
	}
	req := env.text.lastRequest(t)
	if len(req.History) != 2 || req.History[1].Role != "model" {
		t.Fatalf("unexpected history: %+v", req.History)
	}
	if req.UserPrompt != "And after that?" {
		t.Fatalf("user prompt = %q", req.UserPrompt)
	}
	if !strings.Contains(req.SystemPrompt, testBook.Title) || !strings.Contains(req.SystemPrompt, "70-10-10-10") {
		t.Fatalf("system prompt missing book context:\n%s", req.SystemPrompt)
	}
}

func TestChatHistoryIsCapped(t *testing.T) {
	var history []domain.ChatMessage
	for i := 0; i < 30; i++ {
		history = append(history, domain.ChatMessage{Role: "user", Text: fmt.Sprintf("q%d", i)})
	}
	turns := chatHistory(history)
	if len(turns) != maxChatHistory || turns[0].Text != "q10" {
		t.Fatalf("len=%d first=%q", len(turns), turns[0].Text)
	}
}

func TestChatFallback(t *testing.T) {
	env := newTestEnv(t)
	env.text.err = errors.New("quota exceeded")
	reply, err := env.app.Chat(context.Background(), nil, "How do I start?")
	if err != nil {
		t.Fatalf("chat must not fail: %v", err)
	}
	if reply.Answer != ChatFallback || !reply.Fallback {
		t.Fatalf("unexpected reply: %+v", reply)
	}
}

func TestChatEmptyQuestion(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.app.Chat(context.Background(), nil, "  "); !errors.Is(err, ErrEmptyQuestion) {
		t.Fatalf("err = %v, want ErrEmptyQuestion", err)
	}
}
