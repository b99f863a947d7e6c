package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bookpromo/internal/metrics"
	"bookpromo/internal/util"
	"bookpromo/pkg/ai"
	"bookpromo/pkg/domain"
)

// ChatFallback is returned when the advisor cannot answer.
const ChatFallback = "The advisor is momentarily unavailable. Please ask again shortly."

const maxChatHistory = 20

func chatSystemPrompt(book domain.BookProfile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are the voice of the philosophy of %q by %s.\n", book.Title, book.Author)
	b.WriteString("Your tone is wise, architectural, encouraging and authoritative.\n\n")
	if book.Description != "" {
		fmt.Fprintf(&b, "THE BOOK: %s\n\n", book.Description)
	}
	if len(book.KeyTakeaways) > 0 {
		b.WriteString("CORE PRINCIPLES:\n")
		for _, t := range book.KeyTakeaways {
			fmt.Fprintf(&b, "- %s\n", t)
		}
		b.WriteString("\n")
	}
	b.WriteString("When answering:\n")
	b.WriteString("- Be concise and authoritative.\n")
	b.WriteString("- Always bring the answer back to building a structure for life.\n")
	return b.String()
}

// chatHistory keeps the most recent valid turns, mapping roles to user/model.
func chatHistory(history []domain.ChatMessage) []ai.Turn {
	turns := make([]ai.Turn, 0, len(history))
	for _, m := range history {
		text := strings.TrimSpace(m.Text)
		if text == "" {
			continue
		}
		role := strings.ToLower(strings.TrimSpace(m.Role))
		switch role {
		case "user":
		case "model", "assistant":
			role = "model"
		default:
			continue
		}
		turns = append(turns, ai.Turn{Role: role, Text: text})
	}
	if len(turns) > maxChatHistory {
		turns = turns[len(turns)-maxChatHistory:]
	}
	return turns
}

// Chat answers a reader's question in the voice of the book. Provider
// failures yield ChatFallback with Fallback set.
func (a *App) Chat(ctx context.Context, history []domain.ChatMessage, question string) (domain.ChatReply, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return domain.ChatReply{}, ErrEmptyQuestion
	}
	fallback := domain.ChatReply{Answer: ChatFallback, Fallback: true}
	logger := util.LoggerFromContext(ctx)
	if a.text == nil {
		logger.Warn("chat_failed", "err", ErrProviderMissing)
		a.metrics.ObserveFallback("chat")
		return fallback, nil
	}

	start := time.Now()
	answer, err := a.text.GenerateText(ctx, ai.Request{
		SystemPrompt: chatSystemPrompt(a.book),
		UserPrompt:   question,
		History:      chatHistory(history),
	})
	answer = strings.TrimSpace(answer)
	if err == nil && answer == "" {
		err = fmt.Errorf("empty answer")
	}
	if err != nil {
		a.observeGeneration("chat", metrics.OutcomeError, start)
		logger.Warn("chat_failed", "err", err)
		a.metrics.ObserveFallback("chat")
		return fallback, nil
	}
	a.observeGeneration("chat", metrics.OutcomeOK, start)
	return domain.ChatReply{Answer: answer}, nil
}
