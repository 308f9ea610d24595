package assistant

import (
	"context"
	"log/slog"
	"strings"
)

// QuestionAnswering turns questions into answers and never fails: errors are
// reported back to the user as an apology.
type QuestionAnswering struct {
	agent *Agent
}

// NewQuestionAnswering creates the question answering service.
func NewQuestionAnswering(agent *Agent) *QuestionAnswering {
	return &QuestionAnswering{agent: agent}
}

// Handle answers question.
func (q *QuestionAnswering) Handle(ctx context.Context, question string) string {
	question = strings.TrimSpace(question)
	slog.Info("processing question", "question", question)

	answer, err := q.agent.Chat(ctx, question)
	if err != nil {
		slog.Error("failed to answer question", "error", err)
		return "I apologize, but I encountered an error: " + err.Error()
	}
	return answer
}
