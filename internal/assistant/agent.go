// Package assistant answers free-form questions with a tool-calling chat
// model backed by the knowledge base and the country and weather clients.
package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/pkoukk/tiktoken-go"
)

// SystemPrompt steers the model towards the registered tools.
const SystemPrompt = `You are a helpful AI assistant with access to tools. You MUST use these tools to answer questions accurately.

TOOLS AVAILABLE:
1. getCapitalCity(countryName) - Use when asked about capital cities
   Examples: "capital of Germany", "what is the capital"

2. getCityInformation(cityName) - Use for information about a specific city
   Examples: "tell me about Berlin", "information about Munich", "what do you know about Berlin"

3. getCurrentTemperature(cityName) - Use for weather/temperature questions
   Examples: "temperature in Munich", "how warm is Berlin", "weather"

4. searchCDQProductKnowledge(query) - Use for CDQ product and AML questions
   ALWAYS use this tool when the question contains ANY of these keywords:
   - "CDQ" or "CDQ Fraud Guard" or "Fraud Guard"
   - "AML" or "AML Guard" or "anti-money laundering"
   - "fraud detection" or "financial crime"
   - "compliance" or "risk assessment"
   - "trust score" or "risk score"
   - "transaction monitoring"
   Examples: "What is CDQ Fraud Guard?", "Tell me about AML", "What is the AML Guard?"

CRITICAL RULES:
- If the question contains "CDQ Fraud Guard" -> MUST use searchCDQProductKnowledge
- If the question contains "AML" -> MUST use searchCDQProductKnowledge
- If the question mentions "trust score" or "risk score" -> MUST use searchCDQProductKnowledge
- If the question asks about a city name -> use getCityInformation
- For "temperature of capital of X" -> call getCapitalCity FIRST, then getCurrentTemperature
- NEVER say "I don't know" if a tool can answer the question
- ALWAYS prefer using a tool over giving a generic answer`

// DefaultMaxSteps bounds the model round-trips of a single question.
const DefaultMaxSteps = 5

// Agent runs the tool-calling loop.
type Agent struct {
	model    model.ToolCallingChatModel
	tools    *Toolbox
	maxSteps int
}

// NewAgent binds the toolbox to the chat model. maxSteps <= 0 uses
// DefaultMaxSteps.
func NewAgent(chatModel model.ToolCallingChatModel, tools *Toolbox, maxSteps int) (*Agent, error) {
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}

	bound, err := chatModel.WithTools(tools.Infos())
	if err != nil {
		return nil, fmt.Errorf("failed to bind tools: %w", err)
	}

	return &Agent{model: bound, tools: tools, maxSteps: maxSteps}, nil
}

// Chat answers a single user message. Tool calls requested by the model are
// executed and fed back until the model replies with plain content.
func (a *Agent) Chat(ctx context.Context, question string) (string, error) {
	messages := []*schema.Message{
		schema.SystemMessage(SystemPrompt),
		schema.UserMessage(question),
	}

	for step := 1; step <= a.maxSteps; step++ {
		logPromptSize(ctx, messages)

		reply, err := a.model.Generate(ctx, messages)
		if err != nil {
			return "", fmt.Errorf("chat step %d: %w", step, err)
		}

		if len(reply.ToolCalls) == 0 {
			return strings.TrimSpace(reply.Content), nil
		}

		messages = append(messages, schema.AssistantMessage(reply.Content, reply.ToolCalls))

		for _, call := range reply.ToolCalls {
			messages = append(messages, schema.ToolMessage(a.tools.InvokeCall(ctx, call), call.ID))
		}

		slog.Debug("tool round complete", "step", step, "calls", len(reply.ToolCalls))
	}

	return "", fmt.Errorf("no answer after %d steps", a.maxSteps)
}

var (
	encOnce sync.Once
	enc     *tiktoken.Tiktoken
)

// logPromptSize logs an approximate token count of the transcript. The
// encoder is only loaded when debug logging is on.
func logPromptSize(ctx context.Context, messages []*schema.Message) {
	if !slog.Default().Enabled(ctx, slog.LevelDebug) {
		return
	}

	encOnce.Do(func() {
		e, err := tiktoken.EncodingForModel("gpt-3.5-turbo")
		if err != nil {
			slog.Debug("token encoder unavailable", "error", err)
			return
		}
		enc = e
	})
	if enc == nil {
		return
	}

	tokens := 0
	for _, m := range messages {
		tokens += len(enc.Encode(m.Content, nil, nil))
	}
	slog.Debug("prompt size", "messages", len(messages), "tokens", tokens)
}
