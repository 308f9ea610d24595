package assistant

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCountries struct{}

func (fakeCountries) CapitalOf(_ context.Context, country string) (string, error) {
	if country == "Germany" {
		return "Berlin", nil
	}
	return "", fmt.Errorf("No country found with name: %s", country)
}

func (fakeCountries) AboutCity(_ context.Context, city string) (string, error) {
	return city + " is the capital of Somewhere.", nil
}

type fakeWeather struct{}

func (fakeWeather) CurrentTemperature(_ context.Context, city string) (float64, error) {
	if city == "Berlin" {
		return 21.5, nil
	}
	return 0, errors.New("unknown city")
}

type fakeKnowledge struct{ queries []string }

func (k *fakeKnowledge) Search(_ context.Context, query string) (string, error) {
	k.queries = append(k.queries, query)
	return "Fraud Guard detects fraud.", nil
}

// scriptedModel replays canned replies and records the transcripts and
// tools it saw.
type scriptedModel struct {
	replies []*schema.Message
	seen    [][]*schema.Message
	tools   []*schema.ToolInfo
	err     error
}

func (m *scriptedModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	m.seen = append(m.seen, append([]*schema.Message(nil), input...))
	if m.err != nil {
		return nil, m.err
	}
	if len(m.replies) == 0 {
		return schema.AssistantMessage("done", nil), nil
	}
	r := m.replies[0]
	m.replies = m.replies[1:]
	return r, nil
}

func (m *scriptedModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("streaming not supported")
}

func (m *scriptedModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	m.tools = tools
	return m, nil
}

func toolCall(id, name, args string) schema.ToolCall {
	return schema.ToolCall{ID: id, Type: "function", Function: schema.FunctionCall{Name: name, Arguments: args}}
}

func toolReply(calls ...schema.ToolCall) *schema.Message {
	return schema.AssistantMessage("", calls)
}

func newAgent(t *testing.T, m *scriptedModel, maxSteps int) *Agent {
	t.Helper()
	agent, err := NewAgent(m, newToolbox(), maxSteps)
	require.NoError(t, err)
	return agent
}

func newToolbox() *Toolbox {
	return NewToolbox(fakeCountries{}, fakeWeather{}, &fakeKnowledge{}, nil)
}

func TestAgent_DirectAnswer(t *testing.T) {
	m := &scriptedModel{replies: []*schema.Message{schema.AssistantMessage(" Hello! ", nil)}}
	agent := newAgent(t, m, 0)

	got, err := agent.Chat(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "Hello!", got)

	require.Len(t, m.seen, 1)
	assert.Equal(t, schema.System, m.seen[0][0].Role)
	assert.Equal(t, SystemPrompt, m.seen[0][0].Content)
	assert.Equal(t, schema.User, m.seen[0][1].Role)
	assert.Equal(t, "hi", m.seen[0][1].Content)
}

func TestNewAgent_BindsToolbox(t *testing.T) {
	m := &scriptedModel{}
	newAgent(t, m, 0)

	var names []string
	for _, info := range m.tools {
		names = append(names, info.Name)
	}
	assert.Equal(t, []string{ToolCapitalCity, ToolCityInformation, ToolTemperature, ToolKnowledge}, names)
}

type failingBinder struct{ scriptedModel }

func (f *failingBinder) WithTools([]*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return nil, errors.New("tools unsupported")
}

func TestNewAgent_BindError(t *testing.T) {
	_, err := NewAgent(&failingBinder{}, newToolbox(), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tools unsupported")
}

func TestAgent_ChainsToolCalls(t *testing.T) {
	m := &scriptedModel{replies: []*schema.Message{
		toolReply(toolCall("1", ToolCapitalCity, `{"countryName":"Germany"}`)),
		toolReply(toolCall("2", ToolTemperature, `{"cityName":"Berlin"}`)),
		schema.AssistantMessage("It is 21.5°C in Berlin.", nil),
	}}
	agent := newAgent(t, m, 5)

	got, err := agent.Chat(context.Background(), "temperature of the capital of Germany?")
	require.NoError(t, err)
	assert.Equal(t, "It is 21.5°C in Berlin.", got)

	require.Len(t, m.seen, 3)
	last := m.seen[2]
	require.Len(t, last, 6)
	assert.Equal(t, schema.Assistant, last[2].Role)
	require.Len(t, last[2].ToolCalls, 1)
	assert.Equal(t, schema.Tool, last[3].Role)
	assert.Equal(t, "Berlin", last[3].Content)
	assert.Equal(t, "1", last[3].ToolCallID)
	assert.Equal(t, "21.5", last[5].Content)
	assert.Equal(t, "2", last[5].ToolCallID)
}

func TestAgent_ToolErrorIsFedBack(t *testing.T) {
	m := &scriptedModel{replies: []*schema.Message{
		toolReply(toolCall("1", ToolCapitalCity, `{"countryName":"Atlantis"}`)),
		schema.AssistantMessage("I could not find Atlantis.", nil),
	}}
	agent := newAgent(t, m, 5)

	_, err := agent.Chat(context.Background(), "capital of Atlantis?")
	require.NoError(t, err)
	assert.Equal(t, "error: No country found with name: Atlantis", m.seen[1][3].Content)
}

func TestAgent_StepLimit(t *testing.T) {
	loop := toolReply(toolCall("1", ToolCityInformation, `{"cityName":"Paris"}`))
	m := &scriptedModel{replies: []*schema.Message{loop, loop, loop}}
	agent := newAgent(t, m, 2)

	_, err := agent.Chat(context.Background(), "paris?")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no answer after 2 steps")
	assert.Len(t, m.seen, 2)
}

func TestAgent_ModelError(t *testing.T) {
	agent := newAgent(t, &scriptedModel{err: errors.New("connection refused")}, 3)

	_, err := agent.Chat(context.Background(), "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestQuestionAnswering_Handle(t *testing.T) {
	ok := NewQuestionAnswering(newAgent(t, &scriptedModel{replies: []*schema.Message{schema.AssistantMessage("Berlin", nil)}}, 3))
	assert.Equal(t, "Berlin", ok.Handle(context.Background(), "  capital of Germany?  "))

	failing := NewQuestionAnswering(newAgent(t, &scriptedModel{err: errors.New("boom")}, 3))
	answer := failing.Handle(context.Background(), "hi")
	assert.Equal(t, "I apologize, but I encountered an error: chat step 1: boom", answer)
}
