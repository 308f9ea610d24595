package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/mfenderov/kb-assistant/internal/metrics"
)

// Tool names exposed to the chat model and the MCP server.
const (
	ToolCapitalCity     = "getCapitalCity"
	ToolCityInformation = "getCityInformation"
	ToolTemperature     = "getCurrentTemperature"
	ToolKnowledge       = "searchCDQProductKnowledge"
)

// Countries answers country and city questions.
type Countries interface {
	CapitalOf(ctx context.Context, countryName string) (string, error)
	AboutCity(ctx context.Context, city string) (string, error)
}

// Weather reports current temperatures.
type Weather interface {
	CurrentTemperature(ctx context.Context, city string) (float64, error)
}

// Knowledge searches the product knowledge base.
type Knowledge interface {
	Search(ctx context.Context, query string) (string, error)
}

// Param describes the single string argument a tool takes.
type Param struct {
	Name        string
	Description string
}

// Tool is a named function the model may call.
type Tool struct {
	Name        string
	Description string
	Param       Param
	Call        func(ctx context.Context, arg string) (string, error)
}

// Info describes the tool to the chat model.
func (t Tool) Info() *schema.ToolInfo {
	return &schema.ToolInfo{
		Name: t.Name,
		Desc: t.Description,
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			t.Param.Name: {
				Type:     schema.String,
				Desc:     t.Param.Description,
				Required: true,
			},
		}),
	}
}

// Toolbox is the set of tools available to a conversation.
type Toolbox struct {
	tools   []Tool
	byName  map[string]Tool
	metrics *metrics.Metrics
}

// NewToolbox builds the four assistant tools. A nil dependency drops the
// tools that need it.
func NewToolbox(countries Countries, weather Weather, knowledge Knowledge, m *metrics.Metrics) *Toolbox {
	var tools []Tool

	if countries != nil {
		tools = append(tools,
			Tool{
				Name:        ToolCapitalCity,
				Description: "Get the capital city of a given countryName",
				Param:       Param{Name: "countryName", Description: "Name of the country"},
				Call:        countries.CapitalOf,
			},
			Tool{
				Name:        ToolCityInformation,
				Description: "Get detailed information about the given cityName",
				Param:       Param{Name: "cityName", Description: "Name of the city"},
				Call:        countries.AboutCity,
			},
		)
	}

	if weather != nil {
		tools = append(tools, Tool{
			Name:        ToolTemperature,
			Description: "Get the current temperature in Celsius for a given city",
			Param:       Param{Name: "cityName", Description: "Name of the city"},
			Call: func(ctx context.Context, city string) (string, error) {
				t, err := weather.CurrentTemperature(ctx, city)
				if err != nil {
					return "", err
				}
				return strconv.FormatFloat(t, 'f', -1, 64), nil
			},
		})
	}

	if knowledge != nil {
		tools = append(tools, Tool{
			Name: ToolKnowledge,
			Description: "Search the CDQ product knowledge base for information about CDQ products and services. " +
				"ALWAYS use this tool when the question mentions: 'CDQ Fraud Guard', 'Fraud Guard', 'AML Guard', 'CDQ', " +
				"'AML', 'anti-money laundering', 'fraud detection', 'financial crime', 'compliance', 'risk assessment', " +
				"'transaction monitoring'. Returns relevant product documentation.",
			Param: Param{Name: "query", Description: "The search query to find relevant CDQ product information"},
			Call:  knowledge.Search,
		})
	}

	byName := make(map[string]Tool, len(tools))
	for _, t := range tools {
		byName[t.Name] = t
	}

	return &Toolbox{tools: tools, byName: byName, metrics: m}
}

// Tools returns the registered tools in registration order.
func (tb *Toolbox) Tools() []Tool {
	return tb.tools
}

// Infos returns the tool descriptions bound to the chat model.
func (tb *Toolbox) Infos() []*schema.ToolInfo {
	infos := make([]*schema.ToolInfo, 0, len(tb.tools))
	for _, t := range tb.tools {
		infos = append(infos, t.Info())
	}
	return infos
}

// Invoke runs the named tool with the given string argument. Failures are
// reported to the model as "error: ..." text instead of aborting the turn.
func (tb *Toolbox) Invoke(ctx context.Context, name, arg string) string {
	tool, ok := tb.byName[name]
	if !ok {
		tb.metrics.ToolCall(name, false)
		return fmt.Sprintf("error: unknown tool %q", name)
	}

	slog.Info("calling tool", "tool", name, tool.Param.Name, arg)

	out, err := tool.Call(ctx, arg)
	if err != nil {
		slog.Warn("tool call failed", "tool", name, "error", err)
		tb.metrics.ToolCall(name, false)
		return "error: " + err.Error()
	}

	tb.metrics.ToolCall(name, true)
	return out
}

// InvokeCall runs a model tool call, pulling the tool's parameter out of the
// JSON arguments.
func (tb *Toolbox) InvokeCall(ctx context.Context, call schema.ToolCall) string {
	tool, ok := tb.byName[call.Function.Name]
	if !ok {
		return tb.Invoke(ctx, call.Function.Name, "")
	}

	arg, err := argument(call.Function.Arguments, tool.Param.Name)
	if err != nil {
		tb.metrics.ToolCall(tool.Name, false)
		return "error: " + err.Error()
	}
	return tb.Invoke(ctx, tool.Name, arg)
}

// argument extracts the named string parameter. Small models sometimes
// misname the key, so a lone string value is accepted too.
func argument(raw, name string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("missing argument %s", name)
	}

	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return "", fmt.Errorf("invalid tool arguments: %w", err)
	}

	if v, ok := args[name]; ok {
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s), nil
		}
		return "", fmt.Errorf("argument %s must be a non-empty string", name)
	}

	if len(args) == 1 {
		for _, v := range args {
			if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s), nil
			}
		}
	}

	return "", fmt.Errorf("missing argument %s", name)
}
