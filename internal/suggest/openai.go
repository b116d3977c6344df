package suggest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	openai "github.com/sashabaranov/go-openai"
)

const defaultModel = "gpt-4o-mini"

const systemPrompt = `You help a language learner build a vocabulary list.
Reply with a JSON object {"suggestions": [...]} holding up to %d short
translations of the given word into %s, most common first.`

const replySchema = `{
  "type": "object",
  "required": ["suggestions"],
  "properties": {
    "suggestions": {
      "type": "array",
      "items": {"type": "string", "minLength": 1}
    }
  }
}`

// OpenAIConfig configures the OpenAI suggester. BaseURL may point at any
// OpenAI-compatible API.
type OpenAIConfig struct {
	APIKey   string
	Model    string
	BaseURL  string
	Language string
	Max      int
}

// OpenAI asks a chat-completion model for translations.
type OpenAI struct {
	client   *openai.Client
	model    string
	language string
	max      int
}

// NewOpenAI creates an OpenAI suggester.
func NewOpenAI(cfg OpenAIConfig) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai API key is required")
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	o := &OpenAI{
		client:   openai.NewClientWithConfig(config),
		model:    cfg.Model,
		language: cfg.Language,
		max:      cfg.Max,
	}
	if o.model == "" {
		o.model = defaultModel
	}
	if o.language == "" {
		o.language = "German"
	}
	if o.max <= 0 {
		o.max = 3
	}
	return o, nil
}

func (o *OpenAI) Suggest(ctx context.Context, word string) ([]string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: fmt.Sprintf(systemPrompt, o.max, o.language)},
			{Role: openai.ChatMessageRoleUser, Content: word},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to request suggestions for %q: %w", word, err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("no choices in suggestion response")
	}

	reply, err := parseReply(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	var out []string
	for _, s := range reply {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
		if len(out) == o.max {
			break
		}
	}
	return out, nil
}

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		var doc any
		if err := json.Unmarshal([]byte(replySchema), &doc); err != nil {
			schemaErr = fmt.Errorf("parse reply schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource("schema://suggestions.json", doc); err != nil {
			schemaErr = fmt.Errorf("add reply schema: %w", err)
			return
		}
		schema, schemaErr = c.Compile("schema://suggestions.json")
	})
	return schema, schemaErr
}

// parseReply validates the model's JSON reply and extracts the list.
func parseReply(content string) ([]string, error) {
	var parsed any
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, fmt.Errorf("invalid suggestion JSON: %w", err)
	}

	s, err := compiledSchema()
	if err != nil {
		return nil, err
	}
	if err := s.Validate(parsed); err != nil {
		return nil, fmt.Errorf("suggestion reply does not match schema: %w", err)
	}

	var reply struct {
		Suggestions []string `json:"suggestions"`
	}
	if err := json.Unmarshal([]byte(content), &reply); err != nil {
		return nil, fmt.Errorf("decode suggestions: %w", err)
	}
	return reply.Suggestions, nil
}
