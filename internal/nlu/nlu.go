// Package nlu classifies transcripts no command pattern matched, using an
// OpenAI chat model restricted to the registered intents.
package nlu

import (
	"context"
	"encoding/json"
	"fmt"
	log "log/slog"
	"net/http"
	"slices"
	"strings"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"trafficaz/internal/intent"
)

type Options struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
}

type Classifier struct {
	client openai.Client
	model  openai.ChatModel
	log    *log.Logger
}

type result struct {
	Intent string `json:"intent"`
}

const systemPrompt = `
You are the intent classifier of TrafficAZ, a voice assistant for drivers in Yaounde.
Your ONLY job is to map the driver's utterance to one intent.

RULES:
1. Do NOT converse or answer the question.
2. Output ONLY JSON, no markdown: {"intent": "<name>"}
3. Use one of the intents listed below, exactly as written.
4. If nothing fits, use "unknown".

INTENTS:
%s
`

func New(opts Options, logger *log.Logger, extra ...option.RequestOption) *Classifier {
	if logger == nil {
		logger = log.Default()
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(opts.APIKey)}
	if opts.HTTPClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(opts.HTTPClient))
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	reqOpts = append(reqOpts, extra...)

	model := openai.ChatModel(opts.Model)
	if model == "" {
		model = openai.ChatModelGPT5Nano
	}

	return &Classifier{
		client: openai.NewClient(reqOpts...),
		model:  model,
		log:    logger,
	}
}

// Classify returns one of intents, or intent.Unknown.
func (c *Classifier) Classify(ctx context.Context, transcript string, intents []intent.Name) (intent.Name, error) {
	names := make([]string, len(intents))
	for i, n := range intents {
		names[i] = "- " + string(n)
	}

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(fmt.Sprintf(systemPrompt, strings.Join(names, "\n"))),
			openai.UserMessage(transcript),
		},
		Model: c.model,
	})
	if err != nil {
		return intent.Unknown, fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return intent.Unknown, fmt.Errorf("no choices in response")
	}

	content := resp.Choices[0].Message.Content
	if content == "" {
		return intent.Unknown, fmt.Errorf("empty message content")
	}

	c.log.Debug("Classified", "text", transcript, "data", content)

	name, err := parse(content)
	if err != nil {
		return intent.Unknown, err
	}
	if !slices.Contains(intents, name) {
		return intent.Unknown, nil
	}
	return name, nil
}

func parse(content string) (intent.Name, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var out result
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return intent.Unknown, fmt.Errorf("unmarshal NLU result: %w (raw: %s)", err, content)
	}
	return intent.Name(strings.ToLower(strings.TrimSpace(out.Intent))), nil
}
