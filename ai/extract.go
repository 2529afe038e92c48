// Package ai turns raw document text into a candidate template definition by
// calling a chat-completion model. The model's output is best-effort JSON and
// is always passed through checklist.Normalize before anyone trusts it.
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/rlombardo/audit-king/checklist"
	"github.com/rlombardo/audit-king/model"
)

// ErrBadModelOutput is returned when the model response is not parseable
// JSON. Callers surface a generic failure; there is no partial recovery.
var ErrBadModelOutput = errors.New("ai: model returned malformed JSON")

const (
	defaultMaxSections            = 10
	defaultMaxQuestionsPerSection = 15
)

const systemPrompt = `You convert inspection checklists, audit procedures and similar
documents into a JSON template. Respond with a single JSON object and nothing else:
{"name": string, "description": string, "sections": [{"title": string,
"questions": [{"label": string, "type": "yes_no"|"quality"|"select"|"text",
"options": [string], "allowNotes": bool, "allowPhoto": bool, "required": bool}]}]}
Use "yes_no" for pass/fail checkpoints, "quality" for graded condition checks,
"select" (with options) for enumerated choices, "text" for open questions.`

// completeFunc performs one chat completion. A package-level indirection so
// tests can stub the upstream call; tests must restore it via t.Cleanup.
type completeFunc func(ctx context.Context, c *Client, system, user string) (string, error)

var complete completeFunc = openaiComplete

type Client struct {
	client openai.Client
	model  string
}

func NewClient(apiKey, model string) *Client {
	return &Client{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

// Extraction is the shape handed back to template authors for review: the
// normalized definition plus the name/description the model suggested.
type Extraction struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Definition  model.Definition `json:"definition"`
}

// Extract asks the model to distill text into a template definition.
// maxSections and maxQuestions bound the requested size (0 means default).
func (c *Client) Extract(ctx context.Context, text string, maxSections, maxQuestions int) (Extraction, error) {
	if maxSections <= 0 {
		maxSections = defaultMaxSections
	}
	if maxQuestions <= 0 {
		maxQuestions = defaultMaxQuestionsPerSection
	}

	userPrompt := fmt.Sprintf(
		"Extract at most %d sections with at most %d questions each from this document:\n\n%s",
		maxSections, maxQuestions, text,
	)

	raw, err := complete(ctx, c, systemPrompt, userPrompt)
	if err != nil {
		return Extraction{}, fmt.Errorf("ai: complete: %w", err)
	}

	var tree map[string]any
	if err := json.Unmarshal([]byte(stripMarkdownFences(raw)), &tree); err != nil {
		return Extraction{}, ErrBadModelOutput
	}

	ex := Extraction{Definition: checklist.Normalize(tree)}
	ex.Name, _ = tree["name"].(string)
	ex.Description, _ = tree["description"].(string)
	return ex, nil
}

func openaiComplete(ctx context.Context, c *Client, system, user string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       shared.ChatModel(c.model),
		Temperature: openai.Float(0.2),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", errors.New("response contained no content")
	}
	return resp.Choices[0].Message.Content, nil
}

// fenceRe matches a markdown code fence block with an optional language tag.
var fenceRe = regexp.MustCompile("(?s)^(?:`{3}|~{3})[^\\n]*\\n(.*?)(?:`{3}|~{3})\\s*$")

func stripMarkdownFences(s string) string {
	s = strings.TrimSpace(s)
	if m := fenceRe.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	return s
}
