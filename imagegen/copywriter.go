package imagegen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"thumbnail_studio/core"
)

// MaxCopyIdeas caps the number of headline suggestions per generation.
const MaxCopyIdeas = 5

// CopySuggester proposes short overlay headlines for a generated thumbnail.
// Callers treat failures as "no suggestions".
type CopySuggester interface {
	SuggestCopy(ctx context.Context, prompt string, vehicle core.VehicleType) ([]string, error)
}

const copySystemPrompt = "You write punchy YouTube thumbnail headlines for a three-wheel vehicle channel. " +
	"Respond only with a JSON array of at most 5 strings, each under 6 words."

// OpenAICopywriter asks a chat model for headline ideas.
type OpenAICopywriter struct {
	client   *openai.Client
	model    string
	fallback CopySuggester
}

// OpenAICopywriterConfig configures the chat-based copywriter.
type OpenAICopywriterConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	// Fallback answers when the chat call fails. Optional.
	Fallback CopySuggester
}

// NewOpenAICopywriter creates a copywriter from explicit settings. coreCfg
// supplies HTTP client settings and may be nil.
func NewOpenAICopywriter(cfg OpenAICopywriterConfig, coreCfg *core.Config) (*OpenAICopywriter, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("imagegen: OpenAI API key is required")
	}
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	if coreCfg != nil {
		clientConfig.HTTPClient = core.GetHTTPClient(coreCfg, coreCfg.AITimeout)
	}
	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAICopywriter{
		client:   openai.NewClientWithConfig(clientConfig),
		model:    model,
		fallback: cfg.Fallback,
	}, nil
}

// SuggestCopy returns up to MaxCopyIdeas headlines.
func (c *OpenAICopywriter) SuggestCopy(ctx context.Context, prompt string, vehicle core.VehicleType) ([]string, error) {
	ideas, err := c.suggest(ctx, prompt, vehicle)
	if err != nil && c.fallback != nil {
		return c.fallback.SuggestCopy(ctx, prompt, vehicle)
	}
	return ideas, err
}

func (c *OpenAICopywriter) suggest(ctx context.Context, prompt string, vehicle core.VehicleType) ([]string, error) {
	user := "Thumbnail prompt: " + prompt
	if vehicle != "" {
		user += "\nVehicle: " + string(vehicle)
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: 0.8,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: copySystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("imagegen: copy suggestion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("imagegen: copy suggestion returned no choices")
	}
	ideas := ParseCopyIdeas(resp.Choices[0].Message.Content)
	if len(ideas) == 0 {
		return nil, errors.New("imagegen: copy suggestion returned no ideas")
	}
	return ideas, nil
}

// ParseCopyIdeas extracts headlines from a model answer. A JSON array (or an
// object with an "ideas" array) is preferred; otherwise each non-empty line
// is an idea with list markers and quotes stripped.
func ParseCopyIdeas(text string) []string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var arr []string
	if err := json.Unmarshal([]byte(text), &arr); err == nil {
		return cleanIdeas(arr)
	}
	var obj struct {
		Ideas []string `json:"ideas"`
	}
	if err := json.Unmarshal([]byte(text), &obj); err == nil && len(obj.Ideas) > 0 {
		return cleanIdeas(obj.Ideas)
	}
	return cleanIdeas(strings.Split(text, "\n"))
}

func cleanIdeas(raw []string) []string {
	out := make([]string, 0, MaxCopyIdeas)
	for _, line := range raw {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*•0123456789.) ")
		line = strings.Trim(line, "\"' ")
		if line == "" || line == "[" || line == "]" {
			continue
		}
		out = append(out, line)
		if len(out) == MaxCopyIdeas {
			break
		}
	}
	return out
}

// StaticCopywriter builds headlines from the prompt without calling out.
type StaticCopywriter struct{}

// NewStaticCopywriter returns the offline copywriter.
func NewStaticCopywriter() *StaticCopywriter {
	return &StaticCopywriter{}
}

// SuggestCopy never fails.
func (s *StaticCopywriter) SuggestCopy(ctx context.Context, prompt string, vehicle core.VehicleType) ([]string, error) {
	subject := "This Ride"
	if vehicle != "" {
		subject = string(vehicle)
		if _, model, ok := strings.Cut(subject, " "); ok {
			subject = model
		}
	}

	// Casers carry state and are not shared between calls.
	caser := cases.Title(language.English)
	ideas := []string{
		caser.String(headline(prompt, 4)),
		subject + " Unleashed",
		"Three Wheels. Zero Limits.",
	}
	return cleanIdeas(ideas), nil
}

// headline keeps the first n words of the prompt's first clause.
func headline(prompt string, n int) string {
	clause, _, _ := strings.Cut(prompt, ",")
	words := strings.Fields(clause)
	if len(words) > n {
		words = words[:n]
	}
	return strings.Join(words, " ")
}

var (
	_ CopySuggester = (*OpenAICopywriter)(nil)
	_ CopySuggester = (*StaticCopywriter)(nil)
)
