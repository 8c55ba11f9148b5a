package provider

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// OpenAIProvider implements Provider for OpenAI models.
type OpenAIProvider struct {
	chatModel model.ToolCallingChatModel
	config    *OpenAIConfig
}

// OpenAIConfig holds configuration for the OpenAI provider.
type OpenAIConfig struct {
	// ID is the provider identifier; defaults to "openai". Set it when the
	// endpoint is an OpenAI-compatible gateway under a different name.
	ID          string
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64
}

// NewOpenAIProvider creates a new OpenAI provider.
func NewOpenAIProvider(ctx context.Context, config *OpenAIConfig) (*OpenAIProvider, error) {
	apiKey := config.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not set")
	}

	maxTokens := config.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	modelID := config.Model
	if modelID == "" {
		modelID = "gpt-4o"
	}

	cfg := &openai.ChatModelConfig{
		APIKey:              apiKey,
		Model:               modelID,
		MaxCompletionTokens: &maxTokens,
	}
	if config.BaseURL != "" {
		cfg.BaseURL = config.BaseURL
	}

	chatModel, err := openai.NewChatModel(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenAI model: %w", err)
	}

	return &OpenAIProvider{chatModel: chatModel, config: config}, nil
}

// ID returns the provider identifier.
func (p *OpenAIProvider) ID() string {
	if p.config.ID != "" {
		return p.config.ID
	}
	return "openai"
}

// Name returns the human-readable provider name.
func (p *OpenAIProvider) Name() string { return "OpenAI" }

// Stream starts a streaming completion.
func (p *OpenAIProvider) Stream(ctx context.Context, req *Request) (Stream, error) {
	chatModel := p.chatModel
	if len(req.Tools) > 0 {
		var err error
		chatModel, err = chatModel.WithTools(req.Tools)
		if err != nil {
			return nil, fmt.Errorf("failed to bind tools: %w", err)
		}
	}

	opts := []model.Option{}
	if req.MaxTokens > 0 {
		opts = append(opts, openai.WithMaxCompletionTokens(req.MaxTokens))
	}
	temperature := req.Temperature
	if temperature == 0 {
		temperature = p.config.Temperature
	}
	if temperature > 0 {
		opts = append(opts, model.WithTemperature(float32(temperature)))
	}

	reader, err := chatModel.Stream(ctx, withDirective(req), opts...)
	if err != nil {
		return nil, Classify(err)
	}

	return NewEinoStream(reader), nil
}

// Complete runs one non-streaming completion and returns the full text.
func (p *OpenAIProvider) Complete(ctx context.Context, directive, prompt string) (string, error) {
	messages := []*schema.Message{
		{Role: schema.System, Content: directive},
		{Role: schema.User, Content: prompt},
	}

	out, err := p.chatModel.Generate(ctx, messages)
	if err != nil {
		return "", Classify(err)
	}
	return out.Content, nil
}

// withDirective prepends the routed system directive to the history.
func withDirective(req *Request) []*schema.Message {
	messages := make([]*schema.Message, 0, len(req.Messages)+1)
	if req.Directive != "" {
		messages = append(messages, &schema.Message{Role: schema.System, Content: req.Directive})
	}
	return append(messages, req.Messages...)
}

// CollectText drains a stream and concatenates its text content. Used where
// a streaming provider is the only configured capability but a single
// completion is needed.
func CollectText(stream Stream) (string, error) {
	defer stream.Close()

	var sb strings.Builder
	for {
		msg, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		sb.WriteString(msg.Content)
	}
	return sb.String(), nil
}
