package llm

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/aws/aws-sdk-go-v2/config"
)

// DefaultModel is used when neither the flag, the environment, nor the
// configuration file names a model.
const DefaultModel = string(anthropic.ModelClaudeSonnet4_20250514)

// defaultMaxTokens caps generation length per call.
const defaultMaxTokens = 8192

// AnthropicConfig configures the production client.
type AnthropicConfig struct {
	// APIKey is the Anthropic API key. If empty, uses ANTHROPIC_API_KEY.
	// Ignored on the Bedrock path, which uses the AWS credential chain.
	APIKey string
	// UseBedrock routes calls through AWS Bedrock instead of the direct API.
	UseBedrock bool
	// AWSRegion is the Bedrock region (e.g., "us-west-2").
	AWSRegion string
	// AWSProfile is the optional AWS shared-config profile.
	AWSProfile string
	// MaxTokens caps generation length per call. Defaults to 8192.
	MaxTokens int
	// StreamWriter receives text deltas for streaming requests.
	// Defaults to os.Stderr so streamed progress never mixes into the
	// answer on stdout.
	StreamWriter io.Writer
}

// AnthropicClient is the production Client over the Anthropic Messages API.
type AnthropicClient struct {
	inner      anthropic.Client
	useBedrock bool
	maxTokens  int64
	stream     io.Writer
}

// NewAnthropicClient creates the production client. The context is used
// only for loading AWS configuration on the Bedrock path.
func NewAnthropicClient(ctx context.Context, cfg AnthropicConfig) (*AnthropicClient, error) {
	var opts []option.RequestOption

	if cfg.UseBedrock {
		var loadOpts []func(*config.LoadOptions) error
		if cfg.AWSRegion != "" {
			loadOpts = append(loadOpts, config.WithRegion(cfg.AWSRegion))
		}
		if cfg.AWSProfile != "" {
			loadOpts = append(loadOpts, config.WithSharedConfigProfile(cfg.AWSProfile))
		}
		opts = append(opts, bedrock.WithLoadDefaultConfig(ctx, loadOpts...))
	} else {
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("no API key: set ANTHROPIC_API_KEY or anthropic.api_key in the config file")
		}
		opts = append(opts, option.WithAPIKey(apiKey))
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	streamW := cfg.StreamWriter
	if streamW == nil {
		streamW = os.Stderr
	}

	return &AnthropicClient{
		inner:      anthropic.NewClient(opts...),
		useBedrock: cfg.UseBedrock,
		maxTokens:  int64(maxTokens),
		stream:     streamW,
	}, nil
}

// Generate implements Client.
func (c *AnthropicClient) Generate(ctx context.Context, req Request) (Response, error) {
	params := anthropic.MessageNewParams{
		Model:     c.model(req.Model),
		MaxTokens: c.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: req.System},
		}
	}

	if req.Stream {
		return c.generateStreaming(ctx, params)
	}

	resp, err := c.inner.Messages.New(ctx, params)
	if err != nil {
		return Response{}, fmt.Errorf("API call failed: %w", err)
	}

	return Response{
		Text:         textContent(resp.Content),
		OutputTokens: int(resp.Usage.OutputTokens),
	}, nil
}

// generateStreaming runs the call over SSE, relaying text deltas to the
// side channel, and returns the accumulated message.
func (c *AnthropicClient) generateStreaming(ctx context.Context, params anthropic.MessageNewParams) (Response, error) {
	stream := c.inner.Messages.NewStreaming(ctx, params)

	acc := anthropic.Message{}
	for stream.Next() {
		event := stream.Current()
		if err := acc.Accumulate(event); err != nil {
			return Response{}, fmt.Errorf("accumulate stream event: %w", err)
		}
		switch ev := event.AsAny().(type) {
		case anthropic.ContentBlockDeltaEvent:
			if delta, ok := ev.Delta.AsAny().(anthropic.TextDelta); ok {
				io.WriteString(c.stream, delta.Text)
			}
		case anthropic.MessageStopEvent:
			io.WriteString(c.stream, "\n")
		}
	}
	if err := stream.Err(); err != nil {
		return Response{}, fmt.Errorf("API call failed: %w", err)
	}

	return Response{
		Text:         textContent(acc.Content),
		OutputTokens: int(acc.Usage.OutputTokens),
	}, nil
}

// model resolves the per-request model, translating for Bedrock.
func (c *AnthropicClient) model(name string) anthropic.Model {
	model := anthropic.Model(name)
	if model == "" {
		model = anthropic.Model(DefaultModel)
	}
	if c.useBedrock {
		model = translateModelForBedrock(model)
	}
	return model
}

// textContent joins the text blocks of a response.
func textContent(blocks []anthropic.ContentBlockUnion) string {
	var result strings.Builder
	for _, block := range blocks {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			result.WriteString(variant.Text)
		}
	}
	return result.String()
}

// translateModelForBedrock converts standard Anthropic model names to
// Bedrock cross-region inference profile format: us.anthropic.{model}-v1:0
func translateModelForBedrock(model anthropic.Model) anthropic.Model {
	bedrockModels := map[anthropic.Model]string{
		anthropic.ModelClaudeSonnet4_20250514:   "us.anthropic.claude-sonnet-4-20250514-v1:0",
		anthropic.ModelClaudeSonnet4_5_20250929: "us.anthropic.claude-sonnet-4-5-20250929-v1:0",
		anthropic.ModelClaudeHaiku4_5_20251001:  "us.anthropic.claude-haiku-4-5-20251001-v1:0",
		anthropic.ModelClaudeOpus4_1_20250805:   "us.anthropic.claude-opus-4-1-20250805-v1:0",
		anthropic.ModelClaudeOpus4_5_20251101:   "us.anthropic.claude-opus-4-5-20251101-v1:0",
		anthropic.ModelClaude3_7Sonnet20250219:  "us.anthropic.claude-3-7-sonnet-20250219-v1:0",
		anthropic.ModelClaude3_5Haiku20241022:   "us.anthropic.claude-3-5-haiku-20241022-v1:0",
	}

	if bedrockModel, ok := bedrockModels[model]; ok {
		return anthropic.Model(bedrockModel)
	}

	// Already in Bedrock format, or a custom model
	return model
}
