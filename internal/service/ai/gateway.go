package ai

import (
	"context"
	"errors"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/voyagechat/backend/internal/config"
	"github.com/voyagechat/backend/internal/logging"
	"github.com/voyagechat/backend/internal/metrics"
	"github.com/voyagechat/backend/internal/model/chat"
)

// Gateway performs chat completion calls against an OpenAI-compatible
// endpoint. Each call is exactly one POST: retries are disabled and the
// request timeout is fixed at construction, so a turn either yields a reply
// or a classified failure.
type Gateway struct {
	client openai.Client
	model  string
}

// NewGateway builds a gateway from upstream configuration.
func NewGateway(cfg config.UpstreamConfig) *Gateway {
	client := openai.NewClient(
		option.WithBaseURL(cfg.BaseURL),
		option.WithAPIKey(cfg.APIKey),
		option.WithRequestTimeout(cfg.Timeout),
		option.WithMaxRetries(0),
	)

	return &Gateway{client: client, model: cfg.Model}
}

// Complete sends one completion request. Failures are returned as
// *chat.TurnError: transport when no response arrived, upstream when the
// provider answered with a failure status, malformed_response when a
// success response carried no assistant reply.
func (g *Gateway) Complete(ctx context.Context, req chat.CompletionRequest) (chat.Completion, error) {
	model := req.Model
	if model == "" {
		model = g.model
	}

	params := openai.ChatCompletionNewParams{
		Messages:         toWireMessages(req.Messages),
		Model:            openai.ChatModel(model),
		Temperature:      openai.Float(req.Temperature),
		MaxTokens:        openai.Int(int64(req.MaxTokens)),
		TopP:             openai.Float(req.TopP),
		FrequencyPenalty: openai.Float(req.FrequencyPenalty),
		PresencePenalty:  openai.Float(req.PresencePenalty),
	}

	started := time.Now()
	resp, err := g.client.Chat.Completions.New(ctx, params)
	metrics.ObserveUpstreamRequest(model, time.Since(started))

	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			logging.Warnf("[gateway] upstream rejected request: status=%d message=%s", apiErr.StatusCode, apiErr.Message)
			return chat.Completion{}, chat.UpstreamError(apiErr.StatusCode, upstreamDetail(apiErr), err)
		}
		logging.Warnf("[gateway] upstream unreachable: %v", err)
		return chat.Completion{}, chat.TransportError("upstream request failed", err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		logging.Warnf("[gateway] upstream returned no assistant message (model=%s)", resp.Model)
		return chat.Completion{}, chat.MalformedResponseError("upstream response carried no assistant message")
	}

	usage := chat.Usage{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}
	metrics.RecordUpstreamTokens(resp.Model, usage.PromptTokens, usage.CompletionTokens)

	return chat.Completion{
		Message: chat.Assistant(resp.Choices[0].Message.Content),
		Usage:   usage,
		Model:   resp.Model,
	}, nil
}

func upstreamDetail(apiErr *openai.Error) string {
	if apiErr.Message != "" {
		return apiErr.Message
	}
	return "upstream returned a failure status"
}

// toWireMessages converts conversation messages to the SDK's union type.
func toWireMessages(messages []chat.Message) []openai.ChatCompletionMessageParamUnion {
	result := make([]openai.ChatCompletionMessageParamUnion, len(messages))
	for i, msg := range messages {
		switch msg.Role {
		case chat.RoleSystem:
			result[i] = openai.SystemMessage(msg.Content)
		case chat.RoleAssistant:
			result[i] = openai.AssistantMessage(msg.Content)
		default:
			result[i] = openai.UserMessage(msg.Content)
		}
	}
	return result
}
