package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openai/openai-go"
)

var _ Answerer = &LLMClient{}

type LLMConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// LLMClient answers questions through an OpenAI compatible chat completions API.
type LLMClient struct {
	client      openai.Client
	model       string
	temperature float64
	maxTokens   int
}

func NewLLMClient(cfg LLMConfig) *LLMClient {
	return &LLMClient{
		client:      openai.NewClient(clientOptions(cfg.BaseURL, cfg.APIKey, cfg.Timeout)...),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}
}

func (mc *LLMClient) Answer(ctx context.Context, question, contextText string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(mc.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(AnswerSystemPrompt),
			openai.UserMessage(fmt.Sprintf(AnswerUserPrompt, contextText, question)),
		},
	}
	if mc.temperature > 0 {
		params.Temperature = openai.Float(mc.temperature)
	}
	if mc.maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(mc.maxTokens))
	}

	completion, err := mc.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", errors.New("empty LLM response")
	}
	return completion.Choices[0].Message.Content, nil
}
