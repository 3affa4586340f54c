package analysis

import (
	"context"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/sirupsen/logrus"
)

// ClaudeAnalyzer is the secondary scoring pass. It receives the primary
// assessment and cross-validates it.
type ClaudeAnalyzer struct {
	client anthropic.Client
	model  string
	log    *logrus.Logger
}

func NewClaudeAnalyzer(apiKey, model string, log *logrus.Logger) (*ClaudeAnalyzer, error) {
	if apiKey == "" {
		return nil, errors.New("anthropic api key not configured")
	}

	return &ClaudeAnalyzer{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
		log:    log,
	}, nil
}

func (c *ClaudeAnalyzer) Analyze(ctx context.Context, transcript string, words []WordTiming, prior *Assessment) (*Assessment, error) {
	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: 4096,
		System: []anthropic.TextBlockParam{
			{Text: analyzeSystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(buildAnalysisPrompt(transcript, words, prior))),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic api error: %w", err)
	}

	var text string
	for _, block := range message.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}
	if text == "" {
		return nil, errors.New("unparseable response: no text content")
	}

	assessment, err := parseAssessment("claude", text)
	if err != nil {
		return nil, err
	}

	c.log.WithFields(logrus.Fields{
		"score":   assessment.TotalScore,
		"concurs": assessment.Concurs != nil && *assessment.Concurs,
	}).Info("secondary analysis completed")
	return assessment, nil
}
