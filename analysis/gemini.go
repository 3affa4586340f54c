package analysis

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"google.golang.org/genai"
)

// GeminiClient implements both Transcriber and Analyzer on top of the
// Gemini API. One client serves transcription and the primary scoring
// pass.
type GeminiClient struct {
	client *genai.Client
	model  string
	log    *logrus.Logger
}

func NewGeminiClient(ctx context.Context, apiKey, model string, log *logrus.Logger) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key not configured")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiClient{client: client, model: model, log: log}, nil
}

// Transcribe sends the audio object to Gemini and parses the structured
// transcript out of the response.
func (g *GeminiClient) Transcribe(ctx context.Context, audioURI, fileName, language string) (*Transcription, error) {
	format := FormatForFile(fileName)

	g.log.WithFields(logrus.Fields{
		"audio_uri": audioURI,
		"encoding":  format.Encoding,
	}).Info("transcribing audio")

	parts := []*genai.Part{
		{FileData: &genai.FileData{FileURI: audioURI, MIMEType: format.MIMEType}},
		{Text: fmt.Sprintf(transcribePromptTemplate, language)},
	}

	text, err := g.generate(ctx, parts, transcribeSystemPrompt)
	if err != nil {
		return nil, err
	}

	tr, err := parseTranscription(text)
	if err != nil {
		return nil, err
	}

	g.log.WithField("chars", len(tr.Text)).Info("transcription completed")
	return tr, nil
}

// Analyze runs a scoring pass over the transcript.
func (g *GeminiClient) Analyze(ctx context.Context, transcript string, words []WordTiming, prior *Assessment) (*Assessment, error) {
	parts := []*genai.Part{
		{Text: buildAnalysisPrompt(transcript, words, prior)},
	}

	text, err := g.generate(ctx, parts, analyzeSystemPrompt)
	if err != nil {
		return nil, err
	}

	assessment, err := parseAssessment("gemini", text)
	if err != nil {
		return nil, err
	}

	g.log.WithField("score", assessment.TotalScore).Info("primary analysis completed")
	return assessment, nil
}

func (g *GeminiClient) generate(ctx context.Context, parts []*genai.Part, system string) (string, error) {
	temperature := float32(0.3)
	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: system}}},
		Temperature:       &temperature,
		ResponseMIMEType:  "application/json",
	}

	contents := []*genai.Content{{Role: "user", Parts: parts}}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return "", err
	}

	text := responseText(resp)
	if text == "" {
		return "", errors.New("unparseable response: no text content")
	}
	return text, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var out string
	for _, part := range resp.Candidates[0].Content.Parts {
		out += part.Text
	}
	return out
}
