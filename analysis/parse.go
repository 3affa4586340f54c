package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// assessmentPayload is the JSON contract both analyzers are prompted to
// return.
type assessmentPayload struct {
	Narrative       string   `json:"narrative"`
	Criteria        Criteria `json:"criteria"`
	TotalScore      int      `json:"totalScore"`
	Confidence      float64  `json:"confidence"`
	FlaggedPhrases  []string `json:"flaggedPhrases"`
	ScoreDetails    []string `json:"scoreDetails"`
	Recommendations []string `json:"recommendations"`
	Validation      *struct {
		Concurs     bool     `json:"concurs"`
		Differences []string `json:"differences"`
	} `json:"validation"`
}

// extractJSON pulls the outermost JSON object out of a model response,
// tolerating prose or code fences around it.
func extractJSON(text string) (string, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return "", errors.New("unparseable response: no JSON object found")
	}
	return text[start : end+1], nil
}

// parseAssessment decodes and validates a model response into an
// Assessment attributed to provider.
func parseAssessment(provider, text string) (*Assessment, error) {
	raw, err := extractJSON(text)
	if err != nil {
		return nil, err
	}

	var payload assessmentPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("unparseable response: %w", err)
	}

	if payload.TotalScore < MinScore || payload.TotalScore > MaxScore {
		return nil, fmt.Errorf("invalid response: score %d out of range [%d, %d]",
			payload.TotalScore, MinScore, MaxScore)
	}

	a := &Assessment{
		Provider:        provider,
		Narrative:       payload.Narrative,
		Criteria:        payload.Criteria,
		TotalScore:      payload.TotalScore,
		Confidence:      payload.Confidence,
		FlaggedPhrases:  payload.FlaggedPhrases,
		ScoreDetails:    payload.ScoreDetails,
		Recommendations: payload.Recommendations,
	}
	if payload.FlaggedPhrases == nil {
		a.FlaggedPhrases = []string{}
	}
	if payload.Validation != nil {
		concurs := payload.Validation.Concurs
		a.Concurs = &concurs
		a.Differences = payload.Validation.Differences
	}
	return a, nil
}

// transcriptionPayload is the JSON contract the transcriber is prompted
// to return.
type transcriptionPayload struct {
	Transcript string       `json:"transcript"`
	Words      []WordTiming `json:"words"`
	Confidence float64      `json:"confidence"`
}

func parseTranscription(text string) (*Transcription, error) {
	raw, err := extractJSON(text)
	if err != nil {
		return nil, err
	}

	var payload transcriptionPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("unparseable response: %w", err)
	}

	return &Transcription{
		Text:       strings.TrimSpace(payload.Transcript),
		Words:      payload.Words,
		Confidence: payload.Confidence,
	}, nil
}
