package analysis

import (
	"context"
	"strings"
	"time"
)

// Score bounds for a single assessment: seven positive criteria worth up
// to +100 combined, two negative criteria worth -160 combined.
const (
	MinScore = -160
	MaxScore = 100
)

// WordTiming is one word of the transcript with its offsets in seconds.
type WordTiming struct {
	Word      string  `bson:"word" json:"word"`
	StartTime float64 `bson:"startTime" json:"startTime"`
	EndTime   float64 `bson:"endTime" json:"endTime"`
}

// Transcription is the output of the speech-to-text stage.
type Transcription struct {
	Text       string       `bson:"text" json:"text"`
	Words      []WordTiming `bson:"words" json:"words"`
	Confidence float64      `bson:"confidence" json:"confidence"`
}

// Criteria is the per-call quality rubric. The last two entries are
// negative criteria: true means the call exhibited the problem.
type Criteria struct {
	ProperGreeting     bool `bson:"properGreeting" json:"properGreeting"`
	ActiveListening    bool `bson:"activeListening" json:"activeListening"`
	ClearCommunication bool `bson:"clearCommunication" json:"clearCommunication"`
	IssueResolved      bool `bson:"issueResolved" json:"issueResolved"`
	SubjectKnowledge   bool `bson:"subjectKnowledge" json:"subjectKnowledge"`
	Empathy            bool `bson:"empathy" json:"empathy"`
	SurveyReferral     bool `bson:"surveyReferral" json:"surveyReferral"`
	IncorrectProcedure bool `bson:"incorrectProcedure" json:"incorrectProcedure"`
	AbruptClosing      bool `bson:"abruptClosing" json:"abruptClosing"`
}

// Assessment is one semantic-analysis pass over a transcript.
type Assessment struct {
	Provider        string   `bson:"provider" json:"provider"`
	Narrative       string   `bson:"narrative" json:"narrative"`
	Criteria        Criteria `bson:"criteria" json:"criteria"`
	TotalScore      int      `bson:"totalScore" json:"totalScore"`
	Confidence      float64  `bson:"confidence" json:"confidence"`
	FlaggedPhrases  []string `bson:"flaggedPhrases" json:"flaggedPhrases"`
	ScoreDetails    []string `bson:"scoreDetails" json:"scoreDetails"`
	Recommendations []string `bson:"recommendations,omitempty" json:"recommendations,omitempty"`

	// Set only on secondary assessments that received the primary one
	// for cross-validation.
	Concurs     *bool    `bson:"concurs,omitempty" json:"concurs,omitempty"`
	Differences []string `bson:"differences,omitempty" json:"differences,omitempty"`
}

// Consensus is the single reconciled score derived from one or two
// assessments.
type Consensus struct {
	Score     int  `bson:"score" json:"score"`
	Validated bool `bson:"validated" json:"validated"`
	Sources   int  `bson:"sources" json:"sources"`
}

// Result is the accumulated output for one audio file. Created exactly
// once per file name and never updated.
type Result struct {
	EvaluationID   string        `bson:"evaluationId" json:"evaluationId"`
	FileName       string        `bson:"fileName" json:"fileName"`
	AudioURI       string        `bson:"audioUri" json:"audioUri"`
	Transcription  Transcription `bson:"transcription" json:"transcription"`
	Primary        Assessment    `bson:"primary" json:"primary"`
	Secondary      *Assessment   `bson:"secondary,omitempty" json:"secondary,omitempty"`
	Consensus      Consensus     `bson:"consensus" json:"consensus"`
	ProcessingTime float64       `bson:"processingTime" json:"processingTime"`
	CreatedAt      time.Time     `bson:"createdAt" json:"createdAt"`
}

// Transcriber converts an audio object into text with word timings.
type Transcriber interface {
	Transcribe(ctx context.Context, audioURI, fileName, language string) (*Transcription, error)
}

// Analyzer scores a transcript. prior is non-nil for secondary passes
// and carries the primary assessment for cross-validation.
type Analyzer interface {
	Analyze(ctx context.Context, transcript string, words []WordTiming, prior *Assessment) (*Assessment, error)
}

// ClampScore bounds a score to the valid range.
func ClampScore(score int) int {
	if score < MinScore {
		return MinScore
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}

// AudioFormat describes how an audio file should be presented to the
// transcription service.
type AudioFormat struct {
	Encoding   string
	MIMEType   string
	SampleRate int
}

// FormatForFile detects the audio format from the file extension.
// Unrecognized extensions fall back to WebM/Opus.
func FormatForFile(fileName string) AudioFormat {
	name := strings.ToLower(fileName)
	switch {
	case strings.HasSuffix(name, ".mp3"):
		return AudioFormat{Encoding: "MP3", MIMEType: "audio/mpeg", SampleRate: 44100}
	case strings.HasSuffix(name, ".wav"):
		return AudioFormat{Encoding: "LINEAR16", MIMEType: "audio/wav", SampleRate: 16000}
	default:
		return AudioFormat{Encoding: "WEBM_OPUS", MIMEType: "audio/webm", SampleRate: 16000}
	}
}
