package analysis

import (
	"encoding/json"
	"fmt"
	"strings"
)

const transcribeSystemPrompt = `You are a precise speech transcription engine for customer-service call recordings. Return only JSON.`

const transcribePromptTemplate = `Transcribe the attached call recording. Language: %s.

Return a JSON object with this exact structure:
{
  "transcript": "full transcript with punctuation",
  "words": [{"word": "...", "startTime": 0.0, "endTime": 0.4}],
  "confidence": 0.95
}

Word timings are offsets in seconds from the start of the audio. If timings cannot be determined, return an empty words array. Do not add commentary outside the JSON.`

const analyzeSystemPrompt = `You are an expert in customer-service call quality analysis. Score transcripts objectively, following the scoring rubric exactly.`

const scoringRubric = `Evaluate each criterion as true or false based on the transcript:

- properGreeting: the agent greeted the customer appropriately (+10 if true)
- activeListening: demonstrated active listening and asked relevant questions (+15 if true)
- clearCommunication: communicated clearly and objectively (+10 if true)
- issueResolved: resolved the issue following procedure (+25 if true)
- subjectKnowledge: demonstrated command of the subject (+15 if true)
- empathy: showed empathy and cordiality (+15 if true)
- surveyReferral: directed the customer to the satisfaction survey (+10 if true)
- incorrectProcedure: relayed incorrect information (-60 if true)
- abruptClosing: ended the contact abruptly or dropped the call (-100 if true)

totalScore is the sum of the applicable points and ranges from -160 to 100.

FLAGGED PHRASES:
Search the transcript specifically for escalation language: mentions of a
regulator or consumer-protection agency, ombudsman complaints, lawsuits or
legal action ("sue", "lawyer", "take this to court"), and formal complaints
or reports to authorities. Include synonyms and variations. If none are
present, return an empty array; never invent phrases that are not about
formal complaints or legal escalation.`

const analysisResponseShape = `Return a JSON object with this exact structure:
{
  "narrative": "detailed analysis of the call",
  "criteria": {
    "properGreeting": false, "activeListening": false, "clearCommunication": false,
    "issueResolved": false, "subjectKnowledge": false, "empathy": false,
    "surveyReferral": false, "incorrectProcedure": false, "abruptClosing": false
  },
  "totalScore": 0,
  "confidence": 0.0,
  "flaggedPhrases": [],
  "scoreDetails": ["explanation per applied criterion"],
  "recommendations": []
}`

const validationResponseAddendum = `Additionally include:
  "validation": {"concurs": true, "differences": []}
where concurs states whether you agree with the prior assessment's score and
criteria, and differences lists any significant divergences.`

// buildAnalysisPrompt renders the user prompt for a scoring pass. A
// non-nil prior turns it into a cross-validation pass.
func buildAnalysisPrompt(transcript string, words []WordTiming, prior *Assessment) string {
	var b strings.Builder

	b.WriteString("Analyze the following customer-service call transcript.\n\nTRANSCRIPT:\n")
	b.WriteString(transcript)
	b.WriteString("\n\n")

	if len(words) > 0 {
		b.WriteString(fmt.Sprintf("The transcript has %d word timings available; use pacing only as secondary evidence.\n\n", len(words)))
	}

	if prior != nil {
		criteria, _ := json.Marshal(prior.Criteria)
		b.WriteString("PRIOR ASSESSMENT (independent first pass):\n")
		b.WriteString(fmt.Sprintf("Score: %d\nCriteria: %s\nFlagged phrases: %s\nAnalysis: %s\n\n",
			prior.TotalScore, criteria, strings.Join(prior.FlaggedPhrases, ", "), prior.Narrative))
		b.WriteString("Validate or challenge this assessment with your own independent evaluation. Explain significant differences.\n\n")
	}

	b.WriteString(scoringRubric)
	b.WriteString("\n\n")
	b.WriteString(analysisResponseShape)
	if prior != nil {
		b.WriteString("\n\n")
		b.WriteString(validationResponseAddendum)
	}
	return b.String()
}
