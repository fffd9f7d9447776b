package gateway

import (
	"encoding/json"
	"fmt"

	"github.com/Punshui30/NF2/internal/models"
)

// analysisSystemPrompt instructs the provider to return the fixed analysis
// key set as strict JSON.
const analysisSystemPrompt = `You are NorthForm's Decision Compass, a decision analyst grounded in psychology and behavioral science.
Return STRICT JSON with keys:
- confidence (number 0-100)
- recommendation (string)
- reasoning (array of 3-6 concise bullet strings)
- suggestedNextSteps (array of 3-6 imperative steps)
Compare the options against the user's values, constraints, and context. Respond ONLY with JSON.`

// coachSystemPrompt instructs the provider to return a warm reply plus a
// conservative profile patch as strict JSON.
const coachSystemPrompt = `You are NorthForm's onboarding guide.
Task: read the USER message and build a JSON "profilePatch" capturing any of: values[], antiValues[], lifeVision, goal90d, goal12m, nonNegs[], constraints[], decisionStyle, biasNotes, and conversation snippets (conv: {fam, frd, wrk}) you can infer.
Rules:
- Return STRICT JSON with keys: reply (string), profilePatch (object).
- The reply should be warm, concise, and ask one useful follow-up question.
- Be conservative: only fill fields you are confident about.
- NEVER include PII the user did not provide.`

// renderDecisionPrompt serializes the decision, options, and user inputs
// into the data half of the prompt.
func renderDecisionPrompt(req models.AnalyzeRequest) (string, error) {
	options, err := json.Marshal(req.UsableOptions())
	if err != nil {
		return "", fmt.Errorf("failed to marshal options: %w", err)
	}
	inputs := req.UserInputs
	if inputs == nil {
		inputs = map[string]any{}
	}
	userInputs, err := json.Marshal(inputs)
	if err != nil {
		return "", fmt.Errorf("failed to marshal user inputs: %w", err)
	}
	return fmt.Sprintf("Decision: %s\nOptions: %s\nUserInputs: %s", req.Decision, options, userInputs), nil
}

// renderCoachPrompt serializes the current partial profile and the user's
// message for the coach turn.
func renderCoachPrompt(req models.CoachRequest) (string, error) {
	profile := req.Profile
	if profile == nil {
		profile = &models.Profile{}
	}
	current, err := json.Marshal(profile)
	if err != nil {
		return "", fmt.Errorf("failed to marshal profile: %w", err)
	}
	return fmt.Sprintf("CurrentProfile (partial): %s\nUserMessage: %s", current, req.Message), nil
}
