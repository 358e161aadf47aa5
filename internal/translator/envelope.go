package translator

import (
	"encoding/json"

	"github.com/google/uuid"

	"antigravity2api-go/internal/models"
)

// BuildEnvelope wraps an InternalRequest in the upstream wire envelope for
// one account. Every attempt gets its own requestId.
func BuildEnvelope(ireq *InternalRequest, acct *models.Account, userAgentField string) ([]byte, error) {
	sessionID := ireq.SessionID
	if sessionID == "" {
		sessionID = acct.SessionID
	}

	request := map[string]interface{}{
		"contents":  ireq.Contents,
		"sessionId": sessionID,
		"generationConfig": buildGenerationConfig(
			ireq.Params, ireq.Thinking, IsClaudeModel(ireq.Model)),
	}
	if ireq.System != "" {
		request["systemInstruction"] = map[string]interface{}{
			"parts": []map[string]interface{}{{"text": ireq.System}},
		}
	}
	if len(ireq.Tools) > 0 {
		request["tools"] = ireq.Tools
	}
	if len(ireq.ToolConfig) > 0 {
		request["toolConfig"] = ireq.ToolConfig
	}

	envelope := map[string]interface{}{
		"project":   acct.ProjectID,
		"requestId": "agent-" + uuid.NewString(),
		"model":     ireq.Model,
		"userAgent": userAgentField,
		"request":   request,
	}
	return json.Marshal(envelope)
}
