package advisor

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/lpwatch/lpwatch/internal/types"
)

// The output grammar is two delimited sections; only the second one, strict
// JSON inside <final_answer>, is machine-consumed. Everything else in the
// response is the model's scratchpad.
var finalAnswerPattern = regexp.MustCompile(`(?s)<final_answer>(.*?)</final_answer>`)

type modelAnswer struct {
	Action        *string `json:"action"`
	Justification *string `json:"justification"`
}

// parseOutput extracts the typed decision from raw model output. The raw
// text is always retained verbatim in the decision — it is the only defense
// against silent model misbehavior.
func parseOutput(raw string) types.Decision {
	match := finalAnswerPattern.FindStringSubmatch(raw)
	if match == nil {
		return types.Decision{
			Action:        types.ActionFormatError,
			Justification: "The model did not follow the tagged output format: no <final_answer> block found.",
			RawOutput:     raw,
		}
	}

	jsonBody := strings.TrimSpace(match[1])

	var answer modelAnswer
	if err := json.Unmarshal([]byte(jsonBody), &answer); err != nil {
		return types.Decision{
			Action:        types.ActionParseError,
			Justification: "The model emitted invalid JSON inside <final_answer>.",
			RawOutput:     raw,
		}
	}

	action := types.ActionUnknown
	if answer.Action != nil && *answer.Action != "" {
		action = types.Action(*answer.Action)
	}

	justification := "No justification provided."
	if answer.Justification != nil && *answer.Justification != "" {
		justification = *answer.Justification
	}

	return types.Decision{
		Action:        action,
		Justification: justification,
		RawOutput:     raw,
	}
}
