/*

This file contains the typed decision produced by the recommendation
protocol, including the error actions used when the model misbehaves.

*/

package types

// Action is the enumerated outcome of a recommendation. The error values are
// first-class actions so that protocol violations stay visible in the audit
// trail and reach the operator instead of crashing the scan cycle.
type Action string

const (
	ActionMaintain  Action = "MAINTAIN"
	ActionRebalance Action = "REBALANCE"
	ActionClose     Action = "CLOSE"

	// ActionFormatError: the model response had no final answer span.
	ActionFormatError Action = "FORMAT_ERROR"
	// ActionParseError: the final answer span was not valid JSON.
	ActionParseError Action = "PARSE_ERROR"
	// ActionGenerationError: the model call itself failed mid-generation.
	ActionGenerationError Action = "GENERATION_ERROR"
	// ActionError: the model is not available at all.
	ActionError Action = "ERROR"
	// ActionUnknown: valid JSON but no action field.
	ActionUnknown Action = "UNKNOWN"
)

// NeedsNotification reports whether a decision with this action should be
// surfaced to the operator. Only MAINTAIN is quiet; every error state is
// notify-worthy so a human sees anomalies.
func (a Action) NeedsNotification() bool {
	return a != ActionMaintain
}

// Decision is the parsed result of one model invocation. RawOutput is the
// untruncated model response and is always populated when text was generated,
// regardless of whether parsing succeeded.
type Decision struct {
	Action        Action `json:"action"`
	Justification string `json:"justification"`
	RawOutput     string `json:"raw_output"`
}
