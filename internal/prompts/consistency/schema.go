package consistency

// VerdictSchema is the JSON schema for a boolean judgment.
var VerdictSchema = map[string]any{
	"type": "json_schema",
	"json_schema": map[string]any{
		"name":   "consistency_verdict",
		"strict": true,
		"schema": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"result": map[string]any{
					"type":        "boolean",
					"description": "The judgment",
				},
				"reason": map[string]any{
					"type":        "string",
					"description": "One short sentence explaining the judgment",
				},
			},
			"required": []string{"result"},
		},
	},
}

// DescriptionSchema is the JSON schema for an app state description.
var DescriptionSchema = map[string]any{
	"type": "json_schema",
	"json_schema": map[string]any{
		"name":   "app_state_description",
		"strict": true,
		"schema": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"description": map[string]any{
					"type":        "string",
					"description": "One-sentence description of the app state",
				},
			},
			"required": []string{"description"},
		},
	},
}

// Verdict is the parsed answer of a boolean judgment.
type Verdict struct {
	Result bool   `json:"result"`
	Reason string `json:"reason"`
}

// StateDescription is the parsed answer of OpDescribeState.
type StateDescription struct {
	Description string `json:"description"`
}

// SchemaFor returns the answer schema for op.
func SchemaFor(op string) map[string]any {
	if op == OpDescribeState {
		return DescriptionSchema
	}
	return VerdictSchema
}
