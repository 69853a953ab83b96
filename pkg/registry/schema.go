// pkg/registry/schema.go
package registry

// SkillManifest describes the functions a skill host exposes.
type SkillManifest struct {
	Skill       string          `json:"skill"`
	Version     string          `json:"version"`
	LastUpdated string          `json:"lastUpdated"`
	Functions   []FunctionEntry `json:"functions"`
}

type FunctionEntry struct {
	Name         string                 `json:"name"`
	Description  string                 `json:"description"`
	TaskType     string                 `json:"taskType"`
	Parameters   []Parameter            `json:"parameters"`
	InputSchema  map[string]interface{} `json:"inputSchema"`
	OutputSchema map[string]interface{} `json:"outputSchema"`
	ErrorCodes   []string               `json:"errorCodes"`
	Mutating     bool                   `json:"mutating"`
	Timeout      string                 `json:"timeout"`
	Retries      int                    `json:"retries"`
	Enabled      bool                   `json:"enabled"`
}

type Parameter struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
}
