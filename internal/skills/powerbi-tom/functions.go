package powerbitom

import (
	"context"

	"powerbi-tom-skill/internal/common/config"
)

// Names under which the operations are registered with a host.
const (
	FunctionGetDatasetName                 = "GetDatasetName"
	FunctionGetDatasetInformation          = "GetDatasetInformation"
	FunctionGetTableSchema                 = "GetTableSchema"
	FunctionGetMProgram                    = "GetMProgram"
	FunctionAlterColumnType                = "AlterColumnType"
	FunctionGetDatasetProblemAndSuggestion = "GetDatasetProblemAndSuggestion"
	FunctionGetLinkFromTopic               = "GetLinkFromTopic"
)

type Parameter struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

// Function is one catalog entry. Invoke runs the operation against inv and
// leaves the failure flag on inv.
type Function struct {
	Name        string
	Description string
	Parameters  []Parameter
	Invoke      func(ctx context.Context, s *Service, inv *Invocation) (string, error)
}

// RequiredKeys lists the required parameter names in declared order.
func (f Function) RequiredKeys() []string {
	var keys []string
	for _, p := range f.Parameters {
		if p.Required {
			keys = append(keys, p.Name)
		}
	}
	return keys
}

var (
	paramWorkspace = Parameter{Name: KeyWorkspaceName, Description: "Workspace name for power bi workspace", Required: true}
	paramDataset   = Parameter{Name: KeyDatasetName, Description: "Dataset name for power bi workspace", Required: true}
	paramTable     = Parameter{Name: KeyTableName, Description: "Table name for power bi workspace", Required: true}
)

// Functions returns the catalog in registration order.
func Functions() []Function {
	return []Function{
		{
			Name:        FunctionGetDatasetName,
			Description: "Return dataset name of my power bi workspace",
			Parameters: []Parameter{
				{Name: KeyWorkspaceName, Description: "Workspace name to search in power bi.", Required: true},
			},
			Invoke: func(ctx context.Context, s *Service, inv *Invocation) (string, error) {
				// the workspace is positional; the flag still has to be set on a gap
				if _, msg, ok := RequireParameters(inv, KeyWorkspaceName); !ok {
					return msg, nil
				}
				out, err := s.ListDatasetNames(ctx, inv.Variables[KeyWorkspaceName])
				if err != nil {
					inv.Fail(err)
				}
				return out, err
			},
		},
		{
			Name:        FunctionGetDatasetInformation,
			Description: "Given workspace name and dataset name, return dataset info of a power bi workspace",
			Parameters:  []Parameter{paramDataset, paramWorkspace},
			Invoke: func(ctx context.Context, s *Service, inv *Invocation) (string, error) {
				return s.GetDatasetInfo(ctx, inv)
			},
		},
		{
			Name:        FunctionGetTableSchema,
			Description: "Given workspace name, dataset name and table name, return table schema.",
			Parameters:  []Parameter{paramDataset, paramWorkspace, paramTable},
			Invoke: func(ctx context.Context, s *Service, inv *Invocation) (string, error) {
				return s.GetTableSchema(ctx, inv)
			},
		},
		{
			Name:        FunctionGetMProgram,
			Description: "Given workspace name, dataset name and table name, return M program of table.",
			Parameters:  []Parameter{paramDataset, paramWorkspace, paramTable},
			Invoke: func(ctx context.Context, s *Service, inv *Invocation) (string, error) {
				return s.GetTablePartitionExpression(ctx, inv)
			},
		},
		{
			Name:        FunctionAlterColumnType,
			Description: "Given workspace name, dataset name and table name, alter a column to target type.",
			Parameters: []Parameter{
				paramDataset,
				paramWorkspace,
				{Name: KeyTableName, Description: "Table name", Required: true},
				{Name: KeyColumnName, Description: "Column name", Required: true},
				{Name: KeyColumnTypeName, Description: "Target type to alter", Required: true},
			},
			Invoke: func(ctx context.Context, s *Service, inv *Invocation) (string, error) {
				return s.AlterColumnType(ctx, inv)
			},
		},
		{
			Name:        FunctionGetDatasetProblemAndSuggestion,
			Description: "Given workspace name and dataset name, return dataset problem and suggestions.",
			Parameters:  []Parameter{paramDataset, paramWorkspace},
			Invoke: func(ctx context.Context, s *Service, inv *Invocation) (string, error) {
				return s.DetectDatasetIssue(ctx, inv)
			},
		},
		{
			Name:        FunctionGetLinkFromTopic,
			Description: "For a setting of power bi, get url link of setting page to help cx.",
			Parameters: []Parameter{
				{Name: KeySettingName, Description: "Setting name that user want to find.", Required: true},
			},
			Invoke: func(ctx context.Context, s *Service, inv *Invocation) (string, error) {
				return s.ResolveSettingUrl(ctx, inv)
			},
		},
	}
}

// FunctionByName looks up a catalog entry.
func FunctionByName(name string) (Function, bool) {
	for _, fn := range Functions() {
		if fn.Name == name {
			return fn, true
		}
	}
	return Function{}, false
}

// EnabledFunctions filters the catalog by the functions section of cfg.
func EnabledFunctions(cfg *config.Config) []Function {
	all := Functions()
	if cfg == nil {
		return all
	}
	out := make([]Function, 0, len(all))
	for _, fn := range all {
		if config.IsFunctionEnabled(cfg, fn.Name) {
			out = append(out, fn)
		}
	}
	return out
}
