package powerbitom

import (
	"time"

	"powerbi-tom-skill/internal/common/config"
	"powerbi-tom-skill/internal/common/errors"
	"powerbi-tom-skill/pkg/registry"
)

const SkillName = "powerbi-tom"

var lookupCodes = []errors.ErrorCode{
	errors.ErrCodeInputInsufficient,
	errors.ErrCodeWorkspaceConnectionFailed,
	errors.ErrCodeQueryExecutionFailed,
	errors.ErrCodeDatasetNotFound,
}

// ErrorCodes lists the codes a function can raise.
func ErrorCodes(function string) []errors.ErrorCode {
	switch function {
	case FunctionGetDatasetName:
		return []errors.ErrorCode{
			errors.ErrCodeInputInsufficient,
			errors.ErrCodeWorkspaceConnectionFailed,
			errors.ErrCodeQueryExecutionFailed,
		}
	case FunctionGetDatasetInformation, FunctionGetDatasetProblemAndSuggestion:
		return lookupCodes
	case FunctionGetTableSchema, FunctionGetMProgram:
		return append(append([]errors.ErrorCode{}, lookupCodes...), errors.ErrCodeTableNotFound)
	case FunctionAlterColumnType:
		return append(append([]errors.ErrorCode{}, lookupCodes...),
			errors.ErrCodeTableNotFound, errors.ErrCodeColumnNotFound, errors.ErrCodeModelCommitFailed)
	case FunctionGetLinkFromTopic:
		return []errors.ErrorCode{errors.ErrCodeInputInsufficient, errors.ErrCodeMemoryStoreSearchFailed}
	}
	return nil
}

// Manifest describes the catalog. app may be nil, in which case every
// function is listed as enabled with the default timeout.
func Manifest(app *config.Config, version string, now time.Time) *registry.SkillManifest {
	m := &registry.SkillManifest{
		Skill:       SkillName,
		Version:     version,
		LastUpdated: now.UTC().Format(time.RFC3339),
	}

	for _, fn := range Functions() {
		fnCfg := config.FunctionConfig{Enabled: true, Timeout: 60000}
		if app != nil {
			fnCfg = config.GetFunctionConfig(app, fn.Name)
		}

		params := make([]registry.Parameter, len(fn.Parameters))
		for i, p := range fn.Parameters {
			params[i] = registry.Parameter{Name: p.Name, Description: p.Description, Required: p.Required}
		}
		codes := ErrorCodes(fn.Name)
		names := make([]string, len(codes))
		for i, c := range codes {
			names[i] = string(c)
		}

		m.Functions = append(m.Functions, registry.FunctionEntry{
			Name:         fn.Name,
			Description:  fn.Description,
			TaskType:     TaskType(fn.Name),
			Parameters:   params,
			InputSchema:  GetInputSchema(fn).ToMap(),
			OutputSchema: GetOutputSchema().ToMap(),
			ErrorCodes:   names,
			Mutating:     fn.Name == FunctionAlterColumnType,
			Timeout:      config.GetDuration(fnCfg.Timeout).String(),
			Retries:      errors.GetRetryCount(""),
			Enabled:      fnCfg.Enabled,
		})
	}
	return m
}
