package powerbitom

import (
	"context"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"powerbi-tom-skill/internal/common/config"
	"powerbi-tom-skill/internal/common/errors"
	"powerbi-tom-skill/internal/common/logger"
	"powerbi-tom-skill/internal/common/validation"
)

// TaskTypePrefix is prepended to a function name to form its job type.
const TaskTypePrefix = "powerbi-tom."

func TaskType(function string) string {
	return TaskTypePrefix + function
}

// Output is the job result written back to the process.
type Output struct {
	Result string `json:"result"`
}

// Handler serves one catalog function as a Zeebe job worker.
type Handler struct {
	config       *Config
	logger       logger.Logger
	service      *Service
	function     Function
	errorHandler *errors.ErrorHandler
}

type HandlerOptions struct {
	AppConfig    *config.Config
	CustomConfig *Config
	Service      *Service
	Function     Function
	Logger       logger.Logger
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	cfg := opts.CustomConfig
	if cfg == nil {
		cfg = ConfigFromApp(opts.AppConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", opts.Function.Name, err)
	}
	if opts.Service == nil {
		return nil, fmt.Errorf("service is required for %s", opts.Function.Name)
	}
	if opts.Function.Invoke == nil {
		return nil, fmt.Errorf("function %q has no implementation", opts.Function.Name)
	}

	if opts.AppConfig != nil {
		fnCfg := config.GetFunctionConfig(opts.AppConfig, opts.Function.Name)
		cfg.Enabled = fnCfg.Enabled
		cfg.Timeout = config.GetDuration(fnCfg.Timeout)
	}

	loggerInstance := opts.Logger
	if loggerInstance == nil {
		loggerInstance = logger.NewStructured("info", "json", "stderr")
	}
	loggerInstance = loggerInstance.WithFields(map[string]interface{}{
		"worker": TaskType(opts.Function.Name),
	})

	return &Handler{
		config:       cfg,
		logger:       loggerInstance,
		service:      opts.Service,
		function:     opts.Function,
		errorHandler: errors.NewErrorHandler(loggerInstance),
	}, nil
}

func (h *Handler) TaskType() string {
	return TaskType(h.function.Name)
}

func (h *Handler) Config() *Config {
	return h.config
}

// Handle completes the job with the function result. A failure flag is thrown
// as a BPMN error or fails the job, depending on its category.
func (h *Handler) Handle(client worker.JobClient, job entities.Job) error {
	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	h.logger.Info("Processing skill job", map[string]interface{}{
		"jobKey":             job.GetKey(),
		"processInstanceKey": job.GetProcessInstanceKey(),
	})

	if !h.config.Enabled {
		h.errorHandler.HandleJobError(ctx, client, job,
			errors.NewInternalError(fmt.Errorf("function %s disabled by configuration", h.function.Name)))
		return nil
	}

	variables, err := job.GetVariablesAsMap()
	if err != nil {
		h.errorHandler.HandleJobError(ctx, client, job, &errors.StandardError{
			Code:      errors.ErrCodeInputInsufficient,
			Message:   "Failed to parse job variables",
			Details:   err.Error(),
			Retryable: false,
			Timestamp: time.Now().UTC(),
		})
		return nil
	}

	output, inv, err := h.Execute(ctx, variables)
	if err != nil {
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return nil
	}
	if inv.Failed() {
		h.errorHandler.HandleJobError(ctx, client, job, inv.Err())
		return nil
	}

	return h.completeJob(ctx, client, job, output)
}

// Execute validates variables and runs the function. The returned invocation
// carries the failure flag.
func (h *Handler) Execute(ctx context.Context, variables map[string]interface{}) (*Output, *Invocation, error) {
	params, err := h.parseInput(variables)
	if err != nil {
		inv := NewInvocation(nil)
		inv.Fail(err)
		return nil, inv, err
	}

	inv := NewInvocation(params)
	result, err := h.function.Invoke(ctx, h.service, inv)
	if err != nil {
		return nil, inv, err
	}
	return &Output{Result: result}, inv, nil
}

func (h *Handler) parseInput(variables map[string]interface{}) (ParameterSet, error) {
	result, err := validation.ValidateInput(variables, GetInputSchema(h.function))
	if err != nil {
		return nil, errors.NewInternalError(err)
	}
	if !result.Valid {
		var invalid []string
		for _, p := range h.function.Parameters {
			if result.HasErrors(p.Name) {
				invalid = append(invalid, p.Name)
			}
		}
		return nil, &errors.StandardError{
			Code:      errors.ErrCodeInputInsufficient,
			Message:   "Input validation failed",
			Details:   fmt.Sprintf("Validation errors: %v", result.GetErrorMessages()),
			Retryable: false,
			Metadata:  map[string]interface{}{"invalidParameters": invalid},
			Timestamp: time.Now().UTC(),
		}
	}

	params := make(ParameterSet, len(h.function.Parameters))
	for _, p := range h.function.Parameters {
		if v, ok := variables[p.Name].(string); ok {
			params[p.Name] = v
		}
	}
	return params, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) error {
	request, err := client.NewCompleteJobCommand().JobKey(job.GetKey()).VariablesFromObject(output)
	if err != nil {
		h.logger.Error("Failed to create complete job command", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		return err
	}

	if _, err := request.Send(ctx); err != nil {
		h.logger.Error("Failed to complete job", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		return err
	}

	h.logger.Info("Successfully completed skill job", map[string]interface{}{
		"jobKey": job.GetKey(),
	})
	return nil
}
