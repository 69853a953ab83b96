package powerbitom

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"powerbi-tom-skill/internal/common/errors"
	"powerbi-tom-skill/internal/common/logger"
	"powerbi-tom-skill/internal/common/metrics"
	"powerbi-tom-skill/internal/common/observability"
	"powerbi-tom-skill/internal/memory"
	"powerbi-tom-skill/internal/tabular"
)

const modelChangedSubject = "powerbi.model.column_type_changed"

type Service struct {
	config   *Config
	logger   logger.Logger
	scope    *tabular.Scope
	memory   memory.Store
	notifier Notifier
	seed     *SeedState
	obs      *observability.Observability
	now      func() time.Time
}

func NewService(deps ServiceDependencies, config *Config) *Service {
	if config == nil {
		config = DefaultConfig()
	}
	log := deps.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	seed := deps.Seed
	if seed == nil {
		seed = NewSeedState()
	}

	var recorder tabular.ConnectionRecorder
	if deps.Observability != nil {
		recorder = deps.Observability
	}

	return &Service{
		config:   config,
		logger:   log,
		scope:    tabular.NewScope(deps.Connector, recorder),
		memory:   deps.Memory,
		notifier: deps.Notifier,
		seed:     seed,
		obs:      deps.Observability,
		now:      time.Now,
	}
}

// observe wraps one operation with the invocation metrics and a span.
// inv may be nil for the positional workspace listing.
func (s *Service) observe(ctx context.Context, function string, inv *Invocation, op func(context.Context) (string, error)) (string, error) {
	start := time.Now()
	metrics.SkillInvocations.WithLabelValues(function).Inc()
	metrics.SkillInvocationsActive.WithLabelValues(function).Inc()
	defer metrics.SkillInvocationsActive.WithLabelValues(function).Dec()

	ctx, span := s.obs.StartSpan(ctx, "skill."+function, attribute.String("skill.function", function))
	defer span.End()

	out, err := op(ctx)

	failure := err
	if failure == nil && inv != nil {
		failure = inv.Err()
	}
	if failure != nil {
		code := string(errors.CodeOf(failure))
		metrics.SkillInvocationFailures.WithLabelValues(function, code).Inc()
		span.SetAttributes(attribute.String("skill.error_code", code))
		span.SetStatus(codes.Error, failure.Error())
	}
	metrics.SkillInvocationDuration.WithLabelValues(function).Observe(time.Since(start).Seconds())
	return out, err
}

// conclude turns a lookup or remote failure into the operation result. Name
// lookup misses become a message with the failure flag set; anything else is
// returned as an error.
func (s *Service) conclude(inv *Invocation, function string, err error) (string, error) {
	stdErr := errors.AsStandardError(err)
	if inv != nil {
		inv.Fail(stdErr)
	}

	fields := map[string]interface{}{
		"function":  function,
		"errorCode": string(stdErr.Code),
		"message":   stdErr.Message,
		"details":   stdErr.Details,
	}
	if errors.IsNotFound(stdErr) {
		s.logger.Warn("Lookup found no match", fields)
		return stdErr.Message, nil
	}
	s.logger.Error("Operation failed", fields)
	return "", stdErr
}

func (s *Service) logEntry(function string, values map[string]string) {
	fields := map[string]interface{}{"function": function}
	for _, key := range []string{KeyWorkspaceName, KeyDatasetName, KeyTableName} {
		if v, ok := values[key]; ok {
			fields[key] = v
		}
	}
	s.logger.Info("Invoking skill function", fields)
}

// ListDatasetNames lists every dataset of workspaceName in remote order.
func (s *Service) ListDatasetNames(ctx context.Context, workspaceName string) (string, error) {
	return s.observe(ctx, FunctionGetDatasetName, nil, func(ctx context.Context) (string, error) {
		if strings.TrimSpace(workspaceName) == "" {
			return insufficientMessage(KeyWorkspaceName), nil
		}
		s.logEntry(FunctionGetDatasetName, map[string]string{KeyWorkspaceName: workspaceName})

		var names strings.Builder
		err := s.scope.WithServer(ctx, workspaceName, func(server tabular.Server) error {
			dbs, err := server.Databases(ctx)
			if err != nil {
				return queryError("list datasets", err)
			}
			for _, db := range dbs {
				names.WriteString(db.Name())
			}
			return nil
		})
		if err != nil {
			return s.conclude(nil, FunctionGetDatasetName, err)
		}

		return fmt.Sprintf("The dataset names for user %s is Dataset name list:%s for %s.",
			s.config.UserDisplayName, names.String(), workspaceName), nil
	})
}

func (s *Service) GetDatasetInfo(ctx context.Context, inv *Invocation) (string, error) {
	return s.observe(ctx, FunctionGetDatasetInformation, inv, func(ctx context.Context) (string, error) {
		p, msg, ok := RequireParameters(inv, KeyDatasetName, KeyWorkspaceName)
		if !ok {
			return msg, nil
		}
		s.logEntry(FunctionGetDatasetInformation, p)
		workspace, dataset := p[KeyWorkspaceName], p[KeyDatasetName]

		var info tabular.DatabaseInfo
		err := s.scope.WithServer(ctx, workspace, func(server tabular.Server) error {
			db, err := tabular.FindDatabase(ctx, server, dataset, workspace)
			if err != nil {
				return err
			}
			info, err = db.Info(ctx)
			if err != nil {
				return queryError("dataset info", err)
			}
			return nil
		})
		if err != nil {
			return s.conclude(inv, FunctionGetDatasetInformation, err)
		}

		return formatDatabaseInfo(info), nil
	})
}

// formatDatabaseInfo runs the nine labelled fields together with no separator.
func formatDatabaseInfo(info tabular.DatabaseInfo) string {
	var b strings.Builder
	b.WriteString("Name: " + info.Name)
	b.WriteString("ID: " + info.ID)
	b.WriteString("ModelType: " + info.ModelType)
	b.WriteString("CompatibilityLevel: " + strconv.Itoa(info.CompatibilityLevel))
	b.WriteString("LastUpdated: " + info.LastUpdate.Format(time.RFC3339))
	b.WriteString("EstimatedSize: " + strconv.FormatInt(info.EstimatedSize, 10))
	b.WriteString("CompatibilityMode: " + info.CompatibilityMode)
	b.WriteString("LastProcessed: " + info.LastProcessed.Format(time.RFC3339))
	b.WriteString("LastSchemaUpdate: " + info.LastSchemaUpdate.Format(time.RFC3339))
	return b.String()
}

func (s *Service) GetTableSchema(ctx context.Context, inv *Invocation) (string, error) {
	return s.observe(ctx, FunctionGetTableSchema, inv, func(ctx context.Context) (string, error) {
		p, msg, ok := RequireParameters(inv, KeyDatasetName, KeyWorkspaceName, KeyTableName)
		if !ok {
			return msg, nil
		}
		s.logEntry(FunctionGetTableSchema, p)
		workspace, dataset, tableName := p[KeyWorkspaceName], p[KeyDatasetName], p[KeyTableName]

		var b strings.Builder
		fmt.Fprintf(&b, "Table schema for table %s, dataset name %s, workspace name %s:", tableName, dataset, workspace)

		err := s.scope.WithServer(ctx, workspace, func(server tabular.Server) error {
			table, err := s.findTable(ctx, server, workspace, dataset, tableName)
			if err != nil {
				return err
			}
			cols, err := table.Columns(ctx)
			if err != nil {
				return queryError("list columns", err)
			}
			for _, col := range cols {
				b.WriteString("\nColumn: " + col.Name())
				b.WriteString("\nType: " + col.DataType().String())
			}
			return nil
		})
		if err != nil {
			return s.conclude(inv, FunctionGetTableSchema, err)
		}

		return b.String(), nil
	})
}

// GetTablePartitionExpression returns the expression of the first M
// partition. A table without one yields an empty string and no failure.
func (s *Service) GetTablePartitionExpression(ctx context.Context, inv *Invocation) (string, error) {
	return s.observe(ctx, FunctionGetMProgram, inv, func(ctx context.Context) (string, error) {
		p, msg, ok := RequireParameters(inv, KeyDatasetName, KeyWorkspaceName, KeyTableName)
		if !ok {
			return msg, nil
		}
		s.logEntry(FunctionGetMProgram, p)
		workspace, dataset, tableName := p[KeyWorkspaceName], p[KeyDatasetName], p[KeyTableName]

		var out string
		err := s.scope.WithServer(ctx, workspace, func(server tabular.Server) error {
			table, err := s.findTable(ctx, server, workspace, dataset, tableName)
			if err != nil {
				return err
			}
			parts, err := table.Partitions(ctx)
			if err != nil {
				return queryError("list partitions", err)
			}
			for _, part := range parts {
				if part.SourceType() != tabular.PartitionSourceM {
					continue
				}
				out = fmt.Sprintf("The M program for table %s, dataset name %s, workspace name %s is:",
					tableName, dataset, workspace) + part.Expression() + "\n."
				return nil
			}
			return nil
		})
		if err != nil {
			return s.conclude(inv, FunctionGetMProgram, err)
		}

		if out == "" {
			s.logger.Info("Table has no M partition", map[string]interface{}{
				"workspaceName": workspace,
				"datasetName":   dataset,
				"tableName":     tableName,
			})
		}
		return out, nil
	})
}

// AlterColumnType sets the column to Decimal whatever columnTypeName asks
// for, then commits. A commit failure is terminal.
func (s *Service) AlterColumnType(ctx context.Context, inv *Invocation) (string, error) {
	return s.observe(ctx, FunctionAlterColumnType, inv, func(ctx context.Context) (string, error) {
		p, msg, ok := RequireParameters(inv, KeyDatasetName, KeyWorkspaceName, KeyTableName, KeyColumnName, KeyColumnTypeName)
		if !ok {
			return msg, nil
		}
		s.logEntry(FunctionAlterColumnType, p)
		workspace, dataset := p[KeyWorkspaceName], p[KeyDatasetName]
		tableName, columnName, requested := p[KeyTableName], p[KeyColumnName], p[KeyColumnTypeName]

		applied := tabular.DataTypeDecimal
		if dt, known := tabular.ParseDataType(requested); !known || dt != applied {
			s.logger.Warn("Requested column type ignored, applying Decimal", map[string]interface{}{
				"columnName":    columnName,
				"requestedType": requested,
				"appliedType":   applied.String(),
			})
		}

		err := s.scope.WithServer(ctx, workspace, func(server tabular.Server) error {
			db, err := tabular.FindDatabase(ctx, server, dataset, workspace)
			if err != nil {
				return err
			}
			table, err := tabular.FindTable(ctx, db, tableName)
			if err != nil {
				return err
			}
			col, err := tabular.FindColumn(ctx, table, columnName)
			if err != nil {
				return err
			}

			col.SetDataType(applied)
			if err := db.SaveChanges(ctx); err != nil {
				if errors.CodeOf(err) == errors.ErrCodeModelCommitFailed {
					return err
				}
				return errors.NewModelCommitFailedError(dataset, err)
			}
			return nil
		})
		if err != nil {
			return s.conclude(inv, FunctionAlterColumnType, err)
		}

		s.publishChange(ctx, ModelChangedEvent{
			EventID:       uuid.NewString(),
			Workspace:     workspace,
			Dataset:       dataset,
			Table:         tableName,
			Column:        columnName,
			RequestedType: requested,
			AppliedType:   applied.String(),
			ChangedAt:     s.now().UTC(),
		})

		return fmt.Sprintf("Column type altered to decimal successfully for column %s, table %s, dataset name %s, workspace name %s.",
			columnName, tableName, dataset, workspace), nil
	})
}

func (s *Service) publishChange(ctx context.Context, event ModelChangedEvent) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.PublishJSON(ctx, modelChangedSubject, event); err != nil {
		s.logger.Warn("Failed to publish model change", map[string]interface{}{
			"eventId": event.EventID,
			"error":   err.Error(),
		})
	}
}

// DetectDatasetIssue reports the first Double column in table-then-column
// order.
func (s *Service) DetectDatasetIssue(ctx context.Context, inv *Invocation) (string, error) {
	return s.observe(ctx, FunctionGetDatasetProblemAndSuggestion, inv, func(ctx context.Context) (string, error) {
		p, msg, ok := RequireParameters(inv, KeyDatasetName, KeyWorkspaceName)
		if !ok {
			return msg, nil
		}
		s.logEntry(FunctionGetDatasetProblemAndSuggestion, p)
		workspace, dataset := p[KeyWorkspaceName], p[KeyDatasetName]

		var finding string
		err := s.scope.WithServer(ctx, workspace, func(server tabular.Server) error {
			db, err := tabular.FindDatabase(ctx, server, dataset, workspace)
			if err != nil {
				return err
			}
			tables, err := db.Tables(ctx)
			if err != nil {
				return queryError("list tables", err)
			}
			for _, table := range tables {
				cols, err := table.Columns(ctx)
				if err != nil {
					return queryError("list columns", err)
				}
				for _, col := range cols {
					if col.DataType() == tabular.DataTypeDouble {
						finding = fmt.Sprintf("The model is problematic because column type is double for column %s, table %s, dataset name %s, workspace name %s. Make it decimal.",
							col.Name(), table.Name(), dataset, workspace)
						return nil
					}
				}
			}
			return nil
		})
		if err != nil {
			return s.conclude(inv, FunctionGetDatasetProblemAndSuggestion, err)
		}

		if finding != "" {
			return finding, nil
		}
		return fmt.Sprintf("Everything is perfect for dataset name %s, workspace name %s.", dataset, workspace), nil
	})
}

// ResolveSettingUrl seeds the settings memory on first use, then looks the
// setting up by similarity.
func (s *Service) ResolveSettingUrl(ctx context.Context, inv *Invocation) (string, error) {
	return s.observe(ctx, FunctionGetLinkFromTopic, inv, func(ctx context.Context) (string, error) {
		p, msg, ok := RequireParameters(inv, KeySettingName)
		if !ok {
			return msg, nil
		}
		settingName := p[KeySettingName]
		s.logger.Info("Invoking skill function", map[string]interface{}{
			"function":    FunctionGetLinkFromTopic,
			"settingName": settingName,
		})

		if s.config.SeedOnFirstUse {
			if err := s.Seed(ctx); err != nil {
				s.logger.Warn("Seeding settings memory failed", map[string]interface{}{
					"collection": s.config.MemoryCollection,
					"error":      err.Error(),
				})
			}
		}

		if s.memory == nil {
			return s.conclude(inv, FunctionGetLinkFromTopic,
				errors.NewMemoryStoreSearchFailedError(s.config.MemoryCollection, fmt.Errorf("no memory store configured")))
		}

		results, err := s.memory.Search(ctx, s.config.MemoryCollection, settingName, 1, s.config.MinRelevance)
		if err != nil {
			return s.conclude(inv, FunctionGetLinkFromTopic,
				errors.NewMemoryStoreSearchFailedError(s.config.MemoryCollection, err))
		}
		if len(results) > 0 {
			return fmt.Sprintf("The url for setting %s is %s", settingName, s.config.SettingsURL), nil
		}
		return "I couldn't find related setting.", nil
	})
}

// Seed writes the settings seed record once per SeedState. Later calls are
// no-ops whatever the outcome of the first.
func (s *Service) Seed(ctx context.Context) error {
	if !s.seed.Begin() {
		return nil
	}
	s.logger.Info("First invocation, seeding settings memory", map[string]interface{}{
		"collection": s.config.MemoryCollection,
	})

	if s.memory == nil {
		metrics.MemorySeedAttempts.WithLabelValues("skipped").Inc()
		return errors.NewMemoryStoreSaveFailedError(s.config.MemoryCollection, fmt.Errorf("no memory store configured"))
	}
	if err := s.memory.SaveInformation(ctx, s.config.MemoryCollection, SeedRecordText, SeedRecordID, s.config.SettingsURL); err != nil {
		metrics.MemorySeedAttempts.WithLabelValues("failed").Inc()
		return errors.NewMemoryStoreSaveFailedError(s.config.MemoryCollection, err)
	}
	metrics.MemorySeedAttempts.WithLabelValues("succeeded").Inc()
	return nil
}

func (s *Service) findTable(ctx context.Context, server tabular.Server, workspace, dataset, table string) (tabular.Table, error) {
	db, err := tabular.FindDatabase(ctx, server, dataset, workspace)
	if err != nil {
		return nil, err
	}
	return tabular.FindTable(ctx, db, table)
}

// queryError keeps StandardErrors raised by a connector and wraps anything else.
func queryError(what string, err error) error {
	if _, ok := err.(*errors.StandardError); ok {
		return err
	}
	return errors.NewQueryExecutionFailedError(what, err)
}
