package powerbitom

import (
	"context"
	"time"

	"powerbi-tom-skill/internal/common/logger"
	"powerbi-tom-skill/internal/common/observability"
	"powerbi-tom-skill/internal/memory"
	"powerbi-tom-skill/internal/tabular"
)

// Parameter names accepted in a ParameterSet.
const (
	KeyWorkspaceName  = "workspaceName"
	KeyDatasetName    = "datasetName"
	KeyTableName      = "tableName"
	KeyColumnName     = "columnName"
	KeyColumnTypeName = "columnTypeName"
	KeySettingName    = "settingName"
)

// ParameterSet holds the named string arguments of one invocation.
type ParameterSet map[string]string

// SeedRecordText and SeedRecordID identify the record written on first use
// of the settings lookup.
const (
	SeedRecordText = "Large dataset storage format"
	SeedRecordID   = "0"
)

// Notifier publishes model change events.
type Notifier interface {
	PublishJSON(ctx context.Context, subject string, payload interface{}) error
}

// ModelChangedEvent is published after a column type change is committed.
type ModelChangedEvent struct {
	EventID       string    `json:"eventId"`
	Workspace     string    `json:"workspace"`
	Dataset       string    `json:"dataset"`
	Table         string    `json:"table"`
	Column        string    `json:"column"`
	RequestedType string    `json:"requestedType"`
	AppliedType   string    `json:"appliedType"`
	ChangedAt     time.Time `json:"changedAt"`
}

type ServiceDependencies struct {
	Connector     tabular.Connector
	Memory        memory.Store
	Notifier      Notifier
	Seed          *SeedState
	Logger        logger.Logger
	Observability *observability.Observability
}
