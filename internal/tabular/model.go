// Package tabular is the minimal object model of a remote tabular server:
// name lookups, child enumeration, one settable property and a commit.
package tabular

import (
	"context"
	"strings"
	"time"
)

// DataType mirrors the tabular object model column data type codes.
type DataType int

const (
	DataTypeAutomatic DataType = 1
	DataTypeString    DataType = 2
	DataTypeInt64     DataType = 6
	DataTypeDouble    DataType = 8
	DataTypeDateTime  DataType = 9
	DataTypeDecimal   DataType = 10
	DataTypeBoolean   DataType = 11
	DataTypeBinary    DataType = 17
	DataTypeUnknown   DataType = 19
	DataTypeVariant   DataType = 20
)

var dataTypeNames = map[DataType]string{
	DataTypeAutomatic: "Automatic",
	DataTypeString:    "String",
	DataTypeInt64:     "Int64",
	DataTypeDouble:    "Double",
	DataTypeDateTime:  "DateTime",
	DataTypeDecimal:   "Decimal",
	DataTypeBoolean:   "Boolean",
	DataTypeBinary:    "Binary",
	DataTypeUnknown:   "Unknown",
	DataTypeVariant:   "Variant",
}

func (d DataType) String() string {
	if name, ok := dataTypeNames[d]; ok {
		return name
	}
	return "Unknown"
}

// ParseDataType resolves a type name case-insensitively.
func ParseDataType(name string) (DataType, bool) {
	for dt, n := range dataTypeNames {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			return dt, true
		}
	}
	return DataTypeUnknown, false
}

// PartitionSourceType mirrors the tabular object model partition source kinds.
type PartitionSourceType int

const (
	PartitionSourceQuery            PartitionSourceType = 1
	PartitionSourceCalculated       PartitionSourceType = 2
	PartitionSourceNone             PartitionSourceType = 3
	PartitionSourceM                PartitionSourceType = 4
	PartitionSourceEntity           PartitionSourceType = 5
	PartitionSourcePolicyRange      PartitionSourceType = 6
	PartitionSourceCalculationGroup PartitionSourceType = 7
	PartitionSourceInferred         PartitionSourceType = 8
	PartitionSourceParquet          PartitionSourceType = 9
)

var partitionSourceNames = map[PartitionSourceType]string{
	PartitionSourceQuery:            "Query",
	PartitionSourceCalculated:       "Calculated",
	PartitionSourceNone:             "None",
	PartitionSourceM:                "M",
	PartitionSourceEntity:           "Entity",
	PartitionSourcePolicyRange:      "PolicyRange",
	PartitionSourceCalculationGroup: "CalculationGroup",
	PartitionSourceInferred:         "Inferred",
	PartitionSourceParquet:          "Parquet",
}

func (p PartitionSourceType) String() string {
	if name, ok := partitionSourceNames[p]; ok {
		return name
	}
	return "None"
}

// DatabaseInfo holds the dataset properties reported by GetDatasetInfo.
type DatabaseInfo struct {
	Name               string
	ID                 string
	ModelType          string
	CompatibilityLevel int
	LastUpdate         time.Time
	EstimatedSize      int64
	CompatibilityMode  string
	LastProcessed      time.Time
	LastSchemaUpdate   time.Time
}

// Connector opens a server session from a connection string.
type Connector interface {
	Connect(ctx context.Context, connectionString string) (Server, error)
}

// Server is one open workspace connection.
type Server interface {
	Databases(ctx context.Context) ([]Database, error)
	Close() error
}

type Database interface {
	Name() string
	Info(ctx context.Context) (DatabaseInfo, error)
	Tables(ctx context.Context) ([]Table, error)
	// SaveChanges commits pending column type changes to the remote model.
	SaveChanges(ctx context.Context) error
}

type Table interface {
	Name() string
	Columns(ctx context.Context) ([]Column, error)
	Partitions(ctx context.Context) ([]Partition, error)
}

type Column interface {
	Name() string
	DataType() DataType
	// SetDataType changes the local value; it is pending until SaveChanges.
	SetDataType(DataType)
}

type Partition interface {
	Name() string
	SourceType() PartitionSourceType
	Expression() string
}
