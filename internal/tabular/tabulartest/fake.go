// Package tabulartest provides an in-memory tabular.Connector for tests.
package tabulartest

import (
	"context"
	"fmt"
	"sync"

	"powerbi-tom-skill/internal/tabular"
)

// Commit records one column type change made durable by SaveChanges.
type Commit struct {
	Database string
	Table    string
	Column   string
	Type     tabular.DataType
}

// Connector is a fake workspace topology with call counters.
type Connector struct {
	mu         sync.Mutex
	workspaces map[string][]*Database

	// ConnectErr, when set, fails every Connect.
	ConnectErr error
	// CloseErr, when set, is returned by every server Close.
	CloseErr error
	// DatabasesErr, when set, fails database enumeration.
	DatabasesErr error

	connects  int
	closes    int
	saves     int
	committed []Commit
}

func New() *Connector {
	return &Connector{workspaces: make(map[string][]*Database)}
}

// AddDatabase registers db under workspace, preserving insertion order.
func (c *Connector) AddDatabase(workspace string, db *Database) *Database {
	c.mu.Lock()
	defer c.mu.Unlock()
	db.owner = c
	c.workspaces[workspace] = append(c.workspaces[workspace], db)
	return db
}

func (c *Connector) Connect(ctx context.Context, connectionString string) (tabular.Server, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connects++

	if c.ConnectErr != nil {
		return nil, c.ConnectErr
	}
	workspace, err := tabular.ParseConnectionString(connectionString)
	if err != nil {
		return nil, err
	}
	dbs, ok := c.workspaces[workspace]
	if !ok {
		return nil, fmt.Errorf("workspace %s not found", workspace)
	}
	return &server{owner: c, databases: dbs}, nil
}

// Connects returns how many times Connect was called.
func (c *Connector) Connects() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connects
}

// Closes returns how many servers were closed.
func (c *Connector) Closes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closes
}

// Saves returns how many times SaveChanges was called on any database.
func (c *Connector) Saves() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saves
}

// Committed returns the column type changes made durable so far.
func (c *Connector) Committed() []Commit {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Commit(nil), c.committed...)
}

type server struct {
	owner     *Connector
	databases []*Database
	closed    bool
}

func (s *server) Databases(ctx context.Context) ([]tabular.Database, error) {
	s.owner.mu.Lock()
	err := s.owner.DatabasesErr
	s.owner.mu.Unlock()
	if err != nil {
		return nil, err
	}

	out := make([]tabular.Database, len(s.databases))
	for i, db := range s.databases {
		out[i] = db
	}
	return out, nil
}

func (s *server) Close() error {
	s.owner.mu.Lock()
	defer s.owner.mu.Unlock()
	if !s.closed {
		s.closed = true
		s.owner.closes++
	}
	return s.owner.CloseErr
}

// Database is a fake dataset.
type Database struct {
	Meta      tabular.DatabaseInfo
	TableList []*Table
	// CommitErr, when set, fails SaveChanges and keeps changes pending.
	CommitErr error
	InfoErr   error

	owner *Connector
}

func NewDatabase(name string, tables ...*Table) *Database {
	return &Database{Meta: tabular.DatabaseInfo{Name: name}, TableList: tables}
}

func (d *Database) Name() string { return d.Meta.Name }

// Info returns Meta, or InfoErr when set.
func (d *Database) Info(ctx context.Context) (tabular.DatabaseInfo, error) {
	if d.InfoErr != nil {
		return tabular.DatabaseInfo{}, d.InfoErr
	}
	return d.Meta, nil
}

func (d *Database) Tables(ctx context.Context) ([]tabular.Table, error) {
	out := make([]tabular.Table, len(d.TableList))
	for i, t := range d.TableList {
		out[i] = t
	}
	return out, nil
}

func (d *Database) SaveChanges(ctx context.Context) error {
	if d.owner != nil {
		d.owner.mu.Lock()
		defer d.owner.mu.Unlock()
		d.owner.saves++
	}
	if d.CommitErr != nil {
		return d.CommitErr
	}

	for _, t := range d.TableList {
		for _, col := range t.ColumnList {
			if !col.dirty {
				continue
			}
			col.dirty = false
			if d.owner != nil {
				d.owner.committed = append(d.owner.committed, Commit{
					Database: d.Meta.Name,
					Table:    t.TableName,
					Column:   col.ColumnName,
					Type:     col.Type,
				})
			}
		}
	}
	return nil
}

// Table is a fake table.
type Table struct {
	TableName     string
	ColumnList    []*Column
	PartitionList []*Partition
}

func NewTable(name string, columns ...*Column) *Table {
	return &Table{TableName: name, ColumnList: columns}
}

// WithPartitions appends partitions and returns the table.
func (t *Table) WithPartitions(partitions ...*Partition) *Table {
	t.PartitionList = append(t.PartitionList, partitions...)
	return t
}

func (t *Table) Name() string { return t.TableName }

func (t *Table) Columns(ctx context.Context) ([]tabular.Column, error) {
	out := make([]tabular.Column, len(t.ColumnList))
	for i, c := range t.ColumnList {
		out[i] = c
	}
	return out, nil
}

func (t *Table) Partitions(ctx context.Context) ([]tabular.Partition, error) {
	out := make([]tabular.Partition, len(t.PartitionList))
	for i, p := range t.PartitionList {
		out[i] = p
	}
	return out, nil
}

// Column is a fake column.
type Column struct {
	ColumnName string
	Type       tabular.DataType
	dirty      bool
}

func NewColumn(name string, dt tabular.DataType) *Column {
	return &Column{ColumnName: name, Type: dt}
}

func (c *Column) Name() string               { return c.ColumnName }
func (c *Column) DataType() tabular.DataType { return c.Type }

func (c *Column) SetDataType(dt tabular.DataType) {
	c.Type = dt
	c.dirty = true
}

// Pending reports whether the column has an uncommitted type change.
func (c *Column) Pending() bool { return c.dirty }

// Partition is a fake partition.
type Partition struct {
	PartitionName string
	Source        tabular.PartitionSourceType
	Query         string
}

func NewPartition(name string, source tabular.PartitionSourceType, expression string) *Partition {
	return &Partition{PartitionName: name, Source: source, Query: expression}
}

func (p *Partition) Name() string                            { return p.PartitionName }
func (p *Partition) SourceType() tabular.PartitionSourceType { return p.Source }
func (p *Partition) Expression() string                      { return p.Query }
