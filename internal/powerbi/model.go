package powerbi

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"powerbi-tom-skill/internal/common/errors"
	"powerbi-tom-skill/internal/tabular"
)

const (
	daxTables     = "EVALUATE INFO.TABLES()"
	daxModel      = "EVALUATE INFO.MODEL()"
	daxColumns    = "EVALUATE FILTER(INFO.COLUMNS(), [TableID] = %d)"
	daxPartitions = "EVALUATE FILTER(INFO.PARTITIONS(), [TableID] = %d)"

	// INFO.COLUMNS [Type] value for the hidden RowNumber column.
	columnTypeRowNumber = 3
)

type session struct {
	connector *Connector
	token     string
	workspace string
	groupID   string
}

func (s *session) Databases(ctx context.Context) ([]tabular.Database, error) {
	var list datasetList
	endpoint := s.connector.groupURL(s.groupID, "datasets")
	if err := s.connector.http.DoJSON(ctx, http.MethodGet, endpoint, s.token, nil, &list); err != nil {
		return nil, errors.NewQueryExecutionFailedError("list datasets", err)
	}

	out := make([]tabular.Database, 0, len(list.Value))
	for _, item := range list.Value {
		out = append(out, &dataset{session: s, item: item})
	}
	return out, nil
}

// Close drops the token; the REST API holds no server-side session.
func (s *session) Close() error {
	s.token = ""
	return nil
}

func (s *session) query(ctx context.Context, datasetID, dax string) ([]map[string]any, error) {
	return s.connector.executeQuery(ctx, s.token, s.groupID, datasetID, dax)
}

type dataset struct {
	session *session
	item    datasetItem

	mu      sync.Mutex
	pending []*column
}

func (d *dataset) Name() string { return d.item.Name }

func (d *dataset) Info(ctx context.Context) (tabular.DatabaseInfo, error) {
	info := tabular.DatabaseInfo{
		Name:              d.item.Name,
		ID:                d.item.ID,
		ModelType:         "Tabular",
		CompatibilityMode: "PowerBI",
	}

	rows, err := d.session.query(ctx, d.item.ID, daxModel)
	if err != nil {
		return tabular.DatabaseInfo{}, err
	}
	if len(rows) > 0 {
		model := rows[0]
		info.CompatibilityLevel = rowInt(model, "CompatibilityLevel")
		info.LastUpdate = rowTime(model, "ModifiedTime")
		info.LastSchemaUpdate = rowTime(model, "StructureModifiedTime")
		info.EstimatedSize = int64(rowInt(model, "EstimatedSize"))
	}

	var refreshes refreshList
	endpoint := d.session.connector.groupURL(d.session.groupID, "datasets", d.item.ID, "refreshes") + "?$top=1"
	if err := d.session.connector.http.DoJSON(ctx, http.MethodGet, endpoint, d.session.token, nil, &refreshes); err != nil {
		return tabular.DatabaseInfo{}, errors.NewQueryExecutionFailedError("refresh history", err)
	}
	if len(refreshes.Value) > 0 {
		info.LastProcessed = parseTime(refreshes.Value[0].EndTime)
	}

	return info, nil
}

func (d *dataset) Tables(ctx context.Context) ([]tabular.Table, error) {
	rows, err := d.session.query(ctx, d.item.ID, daxTables)
	if err != nil {
		return nil, err
	}
	out := make([]tabular.Table, 0, len(rows))
	for _, row := range rows {
		out = append(out, &remoteTable{
			dataset: d,
			id:      rowInt(row, "ID"),
			name:    rowString(row, "Name"),
		})
	}
	return out, nil
}

// SaveChanges cannot persist anything: the REST API offers no model
// mutation. Pending changes are reported as a commit failure.
func (d *dataset) SaveChanges(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.pending) == 0 {
		return nil
	}

	names := make([]string, len(d.pending))
	for i, c := range d.pending {
		names[i] = fmt.Sprintf("%s.%s=%s", c.table.name, c.name, c.dataType)
	}
	return errors.NewModelCommitFailedError(d.item.Name,
		fmt.Errorf("the REST connector is read-only; %d pending change(s): %s", len(names), strings.Join(names, ", ")))
}

func (d *dataset) markPending(c *column) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, p := range d.pending {
		if p == c {
			return
		}
	}
	d.pending = append(d.pending, c)
}

type remoteTable struct {
	dataset *dataset
	id      int
	name    string
}

func (t *remoteTable) Name() string { return t.name }

func (t *remoteTable) Columns(ctx context.Context) ([]tabular.Column, error) {
	rows, err := t.dataset.session.query(ctx, t.dataset.item.ID, fmt.Sprintf(daxColumns, t.id))
	if err != nil {
		return nil, err
	}
	out := make([]tabular.Column, 0, len(rows))
	for _, row := range rows {
		if rowInt(row, "Type") == columnTypeRowNumber {
			continue
		}
		name := rowString(row, "ExplicitName")
		if name == "" {
			name = rowString(row, "InferredName")
		}
		out = append(out, &column{
			table:    t,
			name:     name,
			dataType: tabular.DataType(rowInt(row, "ExplicitDataType")),
		})
	}
	return out, nil
}

func (t *remoteTable) Partitions(ctx context.Context) ([]tabular.Partition, error) {
	rows, err := t.dataset.session.query(ctx, t.dataset.item.ID, fmt.Sprintf(daxPartitions, t.id))
	if err != nil {
		return nil, err
	}
	out := make([]tabular.Partition, 0, len(rows))
	for _, row := range rows {
		out = append(out, &partition{
			name:       rowString(row, "Name"),
			sourceType: tabular.PartitionSourceType(rowInt(row, "Type")),
			expression: rowString(row, "QueryDefinition"),
		})
	}
	return out, nil
}

type column struct {
	table    *remoteTable
	name     string
	dataType tabular.DataType
}

func (c *column) Name() string               { return c.name }
func (c *column) DataType() tabular.DataType { return c.dataType }

func (c *column) SetDataType(dt tabular.DataType) {
	c.dataType = dt
	c.table.dataset.markPending(c)
}

type partition struct {
	name       string
	sourceType tabular.PartitionSourceType
	expression string
}

func (p *partition) Name() string                            { return p.name }
func (p *partition) SourceType() tabular.PartitionSourceType { return p.sourceType }
func (p *partition) Expression() string                      { return p.expression }

// executeQueries keys its rows as "[Column]" or "Table[Column]".
func rowValue(row map[string]any, name string) (any, bool) {
	if v, ok := row["["+name+"]"]; ok {
		return v, true
	}
	if v, ok := row[name]; ok {
		return v, true
	}
	suffix := "[" + name + "]"
	for k, v := range row {
		if strings.HasSuffix(k, suffix) {
			return v, true
		}
	}
	return nil, false
}

func rowString(row map[string]any, name string) string {
	v, ok := rowValue(row, name)
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func rowInt(row map[string]any, name string) int {
	v, ok := rowValue(row, name)
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case int64:
		return int(n)
	}
	return 0
}

func rowTime(row map[string]any, name string) time.Time {
	return parseTime(rowString(row, name))
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
