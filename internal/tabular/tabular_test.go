package tabular_test

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"powerbi-tom-skill/internal/common/errors"
	"powerbi-tom-skill/internal/tabular"
	"powerbi-tom-skill/internal/tabular/tabulartest"
)

func TestConnectionString(t *testing.T) {
	assert.Equal(t, "powerbi://api.powerbi.com/v1.0/myorg/Finance", tabular.WorkspaceURI("Finance"))
	assert.Equal(t, "DataSource=powerbi://api.powerbi.com/v1.0/myorg/Finance;", tabular.ConnectionString("Finance"))

	ws, err := tabular.ParseConnectionString(tabular.ConnectionString("Sales Ops"))
	require.NoError(t, err)
	assert.Equal(t, "Sales Ops", ws)

	_, err = tabular.ParseConnectionString("Provider=MSOLAP;")
	assert.Error(t, err)
	_, err = tabular.ParseConnectionString("DataSource=localhost;")
	assert.Error(t, err)
	_, err = tabular.ParseConnectionString("DataSource=powerbi://api.powerbi.com/v1.0/myorg/;")
	assert.Error(t, err)
}

func TestConnectionString_RoundTrip(t *testing.T) {
	tests := []struct {
		workspace string
		want      string
	}{
		{"Finance", "DataSource=powerbi://api.powerbi.com/v1.0/myorg/Finance;"},
		{"Sales;EMEA", `DataSource="powerbi://api.powerbi.com/v1.0/myorg/Sales;EMEA";`},
		{`Q"4 "Plan"`, `DataSource="powerbi://api.powerbi.com/v1.0/myorg/Q""4 ""Plan""";`},
		{"O'Brien", `DataSource="powerbi://api.powerbi.com/v1.0/myorg/O'Brien";`},
		{"Trailing ", `DataSource="powerbi://api.powerbi.com/v1.0/myorg/Trailing ";`},
	}

	for _, tt := range tests {
		t.Run(tt.workspace, func(t *testing.T) {
			cs := tabular.ConnectionString(tt.workspace)
			assert.Equal(t, tt.want, cs)

			ws, err := tabular.ParseConnectionString(cs)
			require.NoError(t, err)
			assert.Equal(t, tt.workspace, ws)
		})
	}
}

func TestParseConnectionString_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{"unterminated quote", `DataSource="powerbi://api.powerbi.com/v1.0/myorg/Sales;`, "unterminated"},
		{"text after quote", `DataSource="powerbi://api.powerbi.com/v1.0/myorg/Sales"EMEA;`, "after closing quote"},
		{"segment without value", "Provider;DataSource=powerbi://api.powerbi.com/v1.0/myorg/Sales;", "has no '='"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tabular.ParseConnectionString(tt.input)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestWithServer_SeparatorInWorkspaceName(t *testing.T) {
	fake := tabulartest.New()
	fake.AddDatabase("Sales", tabulartest.NewDatabase("Domestic"))
	fake.AddDatabase("Sales;EMEA", tabulartest.NewDatabase("Europe"))

	var names []string
	err := tabular.WithServer(context.Background(), fake, "Sales;EMEA", func(server tabular.Server) error {
		dbs, err := server.Databases(context.Background())
		if err != nil {
			return err
		}
		for _, db := range dbs {
			names = append(names, db.Name())
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Europe"}, names)
}

func TestDataTypeNames(t *testing.T) {
	assert.Equal(t, "Decimal", tabular.DataTypeDecimal.String())
	assert.Equal(t, "Double", tabular.DataTypeDouble.String())
	assert.Equal(t, 10, int(tabular.DataTypeDecimal))
	assert.Equal(t, "Unknown", tabular.DataType(99).String())
	assert.Equal(t, "M", tabular.PartitionSourceM.String())
	assert.Equal(t, 4, int(tabular.PartitionSourceM))

	dt, ok := tabular.ParseDataType(" int64 ")
	assert.True(t, ok)
	assert.Equal(t, tabular.DataTypeInt64, dt)
	_, ok = tabular.ParseDataType("money")
	assert.False(t, ok)
}

func newFake() *tabulartest.Connector {
	fake := tabulartest.New()
	fake.AddDatabase("Finance", tabulartest.NewDatabase("Sales",
		tabulartest.NewTable("Orders",
			tabulartest.NewColumn("Amount", tabular.DataTypeDouble),
		),
	))
	return fake
}

func TestFindHelpers_NotFound(t *testing.T) {
	fake := newFake()
	ctx := context.Background()

	err := tabular.WithServer(ctx, fake, "Finance", func(server tabular.Server) error {
		_, err := tabular.FindDatabase(ctx, server, "Missing", "Finance")
		assert.Equal(t, errors.ErrCodeDatasetNotFound, errors.CodeOf(err))

		db, err := tabular.FindDatabase(ctx, server, "Sales", "Finance")
		require.NoError(t, err)

		_, err = tabular.FindTable(ctx, db, "orders")
		assert.Equal(t, errors.ErrCodeTableNotFound, errors.CodeOf(err), "lookups are case-sensitive")

		table, err := tabular.FindTable(ctx, db, "Orders")
		require.NoError(t, err)

		_, err = tabular.FindColumn(ctx, table, "Qty")
		assert.Equal(t, errors.ErrCodeColumnNotFound, errors.CodeOf(err))
		assert.True(t, errors.IsNotFound(err))

		col, err := tabular.FindColumn(ctx, table, "Amount")
		require.NoError(t, err)
		assert.Equal(t, tabular.DataTypeDouble, col.DataType())
		return nil
	})
	require.NoError(t, err)
}

func TestFindDatabase_EnumerationFailure(t *testing.T) {
	fake := newFake()
	fake.DatabasesErr = stderrors.New("xmla timeout")
	ctx := context.Background()

	err := tabular.WithServer(ctx, fake, "Finance", func(server tabular.Server) error {
		_, err := tabular.FindDatabase(ctx, server, "Sales", "Finance")
		return err
	})
	assert.Equal(t, errors.ErrCodeQueryExecutionFailed, errors.CodeOf(err))
	assert.Equal(t, 1, fake.Closes())
}

func TestWithServer_ClosesOnEveryPath(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		fake := newFake()
		require.NoError(t, tabular.WithServer(ctx, fake, "Finance", func(tabular.Server) error { return nil }))
		assert.Equal(t, 1, fake.Connects())
		assert.Equal(t, 1, fake.Closes())
	})

	t.Run("error", func(t *testing.T) {
		fake := newFake()
		boom := stderrors.New("boom")
		err := tabular.WithServer(ctx, fake, "Finance", func(tabular.Server) error { return boom })
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 1, fake.Closes())
	})

	t.Run("panic", func(t *testing.T) {
		fake := newFake()
		assert.PanicsWithValue(t, "kaboom", func() {
			_ = tabular.WithServer(ctx, fake, "Finance", func(tabular.Server) error { panic("kaboom") })
		})
		assert.Equal(t, 1, fake.Closes())
	})

	t.Run("close error surfaces only after success", func(t *testing.T) {
		fake := newFake()
		fake.CloseErr = stderrors.New("socket reset")

		err := tabular.WithServer(ctx, fake, "Finance", func(tabular.Server) error { return nil })
		assert.Equal(t, errors.ErrCodeWorkspaceConnectionFailed, errors.CodeOf(err))

		boom := stderrors.New("boom")
		err = tabular.WithServer(ctx, fake, "Finance", func(tabular.Server) error { return boom })
		assert.ErrorIs(t, err, boom)
	})
}

func TestWithServer_ConnectFailure(t *testing.T) {
	fake := newFake()
	fake.ConnectErr = stderrors.New("unauthorized")
	called := false

	err := tabular.WithServer(context.Background(), fake, "Finance", func(tabular.Server) error {
		called = true
		return nil
	})

	require.Error(t, err)
	assert.False(t, called)
	assert.Equal(t, errors.ErrCodeWorkspaceConnectionFailed, errors.CodeOf(err))
	assert.Equal(t, 0, fake.Closes())

	err = tabular.WithServer(context.Background(), newFake(), "Unknown", func(tabular.Server) error { return nil })
	assert.Equal(t, errors.ErrCodeWorkspaceConnectionFailed, errors.CodeOf(err))
}

func TestWithServer_CredentialErrorsPassThrough(t *testing.T) {
	fake := newFake()
	fake.ConnectErr = errors.NewCredentialsUnavailableError(stderrors.New("secret missing"))

	err := tabular.WithServer(context.Background(), fake, "Finance", func(tabular.Server) error { return nil })
	assert.Equal(t, errors.ErrCodeCredentialsUnavailable, errors.CodeOf(err))
}

type recorder struct {
	mu        sync.Mutex
	opened    []string
	durations []string
}

func (r *recorder) RecordConnection(ctx context.Context, workspace, status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.opened = append(r.opened, workspace+":"+status)
}

func (r *recorder) RecordConnectionDuration(ctx context.Context, workspace string, d time.Duration, status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.durations = append(r.durations, workspace+":"+status)
}

func TestScope_RecordsConnections(t *testing.T) {
	rec := &recorder{}
	scope := tabular.NewScope(newFake(), rec)

	require.NoError(t, scope.WithServer(context.Background(), "Finance", func(tabular.Server) error { return nil }))
	_ = scope.WithServer(context.Background(), "Finance", func(tabular.Server) error { return stderrors.New("x") })
	_ = scope.WithServer(context.Background(), "Nowhere", func(tabular.Server) error { return nil })

	assert.Equal(t, []string{"Finance:success", "Finance:success", "Nowhere:error"}, rec.opened)
	assert.Equal(t, []string{"Finance:success", "Finance:error"}, rec.durations)
}

func TestFake_SaveChangesCommitsPending(t *testing.T) {
	fake := tabulartest.New()
	col := tabulartest.NewColumn("Amount", tabular.DataTypeDouble)
	db := fake.AddDatabase("Finance", tabulartest.NewDatabase("Sales", tabulartest.NewTable("Orders", col)))

	col.SetDataType(tabular.DataTypeDecimal)
	assert.True(t, col.Pending())

	db.CommitErr = stderrors.New("conflict")
	assert.Error(t, db.SaveChanges(context.Background()))
	assert.True(t, col.Pending())
	assert.Empty(t, fake.Committed())

	db.CommitErr = nil
	require.NoError(t, db.SaveChanges(context.Background()))
	assert.False(t, col.Pending())
	assert.Equal(t, []tabulartest.Commit{{Database: "Sales", Table: "Orders", Column: "Amount", Type: tabular.DataTypeDecimal}}, fake.Committed())
	assert.Equal(t, 2, fake.Saves())
}
