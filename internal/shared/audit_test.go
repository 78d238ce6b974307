package shared

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

type execStub struct {
	args []any
	err  error
}

func (e *execStub) Exec(_ context.Context, _ string, args ...any) (pgconn.CommandTag, error) {
	e.args = args
	return pgconn.NewCommandTag("INSERT 0 1"), e.err
}

func TestAuditLoggerRecord(t *testing.T) {
	stub := &execStub{}
	logger := NewAuditLogger(stub)
	err := logger.Record(context.Background(), AuditLog{
		TenantID: 3,
		Action:   "journal.posted",
		Entity:   "journal_entry",
		EntityID: "17",
		Meta:     map[string]any{"lines": 2},
	})
	require.NoError(t, err)
	require.Len(t, stub.args, 7)
	require.Equal(t, int64(3), stub.args[0])
	require.Nil(t, stub.args[1])
	require.JSONEq(t, `{"lines":2}`, string(stub.args[5].([]byte)))
	require.Nil(t, stub.args[6])

	at := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, logger.Record(context.Background(), AuditLog{TenantID: 3, ActorID: 8, Action: "a", Entity: "e", EntityID: "1", At: at}))
	require.Equal(t, int64(8), stub.args[1])
	require.Equal(t, at, stub.args[6])
}

func TestAuditLoggerRejectsIncompleteLogs(t *testing.T) {
	stub := &execStub{}
	logger := NewAuditLogger(stub)
	require.Error(t, logger.Record(context.Background(), AuditLog{Action: "a", Entity: "e", EntityID: "1"}))
	require.Error(t, logger.Record(context.Background(), AuditLog{TenantID: 1, Entity: "e", EntityID: "1"}))
	require.Error(t, logger.Record(context.Background(), AuditLog{TenantID: 1, Action: "a"}))
	require.Nil(t, stub.args)

	var nilLogger *AuditLogger
	require.Error(t, nilLogger.Record(context.Background(), AuditLog{TenantID: 1, Action: "a", Entity: "e", EntityID: "1"}))

	stub.err = errors.New("boom")
	err := logger.Record(context.Background(), AuditLog{TenantID: 1, Action: "a", Entity: "e", EntityID: "1"})
	require.ErrorContains(t, err, "boom")
}
