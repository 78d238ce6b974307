package journals_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/journals"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/journals/journalstest"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
	internalShared "github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

const (
	tenant  = int64(7)
	cash    = int64(101)
	sales   = int64(401)
	foreign = int64(999)
)

type auditStub struct {
	logs []internalShared.AuditLog
}

func (a *auditStub) Record(_ context.Context, log internalShared.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

func newService(t *testing.T) (*journals.Service, *journalstest.Memory, *auditStub, *journalstest.Recorder) {
	t.Helper()
	mem := journalstest.New()
	mem.AddAccounts(tenant, cash, sales)
	mem.AddAccounts(8, foreign)
	audit := &auditStub{}
	rec := &journalstest.Recorder{}
	svc := journals.NewService(mem, audit, rec, nil)
	svc.WithNow(func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) })
	return svc, mem, audit, rec
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func sale(debit, credit string) journals.PostingInput {
	return journals.PostingInput{
		TenantID:    tenant,
		Date:        time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC),
		Description: "cash sale",
		Lines: []journals.PostingLineInput{
			journals.Debit(cash, d(debit)),
			journals.Credit(sales, d(credit)),
		},
	}
}

func TestPostBalancedEntry(t *testing.T) {
	svc, mem, audit, rec := newService(t)
	entry, err := svc.Post(context.Background(), sale("100.00", "100.00"))
	require.NoError(t, err)
	require.NotZero(t, entry.ID)
	require.Len(t, entry.Lines, 2)

	debit, credit := entry.Totals()
	require.True(t, debit.Equal(credit))
	require.Len(t, mem.Entries(tenant), 1)
	require.Len(t, audit.logs, 1)
	require.Equal(t, "journal.post", audit.logs[0].Action)
	require.Len(t, rec.Changes, 1)
	require.Equal(t, journals.ChangePosted, rec.Changes[0].Kind)
}

func TestPostRejectsUnbalanced(t *testing.T) {
	svc, mem, _, rec := newService(t)
	_, err := svc.Post(context.Background(), sale("100.00", "99.99"))
	require.ErrorIs(t, err, shared.ErrUnbalanced)

	var coreErr *shared.Error
	require.True(t, errors.As(err, &coreErr))
	require.Equal(t, "100", coreErr.Debit.String())
	require.Equal(t, "99.99", coreErr.Credit.String())
	require.Empty(t, mem.Entries(tenant))
	require.Empty(t, rec.Changes)
}

func TestValidateOrder(t *testing.T) {
	in := sale("100", "90")
	in.TenantID = 0
	in.Lines = in.Lines[:1]
	require.ErrorIs(t, in.Validate(), shared.ErrUnauthorized)

	in.TenantID = tenant
	require.ErrorIs(t, in.Validate(), shared.ErrInsufficientLines)

	in = sale("0.004", "0.004")
	require.ErrorIs(t, in.Validate(), shared.ErrInvalidAmount, "sub-cent amounts round to zero")

	in = sale("-5", "-5")
	require.ErrorIs(t, in.Validate(), shared.ErrInvalidAmount)

	in = sale("10.005", "10.01")
	require.NoError(t, in.Validate(), "both sides round to 10.01")
}

func TestPostRejectsForeignAccount(t *testing.T) {
	svc, mem, _, _ := newService(t)
	in := sale("50", "50")
	in.Lines[1].AccountID = foreign
	_, err := svc.Post(context.Background(), in)
	require.ErrorIs(t, err, shared.ErrAccountNotFound)
	require.Empty(t, mem.Entries(tenant))
}

func TestReplaceBySourceIsIdempotent(t *testing.T) {
	svc, mem, _, rec := newService(t)
	ctx := context.Background()
	ref := journals.SourceRef{Kind: journals.SourceInvoice, ID: 42}

	first, err := svc.Replace(ctx, journals.BySource(ref), sale("110", "110"))
	require.NoError(t, err)
	second, err := svc.Replace(ctx, journals.BySource(ref), sale("110", "110"))
	require.NoError(t, err)

	entries := mem.Entries(tenant)
	require.Len(t, entries, 1)
	require.Equal(t, second.ID, entries[0].ID)
	require.NotEqual(t, first.ID, second.ID)
	require.Equal(t, ref, *entries[0].Source)
	require.Len(t, entries[0].Lines, 2)

	require.Equal(t, journals.ChangePosted, rec.Changes[0].Kind)
	require.Equal(t, journals.ChangeReplaced, rec.Changes[1].Kind)
	require.Equal(t, first.ID, rec.Changes[1].PreviousEntryID)
}

func TestReplaceByMissingEntry(t *testing.T) {
	svc, _, _, _ := newService(t)
	_, err := svc.Replace(context.Background(), journals.ByEntry(404), sale("1", "1"))
	require.ErrorIs(t, err, shared.ErrDocumentNotFound)
}

func TestReplaceIsAtomic(t *testing.T) {
	svc, mem, _, _ := newService(t)
	ctx := context.Background()
	original, err := svc.Post(ctx, sale("20", "20"))
	require.NoError(t, err)

	mem.FailInsert = errors.New("disk full")
	_, err = svc.Replace(ctx, journals.ByEntry(original.ID), sale("30", "30"))
	require.Error(t, err)

	got, err := svc.Get(ctx, tenant, original.ID)
	require.NoError(t, err)
	require.Equal(t, "20", got.Lines[0].Amount.String())
}

func TestReplaceValidatesBeforeDeleting(t *testing.T) {
	svc, mem, _, _ := newService(t)
	ctx := context.Background()
	original, err := svc.Post(ctx, sale("20", "20"))
	require.NoError(t, err)

	_, err = svc.Replace(ctx, journals.ByEntry(original.ID), sale("20", "19"))
	require.ErrorIs(t, err, shared.ErrUnbalanced)
	require.Len(t, mem.Entries(tenant), 1)
}

func TestDeleteAndTenantIsolation(t *testing.T) {
	svc, _, audit, _ := newService(t)
	ctx := context.Background()
	entry, err := svc.Post(ctx, sale("5", "5"))
	require.NoError(t, err)

	_, err = svc.Get(ctx, 8, entry.ID)
	require.ErrorIs(t, err, shared.ErrDocumentNotFound)
	require.ErrorIs(t, svc.Delete(ctx, 8, entry.ID), shared.ErrDocumentNotFound)
	require.ErrorIs(t, svc.Delete(ctx, 0, entry.ID), shared.ErrUnauthorized)

	require.NoError(t, svc.Delete(ctx, tenant, entry.ID))
	require.ErrorIs(t, svc.Delete(ctx, tenant, entry.ID), shared.ErrDocumentNotFound)
	require.Equal(t, "journal.delete", audit.logs[len(audit.logs)-1].Action)
}

func TestDeleteBySourceWithoutEntryIsNoop(t *testing.T) {
	svc, _, _, rec := newService(t)
	err := svc.DeleteBySource(context.Background(), tenant, journals.SourceRef{Kind: journals.SourceExpense, ID: 3})
	require.NoError(t, err)
	require.Empty(t, rec.Changes)
}

func TestCheckIntegrityFlagsDamagedEntries(t *testing.T) {
	svc, mem, _, _ := newService(t)
	ctx := context.Background()
	_, err := svc.Post(ctx, sale("10", "10"))
	require.NoError(t, err)

	// Rows written behind the engine's back.
	require.NoError(t, mem.WithTx(ctx, func(ctx context.Context, tx journals.TxRepository) error {
		if _, err := tx.InsertEntry(ctx, sale("10", "9")); err != nil {
			return err
		}
		single := sale("4", "4")
		single.Lines = single.Lines[:1]
		_, err := tx.InsertEntry(ctx, single)
		return err
	}))

	issues, err := svc.CheckIntegrity(ctx, tenant)
	require.NoError(t, err)
	require.Len(t, issues, 2)
	require.True(t, issues[0].Credit.Equal(d("9")))
	require.Equal(t, 1, issues[1].Lines)

	_, err = svc.CheckIntegrity(ctx, 0)
	require.ErrorIs(t, err, shared.ErrUnauthorized)
}

func TestDocumentChangedIsAuditedAndNotified(t *testing.T) {
	svc, _, audit, rec := newService(t)
	change := svc.DocumentChanged(tenant, journals.SourceRef{Kind: journals.SourceInvoice, ID: 12})
	svc.Committed(context.Background(), change)

	require.Len(t, rec.Changes, 1)
	require.Equal(t, journals.ChangeDocument, rec.Changes[0].Kind)
	require.Zero(t, rec.Changes[0].EntryID)
	require.Len(t, audit.logs, 1)
	require.Equal(t, "document.update", audit.logs[0].Action)
	require.Equal(t, "invoice", audit.logs[0].Entity)
	require.Equal(t, "12", audit.logs[0].EntityID)
}
