package ar

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/journals"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/journals/journalstest"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/settings"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
)

const (
	tenant     = int64(3)
	cash       = int64(10)
	bank       = int64(11)
	receivable = int64(12)
	taxPayable = int64(20)
	income     = int64(40)
	product    = int64(900)
)

type memState struct {
	invoices map[int64]Invoice
	payments map[int64]Payment
	nextID   int64
}

func (s memState) clone() memState {
	out := memState{invoices: map[int64]Invoice{}, payments: map[int64]Payment{}, nextID: s.nextID}
	for k, v := range s.invoices {
		out.invoices[k] = v
	}
	for k, v := range s.payments {
		out.payments[k] = v
	}
	return out
}

type memRepo struct {
	ledger *journalstest.Memory
	state  memState
}

func newMemRepo(ledger *journalstest.Memory) *memRepo {
	return &memRepo{ledger: ledger, state: memState{invoices: map[int64]Invoice{}, payments: map[int64]Payment{}}}
}

func (r *memRepo) GetInvoice(_ context.Context, tenantID, id int64) (Invoice, error) {
	return (&memTx{st: &r.state}).LockInvoice(context.Background(), tenantID, id)
}

func (r *memRepo) ListPayments(_ context.Context, tenantID, invoiceID int64) ([]Payment, error) {
	var out []Payment
	for _, p := range r.state.payments {
		if p.TenantID == tenantID && p.InvoiceID == invoiceID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memRepo) ListOutstanding(ctx context.Context, tenantID int64) ([]OpenInvoice, error) {
	var out []OpenInvoice
	for _, inv := range r.state.invoices {
		if inv.TenantID != tenantID || inv.Status == StatusPaid || inv.Status == StatusVoid || inv.Status == StatusDraft {
			continue
		}
		paid, _ := (&memTx{st: &r.state}).PaidTotal(ctx, tenantID, inv.ID)
		out = append(out, OpenInvoice{ID: inv.ID, Number: inv.Number, DueDate: inv.DueDate, Balance: inv.Total.Sub(paid)})
	}
	return out, nil
}

func (r *memRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	work := r.state.clone()
	err := r.ledger.WithTx(ctx, func(ctx context.Context, jtx journals.TxRepository) error {
		return fn(ctx, &memTx{st: &work, journal: jtx})
	})
	if err != nil {
		return err
	}
	r.state = work
	return nil
}

type memTx struct {
	st      *memState
	journal journals.TxRepository
}

func (t *memTx) Journal() journals.TxRepository { return t.journal }

func (t *memTx) LockInvoice(_ context.Context, tenantID, id int64) (Invoice, error) {
	inv, ok := t.st.invoices[id]
	if !ok || inv.TenantID != tenantID {
		return Invoice{}, shared.NotFound("invoice", id)
	}
	return inv, nil
}

func (t *memTx) InsertInvoice(_ context.Context, inv Invoice) (Invoice, error) {
	t.st.nextID++
	inv.ID = t.st.nextID
	t.st.invoices[inv.ID] = inv
	return inv, nil
}

func (t *memTx) UpdateInvoice(ctx context.Context, inv Invoice) (Invoice, error) {
	if _, err := t.LockInvoice(ctx, inv.TenantID, inv.ID); err != nil {
		return Invoice{}, err
	}
	t.st.invoices[inv.ID] = inv
	return inv, nil
}

func (t *memTx) SetStatus(ctx context.Context, tenantID, id int64, status InvoiceStatus) error {
	inv, err := t.LockInvoice(ctx, tenantID, id)
	if err != nil {
		return err
	}
	inv.Status = status
	t.st.invoices[id] = inv
	return nil
}

func (t *memTx) DeleteInvoice(ctx context.Context, tenantID, id int64) error {
	if _, err := t.LockInvoice(ctx, tenantID, id); err != nil {
		return err
	}
	delete(t.st.invoices, id)
	return nil
}

func (t *memTx) PaidTotal(_ context.Context, tenantID, invoiceID int64) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, p := range t.st.payments {
		if p.TenantID == tenantID && p.InvoiceID == invoiceID {
			total = total.Add(p.Amount)
		}
	}
	return total, nil
}

func (t *memTx) InsertPayment(_ context.Context, p Payment) (Payment, error) {
	t.st.nextID++
	p.ID = t.st.nextID
	t.st.payments[p.ID] = p
	return p, nil
}

func (t *memTx) PaymentIDs(_ context.Context, tenantID, invoiceID int64) ([]int64, error) {
	var ids []int64
	for _, p := range t.st.payments {
		if p.TenantID == tenantID && p.InvoiceID == invoiceID {
			ids = append(ids, p.ID)
		}
	}
	return ids, nil
}

func (t *memTx) DeletePayments(_ context.Context, tenantID, invoiceID int64) error {
	for id, p := range t.st.payments {
		if p.TenantID == tenantID && p.InvoiceID == invoiceID {
			delete(t.st.payments, id)
		}
	}
	return nil
}

type settingsStub struct{ cfg settings.Settings }

func (s *settingsStub) Get(context.Context, int64) (settings.Settings, error) { return s.cfg, nil }

type productStub struct{}

func (productStub) TaxFlags(_ context.Context, _ int64, ids []int64) (map[int64][settings.TaxSlots]bool, error) {
	out := map[int64][settings.TaxSlots]bool{}
	for _, id := range ids {
		if id == product {
			out[id] = [settings.TaxSlots]bool{true}
		}
	}
	return out, nil
}

type fixture struct {
	svc      *Service
	repo     *memRepo
	ledger   *journalstest.Memory
	settings *settingsStub
	recorder *journalstest.Recorder
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ledger := journalstest.New()
	ledger.AddAccounts(tenant, cash, bank, receivable, taxPayable, income)
	cfg := settings.Empty(tenant)
	cfg.DefaultCash = settings.Account(cash)
	cfg.DefaultReceivable = settings.Account(receivable)
	cfg.DefaultSalesIncome = settings.Account(income)
	cfg.TaxRates[0] = decimal.RequireFromString("0.10")
	cfg.TaxPayable[0] = settings.Account(taxPayable)
	st := &settingsStub{cfg: cfg}
	rec := &journalstest.Recorder{}
	repo := newMemRepo(ledger)
	svc := NewService(repo, st, productStub{}, journals.NewService(ledger, nil, rec, nil))
	return fixture{svc: svc, repo: repo, ledger: ledger, settings: st, recorder: rec}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func day(d int) time.Time { return time.Date(2024, 5, d, 0, 0, 0, 0, time.UTC) }

func invoiceInput(price string) InvoiceInput {
	p := product
	return InvoiceInput{
		ClientID:  1,
		Number:    "INV-001",
		IssueDate: day(1),
		DueDate:   day(31),
		Items:     []ItemInput{{ProductID: &p, Description: "consulting", Quantity: dec("1"), UnitPrice: dec(price)}},
	}
}

func lineAmount(e journals.JournalEntry, account int64, side accounts.Side) decimal.Decimal {
	total := decimal.Zero
	for _, l := range e.Lines {
		if l.AccountID == account && l.Side == side {
			total = total.Add(l.Amount)
		}
	}
	return total
}

func TestCreateInvoicePostsSale(t *testing.T) {
	f := newFixture(t)
	inv, err := f.svc.CreateInvoice(context.Background(), tenant, invoiceInput("100"))
	require.NoError(t, err)
	require.Equal(t, StatusDraft, inv.Status)
	require.True(t, inv.Total.Equal(dec("110")))
	require.True(t, inv.Taxes[0].Equal(dec("10")))

	entry, ok := f.ledger.BySource(tenant, journals.SourceRef{Kind: journals.SourceInvoice, ID: inv.ID})
	require.True(t, ok)
	require.True(t, lineAmount(entry, receivable, accounts.SideDebit).Equal(dec("110")))
	require.True(t, lineAmount(entry, income, accounts.SideCredit).Equal(dec("100")))
	require.True(t, lineAmount(entry, taxPayable, accounts.SideCredit).Equal(dec("10")))
	require.Len(t, f.recorder.Changes, 1)
}

func TestUpdateInvoiceSupersedesEntry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv, err := f.svc.CreateInvoice(ctx, tenant, invoiceInput("100"))
	require.NoError(t, err)

	_, err = f.svc.UpdateInvoice(ctx, tenant, inv.ID, invoiceInput("200"))
	require.NoError(t, err)
	entries := f.ledger.Entries(tenant)
	require.Len(t, entries, 1)
	require.True(t, lineAmount(entries[0], receivable, accounts.SideDebit).Equal(dec("220")))
}

func TestZeroInvoiceCarriesNoEntry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv, err := f.svc.CreateInvoice(ctx, tenant, invoiceInput("100"))
	require.NoError(t, err)

	_, err = f.svc.UpdateInvoice(ctx, tenant, inv.ID, invoiceInput("0"))
	require.NoError(t, err)
	require.Empty(t, f.ledger.Entries(tenant))
}

func TestMissingDefaultRollsBackInvoice(t *testing.T) {
	f := newFixture(t)
	f.settings.cfg.DefaultSalesIncome = nil
	_, err := f.svc.CreateInvoice(context.Background(), tenant, invoiceInput("100"))
	require.ErrorIs(t, err, shared.ErrMissingDefaultAccount)
	require.Empty(t, f.repo.state.invoices)
	require.Empty(t, f.ledger.Entries(tenant))
}

func TestRecordPaymentDerivesStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv, err := f.svc.CreateInvoice(ctx, tenant, invoiceInput("100"))
	require.NoError(t, err)

	p, err := f.svc.RecordPayment(ctx, tenant, PaymentInput{InvoiceID: inv.ID, Amount: dec("60"), PaymentDate: day(5)})
	require.NoError(t, err)
	got, err := f.svc.GetInvoice(ctx, tenant, inv.ID)
	require.NoError(t, err)
	require.Equal(t, StatusPartiallyPaid, got.Status)

	entry, ok := f.ledger.BySource(tenant, journals.SourceRef{Kind: journals.SourcePayment, ID: p.ID})
	require.True(t, ok)
	require.True(t, lineAmount(entry, cash, accounts.SideDebit).Equal(dec("60")))
	require.True(t, lineAmount(entry, receivable, accounts.SideCredit).Equal(dec("60")))

	_, err = f.svc.RecordPayment(ctx, tenant, PaymentInput{InvoiceID: inv.ID, Amount: dec("50.005"), PaymentDate: day(6), DepositAccount: settings.Account(bank)})
	require.NoError(t, err)
	got, err = f.svc.GetInvoice(ctx, tenant, inv.ID)
	require.NoError(t, err)
	require.Equal(t, StatusPaid, got.Status)
}

func TestRecordPaymentRejectsOverpayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv, err := f.svc.CreateInvoice(ctx, tenant, invoiceInput("100"))
	require.NoError(t, err)

	_, err = f.svc.RecordPayment(ctx, tenant, PaymentInput{InvoiceID: inv.ID, Amount: dec("110.02"), PaymentDate: day(5)})
	require.ErrorIs(t, err, shared.ErrPaymentExceedsBalance)
	require.Empty(t, f.repo.state.payments)

	_, err = f.svc.RecordPayment(ctx, tenant, PaymentInput{InvoiceID: inv.ID, Amount: dec("0"), PaymentDate: day(5)})
	require.ErrorIs(t, err, shared.ErrInvalidAmount)
}

func TestDeleteInvoiceCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv, err := f.svc.CreateInvoice(ctx, tenant, invoiceInput("100"))
	require.NoError(t, err)
	_, err = f.svc.RecordPayment(ctx, tenant, PaymentInput{InvoiceID: inv.ID, Amount: dec("40"), PaymentDate: day(5)})
	require.NoError(t, err)
	require.Len(t, f.ledger.Entries(tenant), 2)

	require.NoError(t, f.svc.DeleteInvoice(ctx, tenant, inv.ID))
	require.Empty(t, f.ledger.Entries(tenant))
	require.Empty(t, f.repo.state.payments)
	_, err = f.svc.GetInvoice(ctx, tenant, inv.ID)
	require.ErrorIs(t, err, shared.ErrDocumentNotFound)
}

func TestUpdateStatusRejectsDerived(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv, err := f.svc.CreateInvoice(ctx, tenant, invoiceInput("100"))
	require.NoError(t, err)
	require.ErrorIs(t, f.svc.UpdateStatus(ctx, tenant, inv.ID, StatusPaid), shared.ErrValidation)
	require.NoError(t, f.svc.UpdateStatus(ctx, tenant, inv.ID, StatusSent))
}

func TestOtherTenantCannotSeeInvoice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv, err := f.svc.CreateInvoice(ctx, tenant, invoiceInput("100"))
	require.NoError(t, err)
	_, err = f.svc.GetInvoice(ctx, tenant+1, inv.ID)
	require.True(t, errors.Is(err, shared.ErrDocumentNotFound))
	_, err = f.svc.GetInvoice(ctx, 0, inv.ID)
	require.ErrorIs(t, err, shared.ErrUnauthorized)
}

func TestCalculateAging(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	in := invoiceInput("100")
	in.Status = StatusSent
	_, err := f.svc.CreateInvoice(ctx, tenant, in)
	require.NoError(t, err)

	aging, err := f.svc.CalculateAging(ctx, tenant, day(31).AddDate(0, 0, 45))
	require.NoError(t, err)
	require.True(t, aging.Bucket60.Equal(dec("110")))
	require.True(t, aging.Current.IsZero())
}

func TestStatusChangesInvalidateReports(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv, err := f.svc.CreateInvoice(ctx, tenant, invoiceInput("100"))
	require.NoError(t, err)
	_, err = f.svc.RecordPayment(ctx, tenant, PaymentInput{InvoiceID: inv.ID, Amount: dec("110"), PaymentDate: day(5)})
	require.NoError(t, err)
	require.Len(t, f.recorder.Changes, 2)

	require.NoError(t, f.svc.UpdateStatus(ctx, tenant, inv.ID, StatusVoid))
	require.Len(t, f.recorder.Changes, 3)
	last := f.recorder.Changes[2]
	require.Equal(t, journals.ChangeDocument, last.Kind)
	require.Equal(t, tenant, last.TenantID)
	require.Equal(t, &journals.SourceRef{Kind: journals.SourceInvoice, ID: inv.ID}, last.Source)

	require.Error(t, f.svc.UpdateStatus(ctx, tenant, inv.ID+100, StatusVoid))
	require.Len(t, f.recorder.Changes, 3, "failed writes announce nothing")
}

func TestZeroInvoiceStillAnnouncesChange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv, err := f.svc.CreateInvoice(ctx, tenant, invoiceInput("0"))
	require.NoError(t, err)
	require.Empty(t, f.ledger.Entries(tenant))
	require.Len(t, f.recorder.Changes, 1)
	require.Equal(t, journals.ChangeDocument, f.recorder.Changes[0].Kind)

	require.NoError(t, f.svc.DeleteInvoice(ctx, tenant, inv.ID))
	require.Len(t, f.recorder.Changes, 2)
	require.Equal(t, journals.ChangeDocument, f.recorder.Changes[1].Kind)
}
