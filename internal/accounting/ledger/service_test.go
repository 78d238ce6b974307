package ledger

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
)

type memLine struct {
	tenant  int64
	entryID int64
	lineID  int64
	date    time.Time
	account int64
	side    accounts.Side
	amount  decimal.Decimal
}

type memoryLedger struct {
	accounts map[int64]accounts.Account
	lines    []memLine
}

func (m *memoryLedger) Snapshot(ctx context.Context, fn func(context.Context, Reader) error) error {
	return fn(ctx, m)
}

func (m *memoryLedger) Account(_ context.Context, tenantID, id int64) (accounts.Account, error) {
	a, ok := m.accounts[id]
	if !ok || a.TenantID != tenantID {
		return accounts.Account{}, shared.ErrAccountNotFound
	}
	return a, nil
}

func (m *memoryLedger) Activity(_ context.Context, tenantID int64, from, to time.Time) ([]AccountActivity, error) {
	byAccount := map[int64]*AccountActivity{}
	var order []int64
	for _, l := range m.lines {
		if l.tenant != tenantID || l.date.After(to) || (!from.IsZero() && l.date.Before(from)) {
			continue
		}
		act, ok := byAccount[l.account]
		if !ok {
			act = &AccountActivity{Account: m.accounts[l.account], Debits: decimal.Zero, Credits: decimal.Zero}
			byAccount[l.account] = act
			order = append(order, l.account)
		}
		if l.side == accounts.SideDebit {
			act.Debits = act.Debits.Add(l.amount)
		} else {
			act.Credits = act.Credits.Add(l.amount)
		}
	}
	out := make([]AccountActivity, 0, len(order))
	for _, id := range order {
		out = append(out, *byAccount[id])
	}
	return out, nil
}

func (m *memoryLedger) AccountTotals(_ context.Context, tenantID, accountID int64, before time.Time) (decimal.Decimal, decimal.Decimal, error) {
	debits, credits := decimal.Zero, decimal.Zero
	for _, l := range m.lines {
		if l.tenant != tenantID || l.account != accountID || !l.date.Before(before) {
			continue
		}
		if l.side == accounts.SideDebit {
			debits = debits.Add(l.amount)
		} else {
			credits = credits.Add(l.amount)
		}
	}
	return debits, credits, nil
}

func (m *memoryLedger) Postings(_ context.Context, tenantID, accountID int64, from, to time.Time) ([]Posting, error) {
	var out []Posting
	for _, l := range m.lines {
		if l.tenant != tenantID || l.account != accountID || l.date.Before(from) || l.date.After(to) {
			continue
		}
		out = append(out, Posting{EntryID: l.entryID, LineID: l.lineID, Date: l.date, Side: l.side, Amount: l.amount})
	}
	return out, nil
}

const tenant = int64(3)

var (
	cashAcc  = accounts.Account{ID: 1, TenantID: tenant, Number: "1000", Name: "Cash", Type: accounts.AccountTypeAsset}
	loanAcc  = accounts.Account{ID: 2, TenantID: tenant, Number: "2000", Name: "Loan", Type: accounts.AccountTypeLiability}
	salesAcc = accounts.Account{ID: 3, TenantID: tenant, Number: "4000", Name: "Sales", Type: accounts.AccountTypeIncome}
	rentAcc  = accounts.Account{ID: 4, TenantID: tenant, Number: "6000", Name: "Rent", Type: accounts.AccountTypeExpense}
	otherAcc = accounts.Account{ID: 9, TenantID: 99, Number: "1000", Name: "Cash", Type: accounts.AccountTypeAsset}
)

func day(n int) time.Time { return time.Date(2024, 1, n, 0, 0, 0, 0, time.UTC) }

func newLedger() *memoryLedger {
	return &memoryLedger{accounts: map[int64]accounts.Account{
		cashAcc.ID: cashAcc, loanAcc.ID: loanAcc, salesAcc.ID: salesAcc, rentAcc.ID: rentAcc, otherAcc.ID: otherAcc,
	}}
}

func (m *memoryLedger) post(date time.Time, debit, credit int64, amount string) {
	entryID := int64(len(m.lines)/2 + 1)
	v := decimal.RequireFromString(amount)
	m.lines = append(m.lines,
		memLine{tenant: m.accounts[debit].TenantID, entryID: entryID, lineID: int64(len(m.lines) + 1), date: date, account: debit, side: accounts.SideDebit, amount: v},
		memLine{tenant: m.accounts[credit].TenantID, entryID: entryID, lineID: int64(len(m.lines) + 2), date: date, account: credit, side: accounts.SideCredit, amount: v},
	)
}

func TestTrialBalanceAssetExample(t *testing.T) {
	l := newLedger()
	l.post(day(2), cashAcc.ID, salesAcc.ID, "500")
	l.post(day(3), rentAcc.ID, cashAcc.ID, "200")

	rows, err := NewService(l).TrialBalance(context.Background(), tenant, day(31))
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, "1000", rows[0].Account.Number)
	require.Equal(t, "300", rows[0].DebitBalance.String())
	require.True(t, rows[0].CreditBalance.IsZero())

	debit, credit := Totals(rows)
	require.True(t, debit.Equal(credit))
}

func TestTrialBalanceAsOfAndNegativeBalances(t *testing.T) {
	l := newLedger()
	l.post(day(2), cashAcc.ID, loanAcc.ID, "100")
	l.post(day(5), loanAcc.ID, cashAcc.ID, "150")
	l.post(day(5), cashAcc.ID, salesAcc.ID, "80")

	svc := NewService(l)
	rows, err := svc.TrialBalance(context.Background(), tenant, day(4))
	require.NoError(t, err)
	require.Len(t, rows, 2, "entries after the as-of date are ignored")

	rows, err = svc.TrialBalance(context.Background(), tenant, day(5))
	require.NoError(t, err)
	for _, r := range rows {
		require.NotEqual(t, loanAcc.ID, r.Account.ID, "debit balance on a liability is not shown")
	}
}

func TestTrialBalanceNeverShowsBothSides(t *testing.T) {
	l := newLedger()
	rng := rand.New(rand.NewSource(42))
	ids := []int64{cashAcc.ID, loanAcc.ID, salesAcc.ID, rentAcc.ID}
	for i := 0; i < 200; i++ {
		debit := ids[rng.Intn(len(ids))]
		credit := ids[rng.Intn(len(ids))]
		amount := decimal.New(int64(rng.Intn(100000)+1), -2)
		l.post(day(rng.Intn(28)+1), debit, credit, amount.String())
	}
	rows, err := NewService(l).TrialBalance(context.Background(), tenant, day(28))
	require.NoError(t, err)
	for _, r := range rows {
		require.False(t, r.DebitBalance.IsPositive() && r.CreditBalance.IsPositive(), r.Account.Number)
		require.False(t, r.DebitBalance.IsZero() && r.CreditBalance.IsZero(), r.Account.Number)
	}
}

func TestGeneralLedgerRunningBalance(t *testing.T) {
	l := newLedger()
	l.post(day(1), cashAcc.ID, salesAcc.ID, "100")
	l.post(day(10), cashAcc.ID, salesAcc.ID, "40")
	l.post(day(10), rentAcc.ID, cashAcc.ID, "25")
	l.post(day(20), cashAcc.ID, loanAcc.ID, "10")

	gl, err := NewService(l).GeneralLedger(context.Background(), tenant, cashAcc.ID, day(5), day(15))
	require.NoError(t, err)
	require.Equal(t, "100", gl.OpeningBalance.String())
	require.Len(t, gl.Transactions, 2)
	require.Equal(t, "140", gl.Transactions[0].RunningBalance.String())
	require.Equal(t, "115", gl.Transactions[1].RunningBalance.String())
	require.Equal(t, "115", gl.ClosingBalance.String())
	require.Equal(t, day(5), gl.Start)

	income, err := NewService(l).GeneralLedger(context.Background(), tenant, salesAcc.ID, day(1), day(31))
	require.NoError(t, err)
	require.Equal(t, "140", income.ClosingBalance.String(), "credit normal accounts grow with credits")
}

func TestGeneralLedgerComposesAcrossPeriods(t *testing.T) {
	l := newLedger()
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 60; i++ {
		amount := decimal.New(int64(rng.Intn(50000)+1), -2)
		if rng.Intn(2) == 0 {
			l.post(day(rng.Intn(31)+1), cashAcc.ID, salesAcc.ID, amount.String())
		} else {
			l.post(day(rng.Intn(31)+1), rentAcc.ID, cashAcc.ID, amount.String())
		}
	}
	svc := NewService(l)
	ctx := context.Background()
	for _, split := range []int{3, 10, 17, 30} {
		first, err := svc.GeneralLedger(ctx, tenant, cashAcc.ID, day(1), day(split))
		require.NoError(t, err)
		second, err := svc.GeneralLedger(ctx, tenant, cashAcc.ID, day(split+1), day(31))
		require.NoError(t, err)
		require.True(t, first.ClosingBalance.Equal(second.OpeningBalance), "split %d", split)
	}
}

func TestGeneralLedgerTenantScope(t *testing.T) {
	svc := NewService(newLedger())
	_, err := svc.GeneralLedger(context.Background(), tenant, otherAcc.ID, day(1), day(2))
	require.ErrorIs(t, err, shared.ErrAccountNotFound)

	_, err = svc.GeneralLedger(context.Background(), 0, cashAcc.ID, day(1), day(2))
	require.ErrorIs(t, err, shared.ErrUnauthorized)

	_, err = svc.GeneralLedger(context.Background(), tenant, cashAcc.ID, day(2), day(1))
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestGeneralLedgerOrdersSameDayEntries(t *testing.T) {
	postings := []Posting{
		{EntryID: 5, LineID: 9, Date: day(3), Description: "deposit", Side: accounts.SideDebit, Amount: decimal.RequireFromString("100")},
		{EntryID: 3, LineID: 4, Date: day(3), Description: "fee", Side: accounts.SideCredit, Amount: decimal.RequireFromString("30")},
		{EntryID: 5, LineID: 2, Date: day(3), Description: "deposit fee", Side: accounts.SideCredit, Amount: decimal.RequireFromString("5")},
		{EntryID: 7, LineID: 1, Date: day(2), Description: "opening", Side: accounts.SideDebit, Amount: decimal.RequireFromString("1")},
	}

	gl := BuildGeneralLedger(cashAcc, decimal.Zero, postings)
	require.Len(t, gl.Transactions, 4)

	var ids []int64
	var running []string
	for _, tx := range gl.Transactions {
		ids = append(ids, tx.EntryID)
		running = append(running, tx.RunningBalance.String())
	}
	require.Equal(t, []int64{7, 3, 5, 5}, ids)
	require.Equal(t, []string{"1", "-29", "-34", "66"}, running)
	require.Equal(t, "deposit fee", gl.Transactions[2].Description, "lines within one entry follow line id")
	require.Equal(t, "66", gl.ClosingBalance.String())
	require.Equal(t, int64(5), postings[0].EntryID, "input slice is left untouched")
}
