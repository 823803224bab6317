package report

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/hongminglow/invest-be/internal/models"
)

var (
	t0 = time.Date(2025, 2, 3, 4, 5, 6, 0, time.UTC)
	t1 = t0.Add(48 * time.Hour)
)

func sampleDeposits() []models.DepositView {
	product := "PRD-1"
	return []models.DepositView{{
		Deposit: models.Deposit{
			ID: 1, UserID: 7, Amount: decimal.NewFromInt(1000), DurationDays: 30,
			InterestRate: decimal.RequireFromString("8.0"), ExpectedReturn: decimal.RequireFromString("6.58"),
			Status: models.StatusApproved, SubmittedAt: &t0, DecidedAt: &t1, ProductID: &product, Note: "first",
		},
		User: models.Owner{FullName: "Ada", Email: "ada@example.com"},
	}}
}

func sampleWithdrawals() []models.WithdrawalView {
	return []models.WithdrawalView{{
		Withdrawal: models.Withdrawal{
			ID: 2, UserID: 7, Amount: decimal.NewFromInt(500), AccountInfo: "UPI-1",
			Status: models.StatusPending, RequestedAt: t1,
		},
		User: models.UnknownOwner,
	}}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, CSV, f)
	f, err = ParseFormat("XLSX")
	require.NoError(t, err)
	assert.Equal(t, XLSX, f)
	_, err = ParseFormat("pdf")
	assert.Error(t, err)
	assert.Equal(t, "deposits_report_20250203.xlsx", Filename("deposits", XLSX, t0))
}

func TestDepositsCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, Deposits(sampleDeposits()), CSV))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "user_full_name", records[0][0])
	assert.Equal(t, []string{
		"Ada", "ada@example.com", "7", "1000.00", "30", "8", "6.58", "approved",
		"2025-02-03 04:05:06", "2025-02-05 04:05:06", "PRD-1", "first",
	}, records[1])
}

func TestTransactionsNewestFirst(t *testing.T) {
	table := Transactions(sampleDeposits(), sampleWithdrawals())
	assert.Equal(t, []string{"User Name", "Email", "Type", "Amount", "Status", "Date", "Note"}, table.Header)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, models.EntryWithdrawal, table.Rows[0][2])
	assert.Equal(t, "Unknown", table.Rows[0][0])
	assert.Equal(t, models.EntryDeposit, table.Rows[1][2])
}

func TestWithdrawalsXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, Withdrawals(sampleWithdrawals()), XLSX))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("withdrawals")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "account_info", rows[0][4])
	assert.Equal(t, "UPI-1", rows[1][4])
	assert.Equal(t, "500.00", rows[1][3])
}

func TestUsersTable(t *testing.T) {
	table := Users([]models.User{{FullName: "Ada", Email: "ada@example.com", Phone: "5551234", CreatedAt: t0}})
	assert.Equal(t, []string{"full_name", "email", "phone", "created_at"}, table.Header)
	assert.Equal(t, []string{"Ada", "ada@example.com", "5551234", "2025-02-03 04:05:06"}, table.Rows[0])
}
