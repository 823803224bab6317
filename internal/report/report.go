// Package report renders admin exports as CSV or XLSX.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/hongminglow/invest-be/internal/models"
)

// Format is an export file format.
type Format string

const (
	CSV  Format = "csv"
	XLSX Format = "xlsx"
)

const timeLayout = "2006-01-02 15:04:05"

// ParseFormat resolves a requested format; empty means CSV.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", CSV:
		return CSV, nil
	case XLSX:
		return XLSX, nil
	}
	return "", fmt.Errorf("unsupported report format %q", s)
}

// ContentType is the MIME type served for f.
func (f Format) ContentType() string {
	if f == XLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// Filename builds the download name, e.g. deposits_report_20250101.csv.
func Filename(name string, f Format, now time.Time) string {
	return fmt.Sprintf("%s_report_%s.%s", name, now.Format("20060102"), f)
}

// Table is a rendered export: a header row and string cells.
type Table struct {
	Name   string
	Header []string
	Rows   [][]string
}

// Write encodes t in format f.
func Write(w io.Writer, t Table, f Format) error {
	switch f {
	case XLSX:
		return writeXLSX(w, t)
	case CSV, "":
		return writeCSV(w, t)
	}
	return fmt.Errorf("unsupported report format %q", f)
}

func writeCSV(w io.Writer, t Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return err
	}
	return cw.Error()
}

func writeXLSX(w io.Writer, t Table) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := t.Name
	if sheet == "" {
		sheet = "Report"
	}
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	rows := append([][]string{t.Header}, t.Rows...)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	if len(t.Header) > 0 {
		last, err := excelize.ColumnNumberToName(len(t.Header))
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, "A", last, 18); err != nil {
			return err
		}
	}
	return f.Write(w)
}

// Users lists accounts.
func Users(users []models.User) Table {
	t := Table{Name: "users", Header: []string{"full_name", "email", "phone", "created_at"}}
	for _, u := range users {
		t.Rows = append(t.Rows, []string{u.FullName, u.Email, u.Phone, u.CreatedAt.Format(timeLayout)})
	}
	return t
}

// Deposits lists deposits with their owners.
func Deposits(deposits []models.DepositView) Table {
	t := Table{Name: "deposits", Header: []string{
		"user_full_name", "user_email", "user_id", "amount", "duration_days", "interest_rate",
		"expected_return", "status", "submitted_at", "decided_at", "product_id", "note",
	}}
	for _, d := range deposits {
		t.Rows = append(t.Rows, []string{
			d.User.FullName,
			d.User.Email,
			strconv.FormatInt(d.UserID, 10),
			d.Amount.StringFixed(2),
			strconv.Itoa(d.DurationDays),
			d.InterestRate.String(),
			d.ExpectedReturn.StringFixed(2),
			string(d.Status),
			formatTime(d.SubmittedAt),
			formatTime(d.DecidedAt),
			deref(d.ProductID),
			d.Note,
		})
	}
	return t
}

// Withdrawals lists withdrawals with their owners.
func Withdrawals(withdrawals []models.WithdrawalView) Table {
	t := Table{Name: "withdrawals", Header: []string{
		"user_full_name", "user_email", "user_id", "amount", "account_info",
		"status", "requested_at", "decided_at", "note",
	}}
	for _, w := range withdrawals {
		requested := w.RequestedAt
		t.Rows = append(t.Rows, []string{
			w.User.FullName,
			w.User.Email,
			strconv.FormatInt(w.UserID, 10),
			w.Amount.StringFixed(2),
			w.AccountInfo,
			string(w.Status),
			formatTime(&requested),
			formatTime(w.DecidedAt),
			w.Note,
		})
	}
	return t
}

// Transactions merges deposits and withdrawals into one list, newest first.
func Transactions(deposits []models.DepositView, withdrawals []models.WithdrawalView) Table {
	type row struct {
		at    *time.Time
		cells []string
	}
	rows := make([]row, 0, len(deposits)+len(withdrawals))
	for _, d := range deposits {
		rows = append(rows, row{at: d.SubmittedAt, cells: []string{
			d.User.FullName, d.User.Email, models.EntryDeposit, d.Amount.StringFixed(2),
			string(d.Status), formatTime(d.SubmittedAt), d.Note,
		}})
	}
	for _, w := range withdrawals {
		requested := w.RequestedAt
		rows = append(rows, row{at: &requested, cells: []string{
			w.User.FullName, w.User.Email, models.EntryWithdrawal, w.Amount.StringFixed(2),
			string(w.Status), formatTime(&requested), w.Note,
		}})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].at, rows[j].at
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		}
		return a.After(*b)
	})

	t := Table{Name: "transactions", Header: []string{"User Name", "Email", "Type", "Amount", "Status", "Date", "Note"}}
	for _, r := range rows {
		t.Rows = append(t.Rows, r.cells)
	}
	return t
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
