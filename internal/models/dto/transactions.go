package dto

import (
	"github.com/shopspring/decimal"

	"github.com/hongminglow/invest-be/internal/accrual"
	"github.com/hongminglow/invest-be/internal/models"
)

type DepositRequest struct {
	Amount       decimal.Decimal `json:"amount"`
	DurationDays int             `json:"duration_days"`
}

type WithdrawalRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Note        string          `json:"note"`
	AccountInfo string          `json:"account_info"`
}

type DashboardResponse struct {
	Wallet      accrual.Summary       `json:"wallet"`
	Deposits    []models.Deposit      `json:"deposits"`
	Withdrawals []models.Withdrawal   `json:"withdrawals"`
	History     []models.HistoryEntry `json:"history"`
}
