package dto

import "github.com/shopspring/decimal"

type CreateAdminRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type SettingsRequest struct {
	InterestRate decimal.Decimal `json:"interest_rate"`
}
