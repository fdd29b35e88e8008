package dto

import "github.com/fekuna/omnipos-ledger-service/internal/model"

type CreateItemInput struct {
	SKU     string
	NameEn  string
	NameAr  string
	IsStock *bool // defaults to true
}

type ItemPage struct {
	Page  int                     `json:"page"`
	Limit int                     `json:"limit"`
	Total int                     `json:"total"`
	Items []model.ItemWithBalance `json:"items"`
}
