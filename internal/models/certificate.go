package models

import (
	"fmt"
	"time"
)

// Certificate records a passing result that was issued an official document
// number. Verification is public, so no internal ids leak through JSON.
type Certificate struct {
	ID             uint      `gorm:"primaryKey" json:"-"`
	DocumentNumber string    `gorm:"size:16;uniqueIndex" json:"documentNumber"`
	SessionID      string    `gorm:"size:128;index" json:"sessionId"`
	HolderName     string    `gorm:"size:300" json:"holderName"`
	Position       string    `gorm:"size:200" json:"position,omitempty"`
	TestType       string    `gorm:"size:64" json:"testType"`
	Score          int       `json:"score"`
	IssuedAt       time.Time `json:"issuedAt"`
}

// DocumentCounter hands out sequential document numbers per calendar month.
// Rows are locked FOR UPDATE while a number is taken.
type DocumentCounter struct {
	ID        uint `gorm:"primaryKey"`
	Year      int  `gorm:"uniqueIndex:idx_doc_counter_period"`
	Month     int  `gorm:"uniqueIndex:idx_doc_counter_period"`
	LastValue int
}

// FormatDocumentNumber renders numbers like "26/08-0042" (YY/MM-NNNN).
func FormatDocumentNumber(year, month, value int) string {
	return fmt.Sprintf("%02d/%02d-%04d", year%100, month, value)
}
