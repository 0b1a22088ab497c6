// Package payload renders a correction record into the JSON body expected by
// the receipt correction endpoint.
package payload

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Sternrassler/correction-sender/pkg/record"
)

var (
	// ErrMissingField is returned when a required column is absent or blank.
	ErrMissingField = errors.New("missing required field")

	// ErrInvalidField is returned when a column cannot be parsed as its type.
	ErrInvalidField = errors.New("invalid field value")
)

// Source column names in the corrections sheet.
const (
	ColOrganizationInn       = "OrganizationInn"
	ColTaxationSystem        = "TaxationSystem"
	ColCorrectionReceiptType = "CorrectionReceiptType"
	ColCorrectionDate        = "CorrectionDate"
	ColCorrectionNumber      = "CorrectionNumber"
	ColAmounts               = "Amounts"
	ColLabel                 = "Label"
	ColPrice                 = "Price"
	ColQuantity              = "Quantity"
	ColAmount                = "Amount"
	ColCorrectionType        = "CorrectionType"
	ColPaymentPlace          = "PaymentPlace"
	ColPaymentAddress        = "PaymentAddress"
)

// Request is the top-level body of a correction receipt request.
type Request struct {
	CorrectionReceiptData CorrectionReceiptData `json:"correctionReceiptData"`
}

// CorrectionReceiptData describes one correction receipt.
type CorrectionReceiptData struct {
	OrganizationInn       string          `json:"organizationInn"`
	TaxationSystem        int             `json:"taxationSystem"`
	CorrectionReceiptType int             `json:"correctionReceiptType"`
	CauseCorrection       CauseCorrection `json:"CauseCorrection"`
	Amounts               Amounts         `json:"amounts"`
	Items                 []Item          `json:"items"`
}

// CauseCorrection references the document justifying the correction.
type CauseCorrection struct {
	CorrectionDate   string `json:"correctionDate"`
	CorrectionNumber string `json:"correctionNumber"`
}

// Amounts holds payment totals by type.
type Amounts struct {
	Electronic float64 `json:"electronic"`
}

// Item is a single receipt line.
type Item struct {
	Label          string `json:"label"`
	Price          string `json:"price"`
	Quantity       string `json:"quantity"`
	Amount         string `json:"amount"`
	CorrectionType int    `json:"correctionType"`
	PaymentPlace   string `json:"paymentPlace"`
	PaymentAddress string `json:"paymentAddress"`
}

// Build maps a record onto the request structure.
func Build(rec record.Record) (*Request, error) {
	taxation, err := requiredInt(rec, ColTaxationSystem)
	if err != nil {
		return nil, err
	}
	receiptType, err := requiredInt(rec, ColCorrectionReceiptType)
	if err != nil {
		return nil, err
	}
	correctionType, err := requiredInt(rec, ColCorrectionType)
	if err != nil {
		return nil, err
	}

	return &Request{
		CorrectionReceiptData: CorrectionReceiptData{
			OrganizationInn:       rec.Get(ColOrganizationInn),
			TaxationSystem:        taxation,
			CorrectionReceiptType: receiptType,
			CauseCorrection: CauseCorrection{
				CorrectionDate:   rec.Get(ColCorrectionDate),
				CorrectionNumber: rec.Get(ColCorrectionNumber),
			},
			Amounts: Amounts{
				Electronic: parseAmount(rec.Get(ColAmounts)),
			},
			Items: []Item{{
				Label:          rec.Get(ColLabel),
				Price:          rec.Get(ColPrice),
				Quantity:       rec.Get(ColQuantity),
				Amount:         rec.Get(ColAmount),
				CorrectionType: correctionType,
				PaymentPlace:   rec.Get(ColPaymentPlace),
				PaymentAddress: rec.Get(ColPaymentAddress),
			}},
		},
	}, nil
}

// Render builds the JSON body for a record. It has no side effects.
func Render(rec record.Record) (string, error) {
	req, err := Build(rec)
	if err != nil {
		return "", err
	}
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal correction request: %w", err)
	}
	return string(body), nil
}

// requiredInt parses an integer column. Spreadsheet numerics such as "1.0"
// are accepted and truncated.
func requiredInt(rec record.Record, col string) (int, error) {
	raw := strings.TrimSpace(rec.Get(col))
	if raw == "" {
		return 0, fmt.Errorf("%w: %s", ErrMissingField, col)
	}
	if n, err := strconv.Atoi(raw); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", ErrInvalidField, col, raw)
	}
	return int(f), nil
}

// parseAmount parses a money value, accepting a comma decimal separator.
// Blank or unparseable values yield 0.
func parseAmount(raw string) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
	if err != nil {
		return 0
	}
	return f
}
