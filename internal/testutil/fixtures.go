package testutil

import (
	"fmt"

	"github.com/Sternrassler/correction-sender/pkg/payload"
	"github.com/Sternrassler/correction-sender/pkg/record"
)

// CorrectionColumns is the header of a well-formed corrections sheet.
var CorrectionColumns = []string{
	record.ColumnPublicID,
	payload.ColOrganizationInn,
	payload.ColTaxationSystem,
	payload.ColCorrectionReceiptType,
	payload.ColCorrectionDate,
	payload.ColCorrectionNumber,
	payload.ColAmounts,
	payload.ColLabel,
	payload.ColPrice,
	payload.ColQuantity,
	payload.ColAmount,
	payload.ColCorrectionType,
	payload.ColPaymentPlace,
	payload.ColPaymentAddress,
}

// CorrectionRow returns the cell values of a renderable correction for publicID.
// n distinguishes rows of the same account.
func CorrectionRow(publicID string, n int) []string {
	return []string{
		publicID,
		"7707083893",
		"0",
		"1",
		"2025-10-01",
		fmt.Sprintf("CR-%04d", n),
		"100,00",
		fmt.Sprintf("Item %d", n),
		"100.00",
		"1",
		"100.00",
		"0",
		"https://shop.example",
		"Moscow, Tverskaya 1",
	}
}

// CorrectionRecord returns a renderable correction record for publicID.
func CorrectionRecord(publicID string, n int) record.Record {
	return record.New(CorrectionColumns, CorrectionRow(publicID, n))
}

// CorrectionRecords returns count records cycling through publicIDs.
func CorrectionRecords(count int, publicIDs ...string) []record.Record {
	if len(publicIDs) == 0 {
		publicIDs = []string{"pk_test"}
	}
	records := make([]record.Record, 0, count)
	for i := 0; i < count; i++ {
		records = append(records, CorrectionRecord(publicIDs[i%len(publicIDs)], i))
	}
	return records
}
