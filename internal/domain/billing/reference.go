package billing

import (
	"fmt"
	"time"
)

// Reference prefixes for billed documents
const (
	InvoiceReferencePrefix  = "INV"
	ScheduleReferencePrefix = "SCH"
)

// FormatInvoiceReference builds the reference of the n-th invoice issued on
// the given day, e.g. "INV-20260831-0003"
func FormatInvoiceReference(day time.Time, sequence int64) string {
	return fmt.Sprintf("%s-%s-%04d", InvoiceReferencePrefix, day.Format("20060102"), sequence)
}

// FormatScheduleReference builds the reference of the n-th payment schedule
// issued on the given day, e.g. "SCH-20260831-0001"
func FormatScheduleReference(day time.Time, sequence int64) string {
	return fmt.Sprintf("%s-%s-%04d", ScheduleReferencePrefix, day.Format("20060102"), sequence)
}
