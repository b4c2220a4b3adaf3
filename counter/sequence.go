package counter

import (
	"fmt"
	"strconv"
	"strings"

	"PathLab/apperrors"
)

// Sequence names a counter and how its values are displayed.
type Sequence struct {
	Name   string
	Prefix string
	Width  int
}

// Format renders n as Prefix followed by n zero-padded to Width digits.
func (s Sequence) Format(n int64) string {
	if s.Width <= 0 {
		return s.Prefix + strconv.FormatInt(n, 10)
	}
	return fmt.Sprintf("%s%0*d", s.Prefix, s.Width, n)
}

// Parse recovers the number from a formatted ID of this sequence.
func (s Sequence) Parse(id string) (int64, bool) {
	if !strings.HasPrefix(id, s.Prefix) {
		return 0, false
	}
	n, err := strconv.ParseInt(strings.TrimPrefix(id, s.Prefix), 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

const (
	KindPatient     = "patient"
	KindAppointment = "appointment"
	KindReceipt     = "receipt"
)

func PatientSequence(labID string, year int) Sequence {
	return Sequence{
		Name:   fmt.Sprintf("patientId_%s_%d", labID, year),
		Prefix: fmt.Sprintf("PAT%d", year),
		Width:  6,
	}
}

func AppointmentSequence(labID string, year int) Sequence {
	return Sequence{
		Name:   fmt.Sprintf("appointmentId_%s_%d", labID, year),
		Prefix: fmt.Sprintf("APT%d", year),
		Width:  6,
	}
}

// ReceiptSequence numbers receipts per lab as plain integers.
func ReceiptSequence(labID string) Sequence {
	return Sequence{Name: "receipt_" + labID}
}

// SequenceFor resolves a sequence kind as used by the admin CLI.
func SequenceFor(kind, labID string, year int) (Sequence, error) {
	if labID == "" {
		return Sequence{}, apperrors.Validation("lab is required")
	}
	switch kind {
	case KindPatient:
		return PatientSequence(labID, year), nil
	case KindAppointment:
		return AppointmentSequence(labID, year), nil
	case KindReceipt:
		return ReceiptSequence(labID), nil
	}
	return Sequence{}, apperrors.Validation("unknown sequence %q", kind)
}
