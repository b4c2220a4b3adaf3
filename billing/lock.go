package billing

type LockState string

const (
	Unlocked   LockState = "Unlocked"
	SoftLocked LockState = "SoftLocked"
	HardLocked LockState = "HardLocked"
)

// RegistrationFacts is what the lock needs to know about a pathology
// registration referencing the receipt.
type RegistrationFacts struct {
	EditAllowed bool
}

// EvaluateLock derives the lock state. A generated report always wins over
// the registration's edit-allowed flag.
func EvaluateLock(reportExists bool, registration *RegistrationFacts) LockState {
	if reportExists {
		return HardLocked
	}
	if registration != nil && !registration.EditAllowed {
		return SoftLocked
	}
	return Unlocked
}

// CheckEditable returns nil only for Unlocked.
func (s LockState) CheckEditable() error {
	switch s {
	case HardLocked:
		return ErrHardLocked
	case SoftLocked:
		return ErrSoftLocked
	default:
		return nil
	}
}
