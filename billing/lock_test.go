package billing

import (
	"errors"
	"testing"

	"PathLab/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateLock(t *testing.T) {
	tests := []struct {
		name         string
		reportExists bool
		registration *RegistrationFacts
		want         LockState
	}{
		{name: "nothing", want: Unlocked},
		{name: "registration locked", registration: &RegistrationFacts{EditAllowed: false}, want: SoftLocked},
		{name: "registration edit allowed", registration: &RegistrationFacts{EditAllowed: true}, want: Unlocked},
		{name: "report only", reportExists: true, want: HardLocked},
		{name: "report beats edit allowed", reportExists: true, registration: &RegistrationFacts{EditAllowed: true}, want: HardLocked},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EvaluateLock(tt.reportExists, tt.registration))
		})
	}
}

func TestCheckEditable(t *testing.T) {
	assert.NoError(t, Unlocked.CheckEditable())
	assert.ErrorIs(t, SoftLocked.CheckEditable(), ErrSoftLocked)
	assert.ErrorIs(t, HardLocked.CheckEditable(), ErrHardLocked)
	assert.Equal(t, apperrors.KindLocked, apperrors.KindOf(HardLocked.CheckEditable()))
}

func TestEditSession(t *testing.T) {
	committed := []Line{
		line("CBC", "Haematology", "300", 1, "0"),
		line("Lipid Profile", "Biochemistry", "800", 1, "0"),
	}

	t.Run("session-added line can always be removed", func(t *testing.T) {
		state := Unlocked
		s := NewEditSession(committed, func() (LockState, error) { return state, nil })

		require.NoError(t, s.Add(line("TSH", "Hormones", "450", 1, "0")))
		state = SoftLocked

		require.NoError(t, s.Remove("t.s.h"))
		assert.Len(t, s.Lines(), 2)
		assert.False(t, s.Changed())

		_, ok, err := s.Commit()
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("committed line cannot be removed when soft locked", func(t *testing.T) {
		s := NewEditSession(committed, func() (LockState, error) { return SoftLocked, nil })
		err := s.Remove("CBC")
		assert.ErrorIs(t, err, ErrSoftLocked)
		assert.Len(t, s.Lines(), 2)
	})

	t.Run("add rejected when hard locked", func(t *testing.T) {
		s := NewEditSession(committed, func() (LockState, error) { return HardLocked, nil })
		err := s.Add(line("TSH", "Hormones", "450", 1, "0"))
		assert.ErrorIs(t, err, ErrHardLocked)
	})

	t.Run("duplicate add rejected", func(t *testing.T) {
		s := NewEditSession(committed, func() (LockState, error) { return Unlocked, nil })
		assert.ErrorIs(t, s.Add(line("lipid  profile", "Biochemistry", "800", 1, "0")), ErrDuplicateTest)
	})

	t.Run("unknown test", func(t *testing.T) {
		s := NewEditSession(committed, nil)
		assert.ErrorIs(t, s.Remove("Urine R/E"), ErrTestNotInBooking)
	})

	t.Run("commit re-checks lock", func(t *testing.T) {
		state := Unlocked
		s := NewEditSession(committed, func() (LockState, error) { return state, nil })
		require.NoError(t, s.Remove("CBC"))
		state = HardLocked

		_, ok, err := s.Commit()
		assert.False(t, ok)
		assert.ErrorIs(t, err, ErrHardLocked)
	})

	t.Run("evaluator failure propagates", func(t *testing.T) {
		boom := errors.New("redis down")
		s := NewEditSession(committed, func() (LockState, error) { return Unlocked, boom })
		assert.ErrorIs(t, s.Remove("CBC"), boom)
	})

	t.Run("commit returns new lines", func(t *testing.T) {
		s := NewEditSession(committed, func() (LockState, error) { return Unlocked, nil })
		require.NoError(t, s.Remove("CBC"))
		require.NoError(t, s.Add(line("TSH", "Hormones", "450", 1, "0")))

		lines, ok, err := s.Commit()
		require.NoError(t, err)
		assert.True(t, ok)
		require.Len(t, lines, 2)
		assert.Equal(t, "Lipid Profile", lines[0].Name)
		assert.Equal(t, "TSH", lines[1].Name)
	})
}
