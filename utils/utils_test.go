package utils

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"PathLab/apperrors"
	"PathLab/cache"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

const testKey = "0123456789abcdef0123456789abcdef"

func TestTokenRoundTrip(t *testing.T) {
	m, err := NewTokenMaker(testKey)
	require.NoError(t, err)

	access, refresh, err := m.GenerateTokens("42", "LabAdmin", "lab-1")
	require.NoError(t, err)
	assert.NotEqual(t, access, refresh)

	claims, err := m.ValidateToken(access)
	require.NoError(t, err)
	assert.Equal(t, "42", claims.UserID)
	assert.Equal(t, "lab-1", claims.LabID)
	id, err := claims.UserIDInt()
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	_, err = m.ValidateToken(access, "SuperAdmin", "LabAdmin")
	assert.NoError(t, err)

	_, err = m.ValidateToken(access, "SuperAdmin")
	assert.Equal(t, apperrors.KindForbidden, apperrors.KindOf(err))
}

func TestTokenExpiredAndTampered(t *testing.T) {
	m, err := NewTokenMaker(testKey)
	require.NoError(t, err)

	token, err := m.GenerateAccessToken("1", "Admin", "")
	require.NoError(t, err)

	m.now = func() time.Time { return time.Now().Add(AccessTokenExpiry + time.Minute) }
	_, err = m.ValidateToken(token)
	assert.Equal(t, apperrors.KindUnauthorized, apperrors.KindOf(err))

	other, err := NewTokenMaker("abcdef0123456789abcdef0123456789")
	require.NoError(t, err)
	_, err = other.ValidateToken(token)
	assert.Equal(t, apperrors.KindUnauthorized, apperrors.KindOf(err))
}

func TestNewTokenMakerKeyLength(t *testing.T) {
	_, err := NewTokenMaker("short")
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("S3cure!pass")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "S3cure!pass"))
	assert.False(t, CheckPassword(hash, "wrong"))
}

func TestValidatePassword(t *testing.T) {
	assert.ErrorIs(t, ValidatePassword("Ab1!"), ErrPasswordTooShort)
	assert.ErrorIs(t, ValidatePassword("abcdefgh1!"), ErrPasswordNotComplex)
	assert.NoError(t, ValidatePassword("Abcdefg1!"))
}

func TestValidateUserData(t *testing.T) {
	assert.NoError(t, ValidateUserData("frontdesk", "desk@lab.test", "Abcdefg1!"))
	assert.Error(t, ValidateUserData("ab", "desk@lab.test", "Abcdefg1!"))
	assert.Error(t, ValidateUserData("frontdesk", "not-an-email", "Abcdefg1!"))
	assert.Error(t, ValidatePasswordReset("12345", "Abcdefg1!"))
	assert.NoError(t, ValidatePasswordReset("123456", "Abcdefg1!"))
}

func TestResetCodes(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	c, err := cache.NewCache(client, zap.NewNop())
	require.NoError(t, err)
	codes := NewResetCodes(c)
	ctx := context.Background()

	code, err := GenerateResetCode()
	require.NoError(t, err)
	assert.Len(t, code, 6)

	require.NoError(t, codes.Set(ctx, "a@lab.test", code))
	got, err := codes.Get(ctx, "a@lab.test")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, code, *got)

	mr.FastForward(16 * time.Minute)
	got, err = codes.Get(ctx, "a@lab.test")
	require.NoError(t, err)
	assert.Nil(t, got)
}

type recordingSender struct {
	mu   sync.Mutex
	sent []*gomail.Message
	err  error
	done chan struct{}
}

func (s *recordingSender) DialAndSend(m ...*gomail.Message) error {
	s.mu.Lock()
	s.sent = append(s.sent, m...)
	s.mu.Unlock()
	if s.done != nil {
		close(s.done)
	}
	return s.err
}

func TestMailerSendResetCode(t *testing.T) {
	sender := &recordingSender{}
	m := NewMailerWithSender(sender, "noreply@lab.test", zap.NewNop())

	require.NoError(t, m.SendResetCode("a@lab.test", "123456"))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, []string{"a@lab.test"}, sender.sent[0].GetHeader("To"))
	assert.Equal(t, []string{"Password Reset Code"}, sender.sent[0].GetHeader("Subject"))
}

func TestMailerAsyncFailureDoesNotBlock(t *testing.T) {
	sender := &recordingSender{err: errors.New("smtp down"), done: make(chan struct{})}
	m := NewMailerWithSender(sender, "noreply@lab.test", zap.NewNop())

	m.SendInviteAsync("new@lab.test", "newuser", "City Lab")
	select {
	case <-sender.done:
	case <-time.After(2 * time.Second):
		t.Fatal("invite was never sent")
	}
}
