package otp_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/jrsteele09/go-portal-session/internal/config"
	"github.com/jrsteele09/go-portal-session/otp"
	"github.com/jrsteele09/go-portal-session/recordserver"
	"github.com/jrsteele09/go-portal-session/records"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const target = "jane@example.com"

type testFixture struct {
	provider *otp.Provider
	sender   *otp.MemorySender
	now      time.Time
}

func (f *testFixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func setupTestFixture(t *testing.T, store otp.ChallengeStore) *testFixture {
	t.Helper()
	f := &testFixture{
		sender: otp.NewMemorySender(),
		now:    time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
	}
	p, err := otp.NewProvider(store, f.sender,
		otp.WithNowTime(func() time.Time { return f.now }),
		otp.WithExpiry(10*time.Minute),
		otp.WithMaxAttempts(3),
		otp.WithResendInterval(30*time.Second),
		otp.WithLogger(zerolog.Nop()),
	)
	require.NoError(t, err)
	f.provider = p
	return f
}

func (f *testFixture) lastCode(t *testing.T) string {
	t.Helper()
	msg, ok := f.sender.Last(target)
	require.True(t, ok)
	return msg.Code
}

func TestProvider_IssueAndVerify(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t, otp.NewMemoryChallengeStore())

	id, err := f.provider.Issue(ctx, target, "registration")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	code := f.lastCode(t)
	require.Regexp(t, regexp.MustCompile(`^\d{6}$`), code)

	gotTarget, purpose, err := f.provider.Lookup(ctx, id)
	require.NoError(t, err)
	require.Equal(t, target, gotTarget)
	require.Equal(t, "registration", purpose)

	ok, err := f.provider.Verify(ctx, id, code)
	require.NoError(t, err)
	require.True(t, ok)

	t.Run("a code is single use", func(t *testing.T) {
		_, err := f.provider.Verify(ctx, id, code)
		require.ErrorIs(t, err, otp.ErrChallengeNotFound)
	})
}

func TestProvider_WrongCode(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t, otp.NewMemoryChallengeStore())

	id, err := f.provider.Issue(ctx, target, "password-reset")
	require.NoError(t, err)
	code := f.lastCode(t)
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}

	for i := 0; i < 3; i++ {
		ok, err := f.provider.Verify(ctx, id, wrong)
		require.NoError(t, err)
		require.False(t, ok)
	}

	t.Run("attempts are capped", func(t *testing.T) {
		ok, err := f.provider.Verify(ctx, id, code)
		require.ErrorIs(t, err, otp.ErrTooManyAttempts)
		require.False(t, ok)
	})
}

func TestProvider_Expiry(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t, otp.NewMemoryChallengeStore())

	id, err := f.provider.Issue(ctx, target, "registration")
	require.NoError(t, err)
	code := f.lastCode(t)

	f.advance(10 * time.Minute)
	ok, err := f.provider.Verify(ctx, id, code)
	require.ErrorIs(t, err, otp.ErrExpired)
	require.False(t, ok)
}

func TestProvider_Resend(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t, otp.NewMemoryChallengeStore())

	id, err := f.provider.Issue(ctx, target, "registration")
	require.NoError(t, err)

	t.Run("throttled inside the interval", func(t *testing.T) {
		f.advance(10 * time.Second)
		require.ErrorIs(t, f.provider.Resend(ctx, id), otp.ErrThrottled)
		_, err := f.provider.Issue(ctx, target, "registration")
		require.ErrorIs(t, err, otp.ErrThrottled)
	})

	t.Run("new code after the interval", func(t *testing.T) {
		f.advance(30 * time.Second)
		require.NoError(t, f.provider.Resend(ctx, id))
		require.Equal(t, 2, f.sender.Count())

		ok, err := f.provider.Verify(ctx, id, f.lastCode(t))
		require.NoError(t, err)
		require.True(t, ok)
	})

	t.Run("unknown challenge", func(t *testing.T) {
		require.ErrorIs(t, f.provider.Resend(ctx, "missing"), otp.ErrChallengeNotFound)
	})
}

func TestProvider_Check(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t, otp.NewMemoryChallengeStore())

	id, err := f.provider.Issue(ctx, target, "password-reset")
	require.NoError(t, err)
	code := f.lastCode(t)

	for i := 0; i < 2; i++ {
		ok, err := f.provider.Check(ctx, id, code)
		require.NoError(t, err)
		require.True(t, ok)
	}

	t.Run("wrong codes still count", func(t *testing.T) {
		wrong := "000000"
		if code == wrong {
			wrong = "111111"
		}
		ok, err := f.provider.Check(ctx, id, wrong)
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("verify consumes what check left", func(t *testing.T) {
		ok, err := f.provider.Verify(ctx, id, code)
		require.NoError(t, err)
		require.True(t, ok)
		_, err = f.provider.Check(ctx, id, code)
		require.ErrorIs(t, err, otp.ErrChallengeNotFound)
	})
}

func TestProvider_SharedStoreThrottle(t *testing.T) {
	ctx := context.Background()
	store := otp.NewMemoryChallengeStore()
	first := setupTestFixture(t, store)
	second := setupTestFixture(t, store)

	id, err := first.provider.Issue(ctx, target, "registration")
	require.NoError(t, err)

	second.advance(10 * time.Second)
	require.ErrorIs(t, second.provider.Resend(ctx, id), otp.ErrThrottled)
	_, err = second.provider.Issue(ctx, target, "registration")
	require.ErrorIs(t, err, otp.ErrThrottled)
	require.Zero(t, second.sender.Count())

	t.Run("other targets are not held back", func(t *testing.T) {
		_, err := second.provider.Issue(ctx, "john@example.com", "registration")
		require.NoError(t, err)
	})

	t.Run("allowed once the interval has passed", func(t *testing.T) {
		second.advance(30 * time.Second)
		require.NoError(t, second.provider.Resend(ctx, id))
		require.Equal(t, 1, first.sender.Count())

		msg, ok := second.sender.Last(target)
		require.True(t, ok)
		ok, err := first.provider.Verify(ctx, id, msg.Code)
		require.NoError(t, err)
		require.True(t, ok)
	})
}

type failingSender struct {
	*otp.MemorySender
	err error
}

func (s *failingSender) Send(ctx context.Context, msg otp.Message) error {
	if s.err != nil {
		return s.err
	}
	return s.MemorySender.Send(ctx, msg)
}

func TestProvider_ResendFailureKeepsCode(t *testing.T) {
	ctx := context.Background()
	sender := &failingSender{MemorySender: otp.NewMemorySender()}
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	p, err := otp.NewProvider(otp.NewMemoryChallengeStore(), sender,
		otp.WithNowTime(func() time.Time { return now }),
		otp.WithResendInterval(30*time.Second),
		otp.WithLogger(zerolog.Nop()),
	)
	require.NoError(t, err)

	id, err := p.Issue(ctx, target, "registration")
	require.NoError(t, err)
	msg, _ := sender.Last(target)

	now = now.Add(31 * time.Second)
	sender.err = errors.New("smtp unavailable")
	require.Error(t, p.Resend(ctx, id))
	require.Equal(t, 1, sender.Count())

	ok, err := p.Verify(ctx, id, msg.Code)
	require.NoError(t, err)
	require.True(t, ok, "the code that was delivered still works")
}

func TestProvider_RecordChallengeStore(t *testing.T) {
	ctx := context.Background()
	srv := httptest.NewServer(recordserver.New(config.New(), recordserver.NewMemoryStore(otp.Collection), recordserver.WithLogger(zerolog.Nop())))
	t.Cleanup(srv.Close)
	client, err := records.New(srv.URL, nil)
	require.NoError(t, err)

	store := otp.NewRecordChallengeStore(client)
	f := setupTestFixture(t, store)

	id, err := f.provider.Issue(ctx, target, "registration")
	require.NoError(t, err)

	stored, err := store.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, target, stored.Target)
	require.NotContains(t, stored.CodeHash, f.lastCode(t))

	t.Run("another process sharing the store is throttled", func(t *testing.T) {
		other := setupTestFixture(t, store)
		_, err := other.provider.Issue(ctx, target, "registration")
		require.ErrorIs(t, err, otp.ErrThrottled)
		require.Zero(t, other.sender.Count())
	})

	ok, err := f.provider.Verify(ctx, id, f.lastCode(t))
	require.NoError(t, err)
	require.True(t, ok)

	_, err = store.Get(ctx, id)
	require.ErrorIs(t, err, otp.ErrChallengeNotFound)
}

func TestNewProvider(t *testing.T) {
	_, err := otp.NewProvider(nil, otp.NewMemorySender())
	require.Error(t, err)
	_, err = otp.NewProvider(otp.NewMemoryChallengeStore(), nil)
	require.Error(t, err)
}
