package shared

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainError_Kinds(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"validation", Validationf("student", "Add", "bad %s", "name"), IsValidation},
		{"reference", Referencef("student", "Add", "house %d", 7), IsReference},
		{"not found", NotFoundf("student", "Update", "student %d", 1), IsNotFound},
		{"storage", Storage("ledger", "Insert", errors.New("disk full")), IsStorage},
		{"rollover token", ErrRolloverCancelled, IsValidation},
		{"rollover lock", ErrRolloverInProgress, IsConcurrentModification},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.check(tt.err))
			wrapped := fmt.Errorf("outer: %w", tt.err)
			assert.True(t, tt.check(wrapped))
		})
	}
}

func TestDomainError_Message(t *testing.T) {
	err := Validationf("event", "Add", "rank must be >= 1")
	assert.Equal(t, "event.Add: rank must be >= 1", err.Error())

	cause := errors.New("boom")
	wrapped := WrapError("ledger", "Commit", ErrStorage, "storage failure", cause)
	assert.Equal(t, "ledger.Commit: storage failure: boom", wrapped.Error())
	assert.ErrorIs(t, wrapped, cause)
	assert.ErrorIs(t, wrapped, ErrStorage)
}

func TestStorage_PassesDomainErrorsThrough(t *testing.T) {
	ref := Referencef("student", "Add", "house 9 does not exist")
	got := Storage("ledger", "InsertStudent", ref)
	assert.Same(t, ref, got)
	assert.False(t, IsStorage(got))

	assert.NoError(t, Storage("ledger", "x", nil))
}

type sample struct {
	Name  string `validate:"required,max=5"`
	Count int    `validate:"gt=0"`
}

func TestValidateStruct(t *testing.T) {
	assert.NoError(t, ValidateStruct("test", "Op", sample{Name: "ok", Count: 1}))

	err := ValidateStruct("test", "Op", sample{Name: "toolong", Count: 0})
	require.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.Contains(t, err.Error(), "Count (gt=0)")
	assert.Contains(t, err.Error(), "Name (max=5)")
}

func TestLocalLocker(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l := NewLocalLocker()
	l.now = func() time.Time { return now }

	u, err := l.TryAcquire(ctx, "rollover", time.Minute)
	require.NoError(t, err)

	_, err = l.TryAcquire(ctx, "rollover", time.Minute)
	assert.True(t, IsConcurrentModification(err))

	// other keys are independent
	other, err := l.TryAcquire(ctx, "other", time.Minute)
	require.NoError(t, err)
	require.NoError(t, other.Release(ctx))

	require.NoError(t, u.Release(ctx))
	again, err := l.TryAcquire(ctx, "rollover", time.Minute)
	require.NoError(t, err)

	// expiry frees the key; a stale release does not drop the new holder
	now = now.Add(2 * time.Minute)
	fresh, err := l.TryAcquire(ctx, "rollover", time.Minute)
	require.NoError(t, err)
	require.NoError(t, again.Release(ctx))
	_, err = l.TryAcquire(ctx, "rollover", time.Minute)
	assert.True(t, IsConcurrentModification(err))
	require.NoError(t, fresh.Release(ctx))
}
