package catalog

import (
	"context"
	"errors"
	"testing"
)

func TestRetryOnBusyRetriesOnlyBusyErrors(t *testing.T) {
	calls := 0
	err := retryOnBusy(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("database is locked (SQLITE_BUSY)")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success after busy retries, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}

	calls = 0
	err = retryOnBusy(context.Background(), func() error {
		calls++
		return ErrNotFound
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound unchanged, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected non-busy error to stop immediately, got %d attempts", calls)
	}
}

func TestRetryOnBusyGivesUp(t *testing.T) {
	calls := 0
	err := retryOnBusy(context.Background(), func() error {
		calls++
		return errors.New("SQLITE_BUSY")
	})
	if err == nil || !isSQLiteBusy(err) {
		t.Fatalf("expected last busy error, got %v", err)
	}
	if calls != busyRetryAttempts {
		t.Fatalf("expected %d attempts, got %d", busyRetryAttempts, calls)
	}
}
