package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestRetryableErrorDetection(t *testing.T) {
	unique := fmt.Errorf("insert sale: %w", &pgconn.PgError{Code: "23505"})
	serial := fmt.Errorf("commit: %w", &pgconn.PgError{Code: "40001"})
	other := errors.New("connection reset")

	if !isUniqueViolation(unique) {
		t.Fatalf("23505 not detected as unique violation")
	}
	if isUniqueViolation(serial) || isUniqueViolation(other) {
		t.Fatalf("non-23505 error detected as unique violation")
	}
	if !isSerializationFailure(serial) {
		t.Fatalf("40001 not detected as serialization failure")
	}
	if isSerializationFailure(unique) || isSerializationFailure(other) {
		t.Fatalf("non-40001 error detected as serialization failure")
	}
}
