package fixture

import "testing"

// OpenTemp returns a store in a per-test temporary directory that is removed
// when the test completes.
func OpenTemp(t testing.TB) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open fixture store: %v", err)
	}
	return s
}
