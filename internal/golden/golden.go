// Package golden implements the golden-file harness spec.md §8 calls for:
// "for each input source, selected pipeline stages produce a deterministic
// text form that is diffed against a checked-in file." Fixtures live under
// testdata/*.exp; Compare diffs a freshly produced dump (internal/printer's
// stable or raw form) against the checked-in one.
//
// Grounded on the teacher's test style throughout gql (table-driven tests
// asserting via testify) generalized to compare against a file on disk
// instead of an inline expectation, plus a rewrite mode gated on an
// environment variable, the common idiomatic-Go convention for refreshing
// checked-in fixtures (e.g. Go's own `-update` test flags) rather than a
// bespoke flag-parsing scheme the teacher has no precedent for.
package golden

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// updateEnvVar, when set to any non-empty value, makes Compare overwrite the
// checked-in fixture with got instead of diffing against it.
const updateEnvVar = "SORBETGO_UPDATE_GOLDEN"

// Compare diffs got against the checked-in fixture at testdata/name,
// relative to the calling test's package directory. When
// SORBETGO_UPDATE_GOLDEN is set, it writes got to the fixture instead.
func Compare(t *testing.T, name string, got string) {
	t.Helper()
	path := filepath.Join("testdata", name)
	if os.Getenv(updateEnvVar) != "" {
		require.NoError(t, os.WriteFile(path, []byte(got), 0644))
		return
	}
	want, err := os.ReadFile(path)
	require.NoError(t, err, "missing golden fixture %s (set %s=1 to create it)", path, updateEnvVar)
	assert.Equal(t, string(want), got, "golden mismatch for %s", path)
}
