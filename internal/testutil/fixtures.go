package testutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// LoadFixture reads an HTML fixture file from internal/testutil/testdata,
// adapted from the teacher's bank/testutil.LoadFixture (which loaded
// per-bank portal snapshots) into a single shared fixture directory for
// end-to-end replay scenarios (spec §8's numbered scenarios).
func LoadFixture(t *testing.T, name string) string {
	t.Helper()

	_, filename, _, _ := runtime.Caller(0)
	baseDir := filepath.Dir(filename)

	path := filepath.Join(baseDir, "testdata", name+".html")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("testutil.LoadFixture: %s: %v", name, err)
	}

	return string(data)
}
