package testutil

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTempDir(t *testing.T) {
	dir, cleanup := TempDir(t)
	defer cleanup()

	// Check directory exists
	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir(), "expected directory")

	// Create a file in the directory
	testFile := filepath.Join(dir, "test.txt")
	err = os.WriteFile(testFile, []byte("test"), 0644)
	require.NoError(t, err)

	// Verify file exists
	_, err = os.Stat(testFile)
	require.NoError(t, err)
}

func TestWriteFile(t *testing.T) {
	dir, cleanup := TempDir(t)
	defer cleanup()

	path := WriteFile(t, dir, "batch.sql", "SELECT 1;SELECT 2")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1;SELECT 2", string(data))
}

func TestFakeClient(t *testing.T) {
	sh := Shell(t)

	tests := []struct {
		name    string
		stdin   string
		wantOut string
		wantErr bool
	}{
		{"success echoes input", "SELECT 1", "ok: SELECT 1\n", false},
		{"failure exits non-zero", "SELECT FAIL", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := exec.Command(sh, FakeClientArgs()...)
			cmd.Stdin = strings.NewReader(tt.stdin)
			out, err := cmd.Output()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantOut, string(out))
		})
	}
}
