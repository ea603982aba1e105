package testutil

import (
	"os/exec"
	"testing"
)

// FakeClientScript stands in for a database client. It reads the whole
// statement from stdin and then:
//   - exits 1 with an ORA-style message on stderr if the input contains FAIL
//   - sleeps for 5 seconds if the input contains SLEEP
//   - otherwise echoes "ok: <input>" on stdout and exits 0
const FakeClientScript = `input=$(cat)
case "$input" in
*FAIL*) printf 'ORA-00942: table or view does not exist\n' >&2; exit 1;;
*SLEEP*) exec sleep 5;;
esac
printf 'ok: %s\n' "$input"`

// Shell returns the path of a POSIX shell, skipping the test if none exists.
func Shell(t *testing.T) string {
	t.Helper()

	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("no POSIX shell available")
	}
	return sh
}

// FakeClientArgs returns the argument vector that runs FakeClientScript.
func FakeClientArgs() []string {
	return []string{"-c", FakeClientScript}
}
