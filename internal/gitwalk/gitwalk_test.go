package gitwalk_test

import (
	"os"
	"os/exec"
	"testing"

	"github.com/jetsetilly/membrowse/internal/gitwalk"
	"github.com/jetsetilly/membrowse/test"
)

// initRepo creates a throwaway git repository with count commits and
// changes into it, restoring the working directory on cleanup.
func initRepo(t *testing.T, count int) {
	t.Helper()
	dir := t.TempDir()

	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		test.ExpectSuccess(t, cmd.Run() == nil)
	}

	run("init", "-q")
	run("config", "user.email", "test@example.com")
	run("config", "user.name", "test")

	for i := 0; i < count; i++ {
		test.ExpectSuccess(t, os.WriteFile(dir+"/file.txt", []byte{byte(i)}, 0o644) == nil)
		run("add", "file.txt")
		run("commit", "-q", "-m", "commit")
	}

	old, err := os.Getwd()
	test.ExpectSuccess(t, err == nil)
	test.ExpectSuccess(t, os.Chdir(dir) == nil)
	t.Cleanup(func() { os.Chdir(old) })
}

func TestCommitMetadataEmptySHAReturnsDefaults(t *testing.T) {
	meta := gitwalk.CommitMetadata("")
	test.Equate(t, meta.CommitMessage, "Unknown commit message")
	test.Equate(t, meta.AuthorName, "Unknown")
	test.Equate(t, meta.AuthorEmail, "unknown@example.com")
}

func TestCommitMetadataUnknownSHADoesNotPanic(t *testing.T) {
	meta := gitwalk.CommitMetadata("0000000000000000000000000000000000000000")
	test.Equate(t, meta.CommitSHA, "0000000000000000000000000000000000000000")
}

func TestDetectGitHubDoesNotPanicOutsideActions(t *testing.T) {
	t.Setenv("GITHUB_EVENT_NAME", "")
	t.Setenv("GITHUB_SHA", "")
	t.Setenv("GITHUB_EVENT_PATH", "")

	meta := gitwalk.DetectGitHub()
	test.ExpectSuccess(t, meta.RepoName != "")
	test.ExpectSuccess(t, meta.BranchName != "")
}

func TestLogReturnsMostRecentFirst(t *testing.T) {
	initRepo(t, 3)

	shas, err := gitwalk.Log(2)
	test.ExpectSuccess(t, err == nil)
	test.Equate(t, len(shas), 2)
	test.ExpectInequality(t, shas[0], shas[1])

	head, err := exec.Command("git", "rev-parse", "HEAD").Output()
	test.ExpectSuccess(t, err == nil)
	test.Equate(t, trimNewline(string(head)), shas[0])
}

func TestCheckoutSwitchesCommit(t *testing.T) {
	initRepo(t, 2)

	shas, err := gitwalk.Log(2)
	test.ExpectSuccess(t, err == nil)

	test.ExpectSuccess(t, gitwalk.Checkout(shas[1]) == nil)

	head, err := exec.Command("git", "rev-parse", "HEAD").Output()
	test.ExpectSuccess(t, err == nil)
	test.Equate(t, trimNewline(string(head)), shas[1])
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}
