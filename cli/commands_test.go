package cli

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fahmaliyi/passvault/vault"
)

const master = "correcthorse123"

func newTestSession(t *testing.T) *vault.Session {
	t.Helper()
	store := vault.NewFileStore(filepath.Join(t.TempDir(), vault.VaultFileName))
	s := vault.NewSession(store, vault.WithKDFParams(vault.KDFParams{Time: 1, Memory: 64, Threads: 1}))
	t.Cleanup(s.Lock)
	return s
}

func newUnlockedSession(t *testing.T) *vault.Session {
	t.Helper()
	s := newTestSession(t)
	if err := s.Create(master); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return s
}

// runREPL feeds script to a REPL and returns its output.
func runREPL(t *testing.T, s *vault.Session, script string) (string, *fakeBoard, error) {
	t.Helper()
	in := bufio.NewReader(strings.NewReader(script))
	var out bytes.Buffer
	clip, board := newTestClipboard(time.Hour)

	r := NewREPL(s, in, &out, lineSecretReader(in, &out), clip)
	r.SetGenerator(16, false)
	err := r.Run()
	return out.String(), board, err
}

func TestLogin_CreatesVault(t *testing.T) {
	s := newTestSession(t)
	in := bufio.NewReader(strings.NewReader("short\nshort\nmismatch1\nmismatch2\n" + master + "\n" + master + "\n"))
	var out bytes.Buffer

	if err := Login(s, lineSecretReader(in, &out), &out); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if !s.IsUnlocked() {
		t.Error("session not unlocked after Login")
	}
	for _, want := range []string{"at least 8 characters", "do not match", "Vault created."} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}

func TestLogin_UnlocksAfterWrongAttempt(t *testing.T) {
	s := newUnlockedSession(t)
	s.Lock()

	in := bufio.NewReader(strings.NewReader("wrong-passphrase\n" + master + "\n"))
	var out bytes.Buffer
	if err := Login(s, lineSecretReader(in, &out), &out); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if !strings.Contains(out.String(), "14 attempts left") {
		t.Errorf("output = %q", out.String())
	}
	if !s.IsUnlocked() {
		t.Error("session not unlocked")
	}
}

func TestLogin_EndOfInput(t *testing.T) {
	s := newUnlockedSession(t)
	s.Lock()

	in := bufio.NewReader(strings.NewReader(""))
	var out bytes.Buffer
	if err := Login(s, lineSecretReader(in, &out), &out); !errors.Is(err, io.EOF) {
		t.Errorf("Login() error = %v, want io.EOF", err)
	}
}

func TestREPL_AddListShow(t *testing.T) {
	s := newUnlockedSession(t)

	out, _, err := runREPL(t, s, "a\nhttps://bank.com\nalice\ns3cret!\nl\ns 1\nq\n")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	for _, want := range []string{"Entry added!", "1) https://bank.com | alice", "Password: s3cret!", "Exiting."} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestREPL_AddGeneratesAndCopies(t *testing.T) {
	s := newUnlockedSession(t)

	out, board, err := runREPL(t, s, "a\nhttps://mail.com\nbob\n\n")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.Contains(out, "Generated password copied") {
		t.Errorf("output = %s", out)
	}

	entries, _ := s.List()
	if len(entries) != 1 || len(entries[0].Password) != 16 {
		t.Fatalf("entries = %+v", entries)
	}
	if board.get() != entries[0].Password {
		t.Error("generated password not on clipboard")
	}
}

func TestREPL_CopyUpdateDelete(t *testing.T) {
	s := newUnlockedSession(t)
	if _, err := s.Add("https://bank.com", "alice", "s3cret!"); err != nil {
		t.Fatal(err)
	}

	out, board, err := runREPL(t, s, "l\nc 1\nu 1\n\nbob\nnewpass\nd 1\nn\n")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if board.get() != "s3cret!" {
		t.Errorf("clipboard = %q", board.get())
	}
	if !strings.Contains(out, "Entry updated!") || !strings.Contains(out, "Cancelled.") {
		t.Errorf("output = %s", out)
	}

	entries, _ := s.List()
	if len(entries) != 1 || entries[0].Username != "bob" || entries[0].Password != "newpass" || entries[0].URL != "https://bank.com" {
		t.Errorf("entries = %+v", entries)
	}

	out, _, _ = runREPL(t, s, "l\nd 1\ny\n")
	if !strings.Contains(out, "Entry deleted!") {
		t.Errorf("output = %s", out)
	}
	if entries, _ := s.List(); len(entries) != 0 {
		t.Errorf("entries after delete = %+v", entries)
	}
}

func TestREPL_FindAndSearch(t *testing.T) {
	s := newUnlockedSession(t)
	s.Add("https://example.com", "alice", "pw1")
	s.Add("https://example.org", "bob", "pw2")

	out, _, _ := runREPL(t, s, "f https://www.example.com/login\n/ BOB\n")
	if !strings.Contains(out, "1) https://example.com | alice") {
		t.Errorf("find output = %s", out)
	}
	if !strings.Contains(out, "1) https://example.org | bob") {
		t.Errorf("search output = %s", out)
	}
}

func TestREPL_InvalidInput(t *testing.T) {
	s := newUnlockedSession(t)

	out, _, err := runREPL(t, s, "s\ns 9\nc x\nzz\ng abc\n")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	for _, want := range []string{"specify item number", "invalid item number", "Unknown command", "Invalid length"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestREPL_Generate(t *testing.T) {
	s := newUnlockedSession(t)

	_, board, err := runREPL(t, s, "g 32\n")
	if err != nil {
		t.Fatal(err)
	}
	if len(board.get()) != 32 {
		t.Errorf("generated %q", board.get())
	}
}

func TestREPL_LockAndUnlock(t *testing.T) {
	s := newUnlockedSession(t)

	out, _, err := runREPL(t, s, "x\nwrong-passphrase\n"+master+"\nl\n")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.Contains(out, "Vault locked.") || !strings.Contains(out, "Wrong master password") {
		t.Errorf("output = %s", out)
	}
	if !s.IsUnlocked() {
		t.Error("session should be unlocked again")
	}
}

func TestREPL_ChangeMaster(t *testing.T) {
	s := newUnlockedSession(t)
	s.Add("https://bank.com", "alice", "s3cret!")

	const newPass = "batterystaple456"
	out, _, err := runREPL(t, s, "m\n"+master+"\n"+newPass+"\n"+newPass+"\n")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.Contains(out, "Master password changed.") {
		t.Errorf("output = %s", out)
	}

	s.Lock()
	if err := s.Unlock(newPass); err != nil {
		t.Errorf("Unlock(new) error = %v", err)
	}
}

func TestREPL_LockedOutEndsSession(t *testing.T) {
	s := newUnlockedSession(t)

	script := "x\n" + strings.Repeat("wrong-passphrase\n", vault.MaxFailedAttempts)
	_, _, err := runREPL(t, s, script)
	if !errors.Is(err, vault.ErrLockedOut) {
		t.Errorf("Run() error = %v, want ErrLockedOut", err)
	}
	if s.Exists() {
		t.Error("vault should be deleted after lockout")
	}
}
