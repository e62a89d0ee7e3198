package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/fahmaliyi/passvault/vault"
)

const commandHelp = "Commands: a=add, l=list, s N=show, c N=copy, u N=update, d N=delete, " +
	"f URL=find for site, / TEXT=search, g [LEN]=generate, m=change master, x=lock, q=quit"

// REPL is the line-oriented front end over an unlocked session.
type REPL struct {
	session *vault.Session
	in      *bufio.Reader
	out     io.Writer
	secret  SecretReader
	clip    *Clipboard

	genLength  int
	genSymbols bool

	// idMap maps the numbers of the last listing to entry ids.
	idMap map[int]string
}

func NewREPL(s *vault.Session, in *bufio.Reader, out io.Writer, secret SecretReader, clip *Clipboard) *REPL {
	return &REPL{
		session:    s,
		in:         in,
		out:        out,
		secret:     secret,
		clip:       clip,
		genLength:  20,
		genSymbols: true,
	}
}

// SetGenerator changes what g and a blank password on add produce.
func (r *REPL) SetGenerator(length int, symbols bool) {
	r.genLength = length
	r.genSymbols = symbols
}

// Run reads commands until q or end of input. It returns early only when
// the vault can no longer be used, such as after a lockout.
func (r *REPL) Run() error {
	for {
		fmt.Fprintln(r.out)
		fmt.Fprintln(r.out, commandHelp)
		fmt.Fprint(r.out, "> ")

		line, err := readLine(r.in)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		cmd, arg, _ := strings.Cut(line, " ")
		arg = strings.TrimSpace(arg)
		if cmd == "" {
			continue
		}
		if cmd == "q" {
			fmt.Fprintln(r.out, "Exiting.")
			return nil
		}

		if err := r.dispatch(cmd, arg); err != nil {
			fatal := r.handleError(err)
			if errors.Is(fatal, io.EOF) {
				return nil
			}
			if fatal != nil {
				return fatal
			}
		}
	}
}

func (r *REPL) dispatch(cmd, arg string) error {
	switch cmd {
	case "a":
		r.idMap = nil
		return r.handleAdd()
	case "l":
		entries, err := r.session.List()
		if err != nil {
			return err
		}
		r.printList(entries)
	case "f":
		entries, err := r.session.FindForHost(arg)
		if err != nil {
			return err
		}
		r.printList(entries)
	case "/":
		entries, err := r.session.Search(arg)
		if err != nil {
			return err
		}
		r.printList(entries)
	case "s", "c", "u", "d":
		id, err := r.lookup(arg)
		if err != nil {
			fmt.Fprintln(r.out, err)
			return nil
		}
		switch cmd {
		case "s":
			return r.handleShow(id)
		case "c":
			return r.handleCopy(id)
		case "u":
			return r.handleUpdate(id)
		case "d":
			return r.handleDelete(id)
		}
	case "g":
		return r.handleGenerate(arg)
	case "m":
		return r.handleChangeMaster()
	case "x":
		r.session.Lock()
		r.idMap = nil
		fmt.Fprintln(r.out, "Vault locked.")
		return unlock(r.session, r.secret, r.out)
	default:
		fmt.Fprintln(r.out, "Unknown command")
	}
	return nil
}

// handleError prints recoverable errors and returns the ones that end the
// session.
func (r *REPL) handleError(err error) error {
	switch {
	case errors.Is(err, vault.ErrLockedOut), errors.Is(err, io.EOF), errors.Is(err, errInterrupted):
		return err
	case errors.Is(err, vault.ErrLocked):
		fmt.Fprintln(r.out, "Vault is locked.")
		return unlock(r.session, r.secret, r.out)
	default:
		fmt.Fprintln(r.out, "Error:", err)
		return nil
	}
}

func (r *REPL) lookup(arg string) (string, error) {
	if arg == "" {
		return "", errors.New("specify item number")
	}
	num, err := strconv.Atoi(arg)
	if err != nil {
		return "", errors.New("invalid item number")
	}
	id, ok := r.idMap[num]
	if !ok {
		return "", errors.New("invalid item number")
	}
	return id, nil
}

func (r *REPL) printList(entries []vault.DecryptedPasswordEntry) {
	r.idMap = make(map[int]string, len(entries))
	if len(entries) == 0 {
		fmt.Fprintln(r.out, "No entries.")
		return
	}
	fmt.Fprintln(r.out, "Vault entries:")
	for i, e := range entries {
		num := i + 1
		r.idMap[num] = e.ID
		fmt.Fprintf(r.out, "%d) %s | %s\n", num, e.URL, e.Username)
	}
}

func (r *REPL) find(id string) (vault.DecryptedPasswordEntry, error) {
	entries, err := r.session.List()
	if err != nil {
		return vault.DecryptedPasswordEntry{}, err
	}
	for _, e := range entries {
		if e.ID == id {
			return e, nil
		}
	}
	return vault.DecryptedPasswordEntry{}, fmt.Errorf("%w: entry %s", vault.ErrNotFound, id)
}

func (r *REPL) handleShow(id string) error {
	e, err := r.find(id)
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "URL: %s\nUsername: %s\nPassword: %s\nCreated: %s\nUpdated: %s\n",
		e.URL, e.Username, e.Password, formatMillis(e.CreatedAt), formatMillis(e.UpdatedAt))
	return nil
}

func (r *REPL) handleCopy(id string) error {
	e, err := r.find(id)
	if err != nil {
		return err
	}
	return r.copy(e.Password, "Password")
}

func (r *REPL) copy(secret, what string) error {
	if err := r.clip.Copy(secret); err != nil {
		return fmt.Errorf("clipboard: %w", err)
	}
	if d := r.clip.After(); d > 0 {
		fmt.Fprintf(r.out, "%s copied to clipboard. Clearing in %s...\n", what, d)
	} else {
		fmt.Fprintf(r.out, "%s copied to clipboard.\n", what)
	}
	return nil
}

func (r *REPL) handleDelete(id string) error {
	answer, err := prompt(r.in, r.out, "Delete this entry? [y/N]: ")
	if err != nil {
		return err
	}
	if !strings.EqualFold(answer, "y") {
		fmt.Fprintln(r.out, "Cancelled.")
		return nil
	}
	if _, err := r.session.DeleteEntry(id); err != nil {
		return err
	}
	r.idMap = nil
	fmt.Fprintln(r.out, "Entry deleted!")
	return nil
}

func (r *REPL) handleGenerate(arg string) error {
	length := r.genLength
	if arg != "" {
		n, err := strconv.Atoi(arg)
		if err != nil {
			fmt.Fprintln(r.out, "Invalid length")
			return nil
		}
		length = n
	}
	pw, err := vault.GeneratePassword(length, r.genSymbols)
	if err != nil {
		return err
	}
	fmt.Fprintln(r.out, pw)
	return r.copy(pw, "Password")
}

func (r *REPL) handleChangeMaster() error {
	oldPass, err := r.secret("Current master password: ")
	if err != nil {
		return err
	}
	newPass, ok, err := newPassphrase(r.secret, r.out, "New master password: ")
	if err != nil || !ok {
		return err
	}
	if err := r.session.ChangeMasterPassword(oldPass, newPass); err != nil {
		var ipe *vault.InvalidPasswordError
		if errors.As(err, &ipe) {
			fmt.Fprintf(r.out, "Wrong master password. %d attempts left before the vault is deleted.\n", ipe.Remaining)
			return nil
		}
		return err
	}
	fmt.Fprintln(r.out, "Master password changed.")
	return nil
}

func formatMillis(ms int64) string {
	return time.UnixMilli(ms).Local().Format(time.DateTime)
}
