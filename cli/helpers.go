package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/term"
)

// SecretReader reads one secret line after showing prompt.
type SecretReader func(prompt string) (string, error)

// NewSecretReader prompts with masked terminal input when stdin is a
// terminal and reads plain lines from in otherwise.
func NewSecretReader(in *bufio.Reader, out io.Writer) SecretReader {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		return ReadPasswordMasked
	}
	return lineSecretReader(in, out)
}

// ReadPasswordMasked echoes '*' per typed rune.
func ReadPasswordMasked(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	fmt.Print(prompt)
	state, err := term.MakeRaw(fd)
	if err != nil {
		return "", err
	}
	defer term.Restore(fd, state)

	var input []rune
	var pending []byte
	for {
		var buf [1]byte
		if _, err := os.Stdin.Read(buf[:]); err != nil {
			return "", err
		}

		switch c := buf[0]; c {
		case 13, 10: // Enter
			fmt.Print("\r\n")
			return string(input), nil
		case 3: // Ctrl+C
			fmt.Print("\r\n")
			return "", errInterrupted
		case 127, 8: // Backspace
			if len(input) > 0 {
				input = input[:len(input)-1]
				fmt.Print("\b \b")
			}
		default:
			pending = append(pending, c)
			if !utf8.FullRune(pending) {
				continue
			}
			r, _ := utf8.DecodeRune(pending)
			pending = pending[:0]
			input = append(input, r)
			fmt.Print("*")
		}
	}
}

var errInterrupted = errors.New("interrupted")

// lineSecretReader reads secrets as plain lines from in.
func lineSecretReader(in *bufio.Reader, out io.Writer) SecretReader {
	return func(prompt string) (string, error) {
		fmt.Fprint(out, prompt)
		return readRaw(in)
	}
}

// readRaw returns the next line without its terminator. A final line with
// no newline is returned before io.EOF.
func readRaw(in *bufio.Reader) (string, error) {
	line, err := in.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func readLine(in *bufio.Reader) (string, error) {
	line, err := readRaw(in)
	return strings.TrimSpace(line), err
}

func prompt(in *bufio.Reader, out io.Writer, label string) (string, error) {
	fmt.Fprint(out, label)
	return readLine(in)
}
