package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dmitrijs2005/medchat/internal/common"
	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// ErrNoAnswer is returned by GetYesNo when input ends before a valid answer.
var ErrNoAnswer = errors.New("no answer")

// GetSimpleText prints a prompt to w and reads a single line of input from reader.
// The trailing newline is trimmed. If EOF occurs after some input was read,
// the partial line is returned.
//
//	Prompt text
//	> _
func GetSimpleText(reader *bufio.Reader, prompt string, w io.Writer) (string, error) {
	if _, err := fmt.Fprint(w, prompt+"\n> "); err != nil {
		return "", err
	}
	return readLine(reader)
}

// GetToken reads an access token from the terminal without echo. When stdin
// is not a terminal the token is read as a plain line from reader.
func GetToken(reader *bufio.Reader, w io.Writer) (string, error) {
	if _, err := fmt.Fprint(w, "Paste access token: "); err != nil {
		return "", err
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return readLine(reader)
	}
	tok, err := readPassword(fd)
	fmt.Fprintln(w)
	if err != nil {
		return "", err
	}
	defer common.WipeByteArray(tok)
	return strings.TrimSpace(string(tok)), nil
}

// GetYesNo asks prompt until the user answers y/yes or n/no.
func GetYesNo(reader *bufio.Reader, prompt string, w io.Writer) (bool, error) {
	for {
		if _, err := fmt.Fprint(w, prompt+" (y/n)\n> "); err != nil {
			return false, err
		}
		line, err := readLine(reader)
		switch strings.ToLower(line) {
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return false, ErrNoAnswer
			}
			return false, err
		}
	}
}

func readLine(reader *bufio.Reader) (string, error) {
	line, err := reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && len(line) > 0 {
			return strings.TrimSpace(line), nil
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}
