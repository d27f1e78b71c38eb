package helpers

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// AskYesNo writes question with a [y/N] or [Y/n] suffix and reads one line.
// An empty answer, EOF or unreadable input yields def.
func AskYesNo(out io.Writer, in io.Reader, question string, def bool) bool {
	suffix := "y/N"
	if def {
		suffix = "Y/n"
	}
	fmt.Fprintf(out, "%s [%s]: ", question, suffix)

	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		fmt.Fprintln(out)
		return def
	}
	switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
	case "":
		return def
	case "y", "yes":
		return true
	default:
		return false
	}
}
