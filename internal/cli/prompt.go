// prompt.go implements the interactive yes/no prompt used by the
// bootstrap and destructive commands.
//
// The reader and writer are parameters (rather than os.Stdin/os.Stdout
// directly) so that command logic can be exercised in tests with scripted
// answers. Production callers pass os.Stdin/os.Stdout.
package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// promptYesNo asks a yes/no question and reads one line of input.
//
// The def parameter selects the answer for an empty line (pressing Enter)
// and controls the hint rendering: "[Y/n]" when the default is yes,
// "[y/N]" when it is no. Accepted affirmatives are "y" and "yes",
// negatives "n" and "no", case-insensitive; anything else counts as no —
// for consent prompts, an unrecognized answer must never be read as
// approval.
//
// EOF on the reader (e.g., input piped from a closed stream) is treated
// as the default answer rather than an error, so non-interactive
// invocations behave like an operator pressing Enter.
func promptYesNo(in io.Reader, out io.Writer, question string, def bool) (bool, error) {
	hint := "[y/N]"
	if def {
		hint = "[Y/n]"
	}
	fmt.Fprintf(out, "%s %s: ", question, hint)

	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return false, fmt.Errorf("failed to read response: %w", err)
		}
		// EOF — take the default.
		return def, nil
	}

	answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
	switch answer {
	case "":
		return def, nil
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
