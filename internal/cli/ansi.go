// pattern: Functional Core
package cli

import "github.com/charmbracelet/x/ansi"

// StripANSI removes ANSI escape sequences from the given string.
func StripANSI(s string) string {
	return ansi.Strip(s)
}

// displayWidth is the number of terminal cells s occupies, ignoring escape
// sequences and counting wide runes twice.
func displayWidth(s string) int {
	return ansi.StringWidth(s)
}
