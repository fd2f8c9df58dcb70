// Package shellquote renders a command line that can be pasted into bash or zsh.
package shellquote

import (
	"strings"
)

// safe holds the characters an argument may contain and still be left unquoted.
const safe = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789_@%+=:,./-"

// Join constructs a shell-pasteable command line from bin and args.
func Join(bin string, args []string) string {
	var cmdLine strings.Builder

	cmdLine.WriteString(quote(bin))

	for _, arg := range args {
		cmdLine.WriteByte(' ')
		cmdLine.WriteString(quote(arg))
	}

	return cmdLine.String()
}

// quote double-quotes s when needed. Inside double quotes \ " $ ` must be escaped.
func quote(s string) string {
	if s == "" {
		return `""`
	}

	if !strings.ContainsFunc(s, func(r rune) bool { return !strings.ContainsRune(safe, r) }) {
		return s
	}

	var b strings.Builder

	b.WriteByte('"')

	for _, r := range s {
		switch r {
		case '\\', '"', '$', '`':
			b.WriteByte('\\')
			b.WriteRune(r)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}

	b.WriteByte('"')

	return b.String()
}
