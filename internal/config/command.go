package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

// ParseCommand splits a shell-like command line into a CommandConfig. It
// honors single and double quotes and backslash escapes; it never invokes a
// shell. A leading "~/" in any argument expands to the user's home.
func ParseCommand(raw string) (CommandConfig, error) {
	argv, err := splitCommand(raw)
	if err != nil {
		return CommandConfig{}, err
	}
	for i, arg := range argv {
		argv[i] = expandHome(arg)
	}
	return CommandConfig{Raw: raw, Argv: argv}, nil
}

// mustCommand is for compiled-in defaults only.
func mustCommand(raw string) CommandConfig {
	cmd, err := ParseCommand(raw)
	if err != nil {
		panic(err)
	}
	return cmd
}

type splitter struct {
	argv    []string
	word    strings.Builder
	inWord  bool
	quote   rune
	escaped bool
}

func (s *splitter) end() {
	if s.inWord {
		s.argv = append(s.argv, s.word.String())
		s.word.Reset()
		s.inWord = false
	}
}

func (s *splitter) add(r rune) {
	s.word.WriteRune(r)
	s.inWord = true
}

func (s *splitter) feed(r rune) {
	switch {
	case s.escaped:
		s.add(r)
		s.escaped = false
	case r == '\\':
		s.escaped = true
	case s.quote != 0 && r == s.quote:
		s.quote = 0
	case s.quote != 0:
		s.add(r)
	case r == '\'' || r == '"':
		// Quotes open a word even when empty: "" is one empty argument.
		s.quote = r
		s.inWord = true
	case unicode.IsSpace(r):
		s.end()
	default:
		s.add(r)
	}
}

// splitCommand tokenizes input. Blank input and lines starting with '#'
// yield no argv.
func splitCommand(input string) ([]string, error) {
	input = strings.TrimSpace(input)
	if input == "" || strings.HasPrefix(input, "#") {
		return nil, nil
	}

	var s splitter
	for _, r := range input {
		s.feed(r)
	}
	switch {
	case s.escaped:
		return nil, fmt.Errorf("unterminated escape sequence in command: %q", input)
	case s.quote != 0:
		return nil, fmt.Errorf("unterminated quote in command: %q", input)
	}
	s.end()
	return s.argv, nil
}

func expandHome(arg string) string {
	if !strings.HasPrefix(arg, "~/") {
		return arg
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return arg
	}
	return filepath.Join(home, arg[2:])
}
