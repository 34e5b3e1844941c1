// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// terminal.go - Terminal detection for mychat CLI.

package cli

import (
	"os"
	"sync"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// IsTTY returns true if stdin is a terminal. Prompts and the line editor
// need one.
func IsTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// outputProfile is the color profile of stdout. termenv honors NO_COLOR and
// CLICOLOR_FORCE; FORCE_COLOR is accepted as well.
var outputProfile = sync.OnceValue(func() termenv.Profile {
	p := termenv.NewOutput(os.Stdout).EnvColorProfile()
	if p == termenv.Ascii && os.Getenv("NO_COLOR") == "" && os.Getenv("FORCE_COLOR") != "" {
		return termenv.ANSI256
	}
	return p
})

// ColorsEnabled reports whether stdout gets styled output.
func ColorsEnabled() bool {
	return outputProfile() != termenv.Ascii
}

// wrapWidth is the column at which rendered replies wrap.
func wrapWidth() int {
	const fallback, narrowest, margin = 80, 40, 4

	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	switch {
	case err != nil || width <= 0:
		width = fallback
	case width < narrowest:
		width = narrowest
	}
	return width - margin
}
