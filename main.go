// mychat - A terminal client for chat-completion APIs.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"os"

	"github.com/kosiew/my-chat-gpt/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
