// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package prompts asks the user for values that were not configured. It
// never prompts unless stdin is a terminal and no override disables it, so
// scripted runs behave the same with or without a TTY.
package prompts

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"golang.org/x/term"
)

// Environment variable names for non-interactive mode.
const (
	// EnvNonInteractive forces non-interactive mode.
	// Set to "1", "true", "yes", or "on" to enable.
	EnvNonInteractive = "BUNGE_NON_INTERACTIVE"

	// EnvCI is a common CI environment variable.
	// When truthy, implies non-interactive.
	EnvCI = "CI"
)

var ErrNonInteractive = errors.New("prompting is disabled")

// promptUIRunner is a variable for testing purposes to allow mocking prompt.Run()
var promptUIRunner = func(prompt promptui.Prompt) (string, error) {
	return prompt.Run()
}

// stdinIsTTY is a variable for testing purposes
var stdinIsTTY = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

type Prompter interface {
	CapturePassword(label string) (string, error)
}

type realPrompter struct{}

// NewPrompter returns a Prompter reading from the terminal. Prompts are drawn
// on stderr so stdout only carries command output.
func NewPrompter() Prompter {
	return &realPrompter{}
}

// CapturePassword reads a masked value. It returns ErrNonInteractive without
// prompting when IsInteractive is false.
func (*realPrompter) CapturePassword(label string) (string, error) {
	if !IsInteractive() {
		return "", fmt.Errorf("%w: %s", ErrNonInteractive, label)
	}
	prompt := promptui.Prompt{
		Label:  label,
		Mask:   '*',
		Stdout: os.Stderr,
	}
	return promptUIRunner(prompt)
}

// isTruthyEnv checks if an environment variable is set to a truthy value.
// Accepts: 1, true, t, yes, y, on (case-insensitive)
func isTruthyEnv(key string) bool {
	v, ok := os.LookupEnv(key)
	if !ok {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	default:
		return false
	}
}

// IsInteractive returns true if prompting is allowed: stdin is a TTY and
// neither BUNGE_NON_INTERACTIVE nor CI is truthy.
func IsInteractive() bool {
	if isTruthyEnv(EnvNonInteractive) || isTruthyEnv(EnvCI) {
		return false
	}
	return stdinIsTTY()
}
