// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ux

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
)

var Logger *UserLog

// UserLog separates command output (writer, stdout) from progress and
// status lines (status, stderr) so output stays machine readable.
type UserLog struct {
	log    *zap.Logger
	writer io.Writer
	status io.Writer
}

// NewUserLog replaces the global user logger. Status lines are dropped until
// SetStatusWriter is called.
func NewUserLog(log *zap.Logger, userwriter io.Writer) {
	Logger = &UserLog{
		log:    log,
		writer: userwriter,
		status: io.Discard,
	}
}

func (ul *UserLog) SetStatusWriter(w io.Writer) {
	ul.status = w
}

// StatusWriter is where progress goes. Spinners should only be drawn on it
// when IsTerminal reports true.
func (ul *UserLog) StatusWriter() io.Writer {
	return ul.status
}

// PrintToUser prints msg directly to stdout (command output)
// Does NOT log to avoid duplication - logs should go to stderr separately
func (ul *UserLog) PrintToUser(msg string, args ...interface{}) {
	formattedMsg := fmt.Sprintf(msg, args...)
	_, _ = fmt.Fprintln(ul.writer, formattedMsg)
}

// StatusToUser prints a progress line on the status stream.
func (ul *UserLog) StatusToUser(msg string, args ...interface{}) {
	formattedMsg := fmt.Sprintf(msg, args...)
	_, _ = fmt.Fprintln(ul.status, formattedMsg)
}

// RedXToUser prints a red X error message on the status stream
func (ul *UserLog) RedXToUser(msg string, args ...interface{}) {
	formattedMsg := fmt.Sprintf("✗ %s", fmt.Sprintf(msg, args...))
	_, _ = fmt.Fprintln(ul.status, formattedMsg)
	// the command's returned error is what reports the failure
	ul.log.Info(formattedMsg)
}

// GreenCheckmarkToUser prints a green checkmark success message on the status stream
func (ul *UserLog) GreenCheckmarkToUser(msg string, args ...interface{}) {
	formattedMsg := fmt.Sprintf("✓ %s", fmt.Sprintf(msg, args...))
	_, _ = fmt.Fprintln(ul.status, formattedMsg)
	ul.log.Info(formattedMsg)
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// StepTracker tracks progress of multi-step operations with elapsed time
type StepTracker struct {
	stepStart time.Time
	stepName  string
	ul        *UserLog
}

func NewStepTracker(ul *UserLog) *StepTracker {
	return &StepTracker{ul: ul}
}

// Start begins tracking a new step
func (st *StepTracker) Start(stepName string) {
	st.stepStart = time.Now()
	st.stepName = stepName
	st.ul.StatusToUser("%s...", stepName)
}

// Elapsed returns the elapsed time for the current step
func (st *StepTracker) Elapsed() time.Duration {
	return time.Since(st.stepStart)
}

// Complete marks the step as done with success
func (st *StepTracker) Complete(suffix string) {
	elapsed := st.Elapsed()
	if suffix != "" {
		st.ul.GreenCheckmarkToUser("%s (%.1fs) - %s", st.stepName, elapsed.Seconds(), suffix)
	} else {
		st.ul.GreenCheckmarkToUser("%s (%.1fs)", st.stepName, elapsed.Seconds())
	}
}

// Failed marks the step as failed with an error
func (st *StepTracker) Failed(reason string) {
	elapsed := st.Elapsed()
	st.ul.RedXToUser("%s (%.1fs) - FAILED: %s", st.stepName, elapsed.Seconds(), reason)
}
