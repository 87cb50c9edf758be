package session

import "errors"

// ErrUnsupportedLanguage indicates the requested language is outside the
// closed editor set.
var ErrUnsupportedLanguage = errors.New("unsupported language")

// ErrSubmissionInFlight indicates a submission is already running; the second
// one is rejected, never queued.
var ErrSubmissionInFlight = errors.New("submission already in flight")

// ErrScreenCompleted indicates the screen reached a terminal state and
// accepts no further submissions.
var ErrScreenCompleted = errors.New("test screen already completed")

// ErrScreenClosed indicates the screen was unmounted.
var ErrScreenClosed = errors.New("test screen closed")

// ErrNoDialog indicates a dialog action arrived while the corresponding
// dialog is not open.
var ErrNoDialog = errors.New("dialog not open")

// ErrDialogPending indicates an open dialog must be resolved before the
// requested action can run.
var ErrDialogPending = errors.New("dialog pending")
