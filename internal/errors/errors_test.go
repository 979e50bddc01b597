// Package errors provides unit tests for typed error codes.
package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

// TestNew verifies AppError creation.
func TestNew(t *testing.T) {
	err := New(ErrAuthentication, "no active session")

	if err.Code != ErrAuthentication {
		t.Errorf("code = %s, want %s", err.Code, ErrAuthentication)
	}

	if !strings.Contains(err.Error(), "AUTHENTICATION_ERROR") {
		t.Errorf("error string should contain code, got %q", err.Error())
	}

	if !strings.Contains(err.Error(), "no active session") {
		t.Errorf("error string should contain message, got %q", err.Error())
	}
}

// TestWrap verifies wrapped errors unwrap to the cause.
func TestWrap(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := Wrap(ErrNetwork, "upload failed", cause)

	if !errors.Is(err, cause) {
		t.Error("wrapped error should unwrap to cause")
	}

	if !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("error string should contain cause, got %q", err.Error())
	}
}

// TestIs verifies code matching.
func TestIs(t *testing.T) {
	err := New(ErrValidation, "unknown note kind")

	if !Is(err, ErrValidation) {
		t.Error("Is should match the error's code")
	}

	if Is(err, ErrNetwork) {
		t.Error("Is should not match a different code")
	}

	if Is(fmt.Errorf("plain"), ErrValidation) {
		t.Error("Is should not match untyped errors")
	}
}

// TestCodeOf verifies code extraction with fallback.
func TestCodeOf(t *testing.T) {
	if got := CodeOf(New(ErrNetwork, "timeout")); got != ErrNetwork {
		t.Errorf("CodeOf = %s, want %s", got, ErrNetwork)
	}

	if got := CodeOf(fmt.Errorf("plain")); got != ErrInternal {
		t.Errorf("CodeOf untyped = %s, want %s", got, ErrInternal)
	}
}
