package core

import (
	"testing"

	"github.com/pkg/errors"
)

func TestChecksum(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want int32
	}{
		{name: "empty", in: "", want: 0},
		{name: "single char", in: "a", want: 97},
		{name: "two chars", in: "ab", want: 3105},
		{name: "overflow wraps like a 32-bit int", in: "hello", want: 99162322},
		{name: "long", in: "the quick brown fox", want: 1302335171},
		{name: "negative", in: "zzzzzzzzzz", want: -1580979136},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Checksum(tt.in); got != tt.want {
				t.Errorf("Checksum(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestChecksumHex(t *testing.T) {
	if got := ChecksumHex("ab"); got != "C21" {
		t.Errorf("ChecksumHex() = %s, want C21", got)
	}
	if got := ChecksumString("ab"); got != "3105" {
		t.Errorf("ChecksumString() = %s, want 3105", got)
	}
}

func TestCleanString(t *testing.T) {
	if got := CleanString("  Ada@X.com "); got != "Ada@X.com" {
		t.Errorf("CleanString() = %q", got)
	}
	if got := CleanString("  Ada@X.com ", true); got != "ada@x.com" {
		t.Errorf("CleanString(lower) = %q", got)
	}
}

func TestIs(t *testing.T) {
	notFound := NewError(ErrNotFound, `course "intro" not found`)
	wrapped := errors.Wrap(notFound, "enrolling")

	if !Is(notFound, ErrNotFound) {
		t.Error("Is(notFound, ErrNotFound) = false")
	}
	if !Is(wrapped, ErrNotFound) {
		t.Error("Is(wrapped, ErrNotFound) = false")
	}
	if Is(wrapped, ErrNotEnrolled) {
		t.Error("Is(wrapped, ErrNotEnrolled) = true")
	}
	if Is(nil, ErrNotFound) {
		t.Error("Is(nil) = true")
	}
	if notFound.Error() != `course "intro" not found` {
		t.Errorf("Error() = %q", notFound.Error())
	}
}

func TestStorageError(t *testing.T) {
	err := errors.Wrap(NewStorageError("set", "user_1", errors.New("disk full")), "saving user")
	if !IsStorageFailure(err) {
		t.Fatal("IsStorageFailure() = false")
	}
	if IsStorageFailure(NewError(ErrNotFound, "x")) {
		t.Error("IsStorageFailure(kind error) = true")
	}
	if IsValidation(err) {
		t.Error("IsValidation(storage error) = true")
	}
	if !IsValidation(NewFieldError("email", "please enter a valid email address")) {
		t.Error("IsValidation(field error) = false")
	}
}
