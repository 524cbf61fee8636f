package core

import (
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

// Error kinds. Packages attach their own messages with NewError; callers classify with Is.
var (
	ErrNotFound           = errors.New("not found")
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrNotEnrolled        = errors.New("not enrolled")
	ErrAlreadyEnrolled    = errors.New("already enrolled")
	ErrDuplicateEmail     = errors.New("duplicate email")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrLessonsIncomplete  = errors.New("lessons incomplete")
)

type kindError struct {
	kind error
	msg  string
}

// NewError returns an error of the given kind carrying a user-facing message.
func NewError(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

func (err *kindError) Error() string { return err.msg }
func (err *kindError) Cause() error  { return err.kind }
func (err *kindError) Unwrap() error { return err.kind }

// Is reports whether err (or anything it wraps) is of the given kind.
func Is(err, kind error) bool {
	if err == nil {
		return false
	}
	return errors.Cause(err) == kind
}

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

// NewFieldError is a shortcut for a ValidationError on a single field.
func NewFieldError(field, msg string) error {
	return &ValidationError{Err: errors.New(field + ": " + msg), Fields: []FieldError{{Field: field, Error: msg}}}
}

// TranslateValidation converts validator errors into a *ValidationError with translated messages.
// Any other error is returned as is.
func TranslateValidation(err error, translator ut.Translator) error {
	var vErrs validator.ValidationErrors
	if !errors.As(err, &vErrs) {
		return err
	}
	flds := make([]FieldError, 0, len(vErrs))
	msgs := make([]string, 0, len(vErrs))
	for _, vErr := range vErrs {
		msg := vErr.Error()
		if translator != nil {
			msg = vErr.Translate(translator)
		}
		flds = append(flds, FieldError{Field: vErr.Field(), Error: msg})
		msgs = append(msgs, msg)
	}
	return &ValidationError{Err: errors.New(strings.Join(msgs, "; ")), Fields: flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return "validation failed"
	}
	return err.Err.Error()
}

// IsValidation reports whether err is (or wraps) a *ValidationError.
func IsValidation(err error) bool {
	var vErr *ValidationError
	return errors.As(err, &vErr)
}

// StorageError means a mutation did not durably commit even though in-memory state may have changed.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func NewStorageError(op, key string, err error) error {
	return &StorageError{Op: op, Key: key, Err: err}
}

func (err *StorageError) Error() string {
	msg := "storage failure: " + err.Op
	if err.Key != "" {
		msg += " " + err.Key
	}
	if err.Err != nil {
		msg += ": " + err.Err.Error()
	}
	return msg
}

func (err *StorageError) Unwrap() error { return err.Err }

// IsStorageFailure reports whether err is (or wraps) a *StorageError.
func IsStorageFailure(err error) bool {
	var sErr *StorageError
	return errors.As(err, &sErr)
}
