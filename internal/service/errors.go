package service

import (
	"errors"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// ValidationError is a rejected input field. Integrity refusals such as
// deleting a category that is still in use are reported the same way.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// IsValidation reports whether err carries at least one ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ValidationErrors flattens err into its field errors.
func ValidationErrors(err error) []*ValidationError {
	var merr *multierror.Error
	if errors.As(err, &merr) {
		out := make([]*ValidationError, 0, len(merr.Errors))
		for _, e := range merr.Errors {
			var ve *ValidationError
			if errors.As(e, &ve) {
				out = append(out, ve)
			}
		}
		return out
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return []*ValidationError{ve}
	}
	return nil
}

type fieldErrors struct {
	merr *multierror.Error
}

func (f *fieldErrors) add(field, message string) {
	f.merr = multierror.Append(f.merr, invalid(field, message))
}

func (f *fieldErrors) addErr(err error) {
	f.merr = multierror.Append(f.merr, err)
}

// err returns nil when nothing was added.
func (f *fieldErrors) err() error {
	if f.merr == nil {
		return nil
	}
	f.merr.ErrorFormat = joinMessages
	return f.merr.ErrorOrNil()
}

func joinMessages(errs []error) string {
	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}
