// Package errorx attaches registered business codes to errors. A code maps
// to an HTTP status and a public message; handlers render coded errors
// without leaking the wrapped cause.
package errorx

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
)

// Coder describes one registered error code.
type Coder interface {
	HTTPStatus() int
	// String is the message shown to API clients.
	String() string
	Reference() string
	Code() int
}

// UnknownCode is reported for errors carrying no registered code.
const UnknownCode = 1

type defaultCoder struct {
	code int
	http int
	ext  string
	ref  string
}

func (c defaultCoder) Code() int { return c.code }

func (c defaultCoder) String() string { return c.ext }

func (c defaultCoder) Reference() string { return c.ref }

func (c defaultCoder) HTTPStatus() int {
	if c.http == 0 {
		return http.StatusInternalServerError
	}
	return c.http
}

var unknownCoder = defaultCoder{code: UnknownCode, http: http.StatusInternalServerError, ext: "An internal server error occurred"}

var (
	codes   = map[int]Coder{}
	codeMux sync.RWMutex
)

// Register adds or replaces a coder. Code 1 is reserved.
func Register(c Coder) error {
	if c.Code() == UnknownCode {
		return fmt.Errorf("code %d is reserved as the unknown code", UnknownCode)
	}
	codeMux.Lock()
	defer codeMux.Unlock()
	codes[c.Code()] = c
	return nil
}

// MustRegister adds a coder and panics when the code is already taken.
func MustRegister(c Coder) {
	if c.Code() == UnknownCode {
		panic(fmt.Sprintf("code %d is reserved as the unknown code", UnknownCode))
	}
	codeMux.Lock()
	defer codeMux.Unlock()
	if _, ok := codes[c.Code()]; ok {
		panic(fmt.Sprintf("code %d already registered", c.Code()))
	}
	codes[c.Code()] = c
}

type withCode struct {
	err   error
	code  int
	cause error
}

func (w *withCode) Error() string {
	if w.cause != nil {
		return w.err.Error() + ": " + w.cause.Error()
	}
	return w.err.Error()
}

func (w *withCode) Unwrap() error { return w.cause }

// WithCode returns a new coded error.
func WithCode(code int, format string, args ...any) error {
	return &withCode{err: fmt.Errorf(format, args...), code: code}
}

// WrapC attaches a code and a message to err. A nil err stays nil.
func WrapC(err error, code int, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &withCode{err: fmt.Errorf(format, args...), code: code, cause: err}
}

// ParseCoder returns the coder of the outermost coded error in the chain,
// or the unknown coder.
func ParseCoder(err error) Coder {
	if err == nil {
		return nil
	}
	var wc *withCode
	if errors.As(err, &wc) {
		codeMux.RLock()
		defer codeMux.RUnlock()
		if c, ok := codes[wc.code]; ok {
			return c
		}
	}
	return unknownCoder
}

// IsCode reports whether any error in the chain carries code.
func IsCode(err error, code int) bool {
	for err != nil {
		var wc *withCode
		if !errors.As(err, &wc) {
			return false
		}
		if wc.code == code {
			return true
		}
		err = wc.cause
	}
	return false
}

// NewCoder builds a coder for registration.
func NewCoder(code, httpStatus int, msg string) Coder {
	return defaultCoder{code: code, http: httpStatus, ext: msg}
}
