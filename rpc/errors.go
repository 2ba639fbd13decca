package rpc

import "fmt"

// Error is the closed classification of every failure the engine can
// surface on the wire, mirroring the teacher's rpc.Error interface in
// types.go. No bare error ever reaches a client: the dispatcher and
// codec always convert to one of the concrete types below (spec.md §7).
type Error interface {
	error
	ErrorCode() int
}

// JSON-RPC 2.0 reserved codes plus the library's TimeoutError extension
// (spec.md §6).
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeTimeoutError   = -32000
)

type parseError struct{ msg string }

func (e *parseError) Error() string { return fmt.Sprintf("parse error: %s", e.msg) }
func (e *parseError) ErrorCode() int { return CodeParseError }

type invalidRequestError struct{ msg string }

func (e *invalidRequestError) Error() string  { return fmt.Sprintf("invalid request: %s", e.msg) }
func (e *invalidRequestError) ErrorCode() int { return CodeInvalidRequest }

type methodNotFoundError struct{ service, method string }

func (e *methodNotFoundError) Error() string {
	if e.service == "" {
		return fmt.Sprintf("the method %s does not exist", e.method)
	}
	return fmt.Sprintf("the method %s.%s does not exist", e.service, e.method)
}
func (e *methodNotFoundError) ErrorCode() int { return CodeMethodNotFound }

type invalidParamsError struct{ msg string }

func (e *invalidParamsError) Error() string  { return e.msg }
func (e *invalidParamsError) ErrorCode() int { return CodeInvalidParams }

type internalError struct{ msg string }

func (e *internalError) Error() string  { return e.msg }
func (e *internalError) ErrorCode() int { return CodeInternalError }

type timeoutError struct{ msg string }

func (e *timeoutError) Error() string  { return e.msg }
func (e *timeoutError) ErrorCode() int { return CodeTimeoutError }

// genericError wraps an arbitrary code/message pair, used when
// CreateErrorResponse is called directly with a caller-supplied code
// (e.g. from a handler's own Error return).
type genericError struct {
	code int
	msg  string
}

func (e *genericError) Error() string  { return e.msg }
func (e *genericError) ErrorCode() int { return e.code }

// NewError builds an Error carrying an arbitrary code, for handlers that
// want to report a domain-specific failure through CreateErrorResponse.
func NewError(code int, message string) Error {
	return &genericError{code: code, msg: message}
}
