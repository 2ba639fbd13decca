package rpc

import (
	"context"
	"fmt"
	"strings"
)

// ParamType is a handler parameter's declared semantic type, used by the
// Dispatcher's coercion and ranking rules (spec.md §4.5).
type ParamType int

const (
	TBool ParamType = iota
	TInt
	TFloat
	TString
	TArray     // ordered-sequence-of-ElemType
	TObject    // mapping-string-to-variant
	TStringMap // structured object of string->string; rejects non-string values
	TVariant   // permissive catch-all, accepts any JSON value as-is
)

func (t ParamType) String() string {
	switch t {
	case TBool:
		return "bool"
	case TInt:
		return "int"
	case TFloat:
		return "float"
	case TString:
		return "string"
	case TArray:
		return "array"
	case TObject:
		return "object"
	case TStringMap:
		return "stringmap"
	case TVariant:
		return "variant"
	default:
		return "unknown"
	}
}

// ParamMode distinguishes pure-input, pure-output and in/out parameters
// (spec.md §4.5 "Output and in/out parameters").
type ParamMode int

const (
	ModeIn ParamMode = iota
	ModeOut
	ModeInOut
)

// ParamSpec describes one formal parameter of a Handler.
type ParamSpec struct {
	Name       string
	Type       ParamType
	ElemType   ParamType // meaningful only when Type == TArray
	Default    Value
	HasDefault bool
	Mode       ParamMode
}

func (p ParamSpec) isOutputOnly() bool { return p.Mode == ModeOut }
func (p ParamSpec) isRequired() bool {
	return !p.HasDefault && p.Mode != ModeOut
}

// HandlerFunc is the invocation thunk bound to a Handler. ctx carries the
// request's context; args holds one coerced Value per ParamSpec, in
// declaration order (output-only slots get a type-appropriate zero
// Value when not present on the wire). outputs is the bag of
// output/in-out parameter values the dispatcher should gather after the
// call into the result object when the Handler itself returns nothing
// (spec.md §4.5).
type HandlerFunc func(ctx context.Context, args []Value) (result Value, outputs map[string]Value, err Error)

// ErrAsync, when returned as the sentinel error from a HandlerFunc, tells
// the Dispatcher the response will arrive later via the Socket's
// delayed-response path rather than synchronously (spec.md §4.5
// "Invocation").
var ErrAsync = NewError(0, "__async_pending__")

// Handler is one invocable bound to an unqualified method name within a
// Service; multiple Handlers sharing a name are overloads (spec.md §3).
type Handler struct {
	Name       string
	Params     []ParamSpec
	MinArity   int
	MaxArity   int
	HasResult  bool
	ResultType ParamType
	Invoke     HandlerFunc
}

func newHandler(name string, params []ParamSpec, hasResult bool, resultType ParamType, fn HandlerFunc) *Handler {
	min, max := 0, len(params)
	for _, p := range params {
		if p.isRequired() {
			min++
		}
	}
	return &Handler{
		Name:       name,
		Params:     params,
		MinArity:   min,
		MaxArity:   max,
		HasResult:  hasResult,
		ResultType: resultType,
		Invoke:     fn,
	}
}

// NewHandler builds a Handler with a return value.
func NewHandler(name string, params []ParamSpec, resultType ParamType, fn HandlerFunc) *Handler {
	return newHandler(name, params, true, resultType, fn)
}

// NewVoidHandler builds a Handler whose return is "void" (spec.md §4.5);
// it may still carry output/in-out parameters.
func NewVoidHandler(name string, params []ParamSpec, fn HandlerFunc) *Handler {
	return newHandler(name, params, false, TVariant, fn)
}

func (h *Handler) outputNames() []string {
	var names []string
	for _, p := range h.Params {
		if p.Mode == ModeOut || p.Mode == ModeInOut {
			names = append(names, p.Name)
		}
	}
	return names
}

// Service is a named collection of Handlers, keyed by unqualified method
// name with each entry holding the overload set for that name (spec.md
// §3).
type Service struct {
	name     string
	handlers map[string][]*Handler
}

// NewService declares a Service with an explicit name. Dotted names
// (e.g. "service.complex.prefix.for") are legal and are matched by
// longest-prefix resolution in the ServiceRegistry (spec.md §4.4/§6).
func NewService(name string) *Service {
	return &Service{name: name, handlers: make(map[string][]*Handler)}
}

// NewServiceFromType derives a Service name from a type identifier the
// way spec.md §6 describes when no explicit name is given: lowercase the
// identifier and strip a leading namespace prefix up to and including
// the last '.'.
func NewServiceFromType(typeIdentifier string) *Service {
	name := typeIdentifier
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		name = name[idx+1:]
	}
	return NewService(strings.ToLower(name))
}

func (s *Service) Name() string { return s.name }

// AddHandler registers h as an overload of its own name within s.
func (s *Service) AddHandler(h *Handler) {
	s.handlers[h.Name] = append(s.handlers[h.Name], h)
}

// Overloads returns the candidate set registered under name, in
// registration order (the dispatcher's tie-breaker of last resort,
// spec.md §4.5 "Ranking").
func (s *Service) Overloads(name string) []*Handler {
	return s.handlers[name]
}

func (s *Service) String() string {
	return fmt.Sprintf("Service(%s, %d methods)", s.name, len(s.handlers))
}
