package rpc

import (
	"context"
)

// Dispatcher decodes params, coerces them to a Handler's declared
// parameter types, picks the best overload, invokes it, and encodes the
// result (or failure) as a Message, per spec.md §4.5.
type Dispatcher struct {
	registry *ServiceRegistry
}

func NewDispatcher(registry *ServiceRegistry) *Dispatcher {
	return &Dispatcher{registry: registry}
}

// Dispatch resolves req.Method() against the registry and returns the
// Response/Error Message to send back, or (zero, true) when the handler
// opted into a delayed response and the caller should not reply yet.
func (d *Dispatcher) Dispatch(ctx context.Context, req Message) (Message, bool) {
	svc, method, rerr := d.registry.Resolve(req.Method())
	if rerr != nil {
		return CreateErrorResponse(req, rerr.ErrorCode(), rerr.Error()), false
	}

	candidates := svc.Overloads(method)
	if len(candidates) == 0 {
		nf := &methodNotFoundError{service: svc.Name(), method: method}
		return CreateErrorResponse(req, nf.ErrorCode(), nf.Error()), false
	}

	params := req.Params()
	objectForm := params.Kind() == KindObject
	var bound *boundCall
	var bindErr Error
	if objectForm {
		bound, bindErr = bindObjectForm(candidates, params)
	} else {
		bound, bindErr = bindArrayForm(candidates, params.AsArray())
	}
	if bindErr != nil {
		return CreateErrorResponse(req, bindErr.ErrorCode(), bindErr.Error()), false
	}

	result, outputs, invokeErr := invokeSafely(bound.handler, ctx, bound.args)
	if invokeErr == ErrAsync {
		// The handler will submit its own createResponse asynchronously;
		// the caller must not write a reply now.
		return Message{}, true
	}
	if invokeErr != nil {
		if invokeErr.ErrorCode() != 0 {
			return CreateErrorResponse(req, invokeErr.ErrorCode(), invokeErr.Error()), false
		}
		ie := &internalError{msg: invokeErr.Error()}
		return CreateErrorResponse(req, ie.ErrorCode(), ie.Error()), false
	}

	// Output/in-out parameters are only gathered into a result object for
	// object-form calls against a void handler (spec.md §4.5). Array-form
	// calls always surface the handler's own return value; its output
	// parameters are not separately observable there. The object is keyed
	// strictly by the handler's declared output/in-out parameter names,
	// not by whatever keys the HandlerFunc happened to populate.
	if objectForm && !bound.handler.HasResult && len(outputs) > 0 {
		names := bound.handler.outputNames()
		obj := make(map[string]Value, len(names))
		for _, name := range names {
			if v, ok := outputs[name]; ok {
				obj[name] = v
			}
		}
		return CreateResponse(req, Object(obj)), false
	}
	return CreateResponse(req, result), false
}

// invokeSafely calls the handler and converts a panic into an
// InternalError, the way spec.md §7 requires: the dispatcher never
// propagates a handler exception to the transport.
func invokeSafely(h *Handler, ctx context.Context, args []Value) (result Value, outputs map[string]Value, err Error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &internalError{msg: formatPanic(rec)}
		}
	}()
	return h.Invoke(ctx, args)
}

func formatPanic(rec interface{}) string {
	if e, ok := rec.(error); ok {
		return e.Error()
	}
	return "handler panicked"
}

// boundCall is a fully bound invocation: a chosen overload plus its
// coerced argument list, ready to call.
type boundCall struct {
	handler *Handler
	args    []Value
	exact   int // count of exact-type matches, used for ranking
	defaults int // count of defaulted parameters, used for ranking
}

// bindArrayForm implements the array-params half of spec.md §4.5
// "Argument binding" + "Ranking".
func bindArrayForm(candidates []*Handler, params []Value) (*boundCall, Error) {
	var best *boundCall
	for _, h := range candidates {
		if len(params) < h.MinArity || len(params) > h.MaxArity {
			continue
		}
		args := make([]Value, len(h.Params))
		exact := 0
		defaults := 0
		ok := true
		for i, p := range h.Params {
			if i < len(params) {
				coerced, isExact, coerceOK := coerce(params[i], p.Type, p.ElemType)
				if !coerceOK {
					ok = false
					break
				}
				args[i] = coerced
				if isExact {
					exact++
				}
			} else if p.HasDefault {
				args[i] = p.Default
				defaults++
			} else if p.isOutputOnly() {
				args[i] = zeroValue(p.Type)
			} else {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		cand := &boundCall{handler: h, args: args, exact: exact, defaults: defaults}
		best = pickBetter(best, cand)
	}
	if best == nil {
		return nil, &invalidParamsError{msg: "invalid argument count or type"}
	}
	return best, nil
}

// bindObjectForm implements the object-params half of spec.md §4.5.
func bindObjectForm(candidates []*Handler, params Value) (*boundCall, Error) {
	obj := params.ObjectValue()
	var best *boundCall
	for _, h := range candidates {
		nameFeasible := true
		for _, p := range h.Params {
			if p.isRequired() {
				if _, present := obj[p.Name]; !present {
					nameFeasible = false
					break
				}
			}
		}
		if !nameFeasible {
			continue
		}

		args := make([]Value, len(h.Params))
		exact := 0
		defaults := 0
		ok := true
		for i, p := range h.Params {
			v, present := obj[p.Name]
			switch {
			case present:
				coerced, isExact, coerceOK := coerce(v, p.Type, p.ElemType)
				if !coerceOK {
					ok = false
				} else {
					args[i] = coerced
					if isExact {
						exact++
					}
				}
			case p.HasDefault:
				args[i] = p.Default
				defaults++
			case p.isOutputOnly():
				args[i] = zeroValue(p.Type)
			default:
				ok = false
			}
			if !ok {
				break
			}
		}
		if !ok {
			continue
		}
		cand := &boundCall{handler: h, args: args, exact: exact, defaults: defaults}
		best = pickBetter(best, cand)
	}
	if best == nil {
		return nil, &invalidParamsError{msg: "no overload accepts the supplied named parameters"}
	}
	return best, nil
}

// pickBetter implements spec.md §4.5 "Ranking": most exact matches wins,
// ties broken by fewer defaulted parameters, remaining ties by
// registration order (i.e. the first candidate encountered wins, since
// callers iterate candidates in registration order and only replace
// `best` on a strict improvement).
func pickBetter(best, cand *boundCall) *boundCall {
	if best == nil {
		return cand
	}
	if cand.exact > best.exact {
		return cand
	}
	if cand.exact < best.exact {
		return best
	}
	if cand.defaults < best.defaults {
		return cand
	}
	return best
}

func zeroValue(t ParamType) Value {
	switch t {
	case TBool:
		return Bool(false)
	case TInt:
		return Int(0)
	case TFloat:
		return Float(0)
	case TString:
		return String("")
	case TArray:
		return Array()
	case TObject, TStringMap:
		return Object(nil)
	default:
		return Null()
	}
}

// coerce converts v to the declared parameter type t (using elemType for
// TArray), reporting whether the match was exact (no widening/conversion)
// per spec.md §4.5's coercion matrix.
func coerce(v Value, t ParamType, elemType ParamType) (Value, bool, bool) {
	switch t {
	case TBool:
		if v.Kind() == KindBool {
			return v, true, true
		}
		return Value{}, false, false

	case TInt:
		if v.Kind() == KindInt {
			return v, true, true
		}
		return Value{}, false, false

	case TFloat:
		switch v.Kind() {
		case KindFloat:
			return v, true, true
		case KindInt:
			return Float(float64(v.IntValue())), false, true
		}
		return Value{}, false, false

	case TString:
		if v.Kind() == KindString {
			return v, true, true
		}
		return Value{}, false, false

	case TArray:
		if v.Kind() != KindArray {
			return Value{}, false, false
		}
		elems := v.ArrayValue()
		coerced := make([]Value, len(elems))
		allExact := true
		for i, e := range elems {
			c, exact, ok := coerce(e, elemType, TVariant)
			if !ok {
				return Value{}, false, false
			}
			coerced[i] = c
			if !exact {
				allExact = false
			}
		}
		return Array(coerced...), allExact && elemType != TVariant, true

	case TObject:
		if v.Kind() != KindObject {
			return Value{}, false, false
		}
		return v, true, true

	case TStringMap:
		if v.Kind() != KindObject {
			return Value{}, false, false
		}
		for _, e := range v.ObjectValue() {
			if e.Kind() != KindString {
				return Value{}, false, false
			}
		}
		return v, true, true

	case TVariant:
		return v, false, true
	}
	return Value{}, false, false
}
