package rpc

import (
	"context"
	"testing"
)

func noopHandler(result Value) HandlerFunc {
	return func(ctx context.Context, args []Value) (Value, map[string]Value, Error) {
		return result, nil, nil
	}
}

func TestDispatchNoParamMethod(t *testing.T) {
	reg := NewServiceRegistry()
	svc := NewService(anonymousServiceName)
	svc.AddHandler(NewHandler("ping", nil, TString, noopHandler(String("pong"))))
	reg.AddService(svc)

	d := NewDispatcher(reg)
	req := CreateRequest("ping")
	resp, pending := d.Dispatch(context.Background(), req)
	if pending {
		t.Fatal("did not expect a pending response")
	}
	if resp.Type() != TypeResponse || resp.Result().StringValue() != "pong" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestDispatchOverloadResolutionByType(t *testing.T) {
	reg := NewServiceRegistry()
	svc := NewService(anonymousServiceName)
	svc.AddHandler(NewHandler("overloadedMethod", []ParamSpec{{Name: "value", Type: TInt}}, TBool, noopHandler(Bool(true))))
	svc.AddHandler(NewHandler("overloadedMethod", []ParamSpec{{Name: "value", Type: TString}}, TBool, noopHandler(Bool(false))))
	reg.AddService(svc)

	d := NewDispatcher(reg)

	intResp, _ := d.Dispatch(context.Background(), CreateRequest("overloadedMethod", 10))
	if !intResp.Result().BoolValue() {
		t.Errorf("overloadedMethod(10) should resolve to the int overload and return true")
	}

	strResp, _ := d.Dispatch(context.Background(), CreateRequest("overloadedMethod", "single"))
	if strResp.Result().BoolValue() {
		t.Errorf("overloadedMethod(\"single\") should resolve to the string overload and return false")
	}

	objResp, _ := d.Dispatch(context.Background(), CreateRequest("overloadedMethod", map[string]interface{}{"a": 1}))
	if objResp.Type() != TypeError || objResp.ErrorCode() != CodeInvalidParams {
		t.Errorf("overloadedMethod({...}) should be InvalidParams, got %+v", objResp)
	}
}

func TestDispatchMethodNotFound(t *testing.T) {
	reg := NewServiceRegistry()
	reg.AddService(NewService(anonymousServiceName))
	d := NewDispatcher(reg)

	resp, _ := d.Dispatch(context.Background(), CreateRequest("missing"))
	if resp.Type() != TypeError || resp.ErrorCode() != CodeMethodNotFound {
		t.Errorf("expected MethodNotFound, got %+v", resp)
	}
}

func TestDispatchArrayParamsAgainstZeroArityIsInvalidParams(t *testing.T) {
	reg := NewServiceRegistry()
	svc := NewService(anonymousServiceName)
	svc.AddHandler(NewHandler("noargs", nil, TBool, noopHandler(Bool(true))))
	reg.AddService(svc)
	d := NewDispatcher(reg)

	resp, _ := d.Dispatch(context.Background(), CreateRequest("noargs", 1, 2))
	if resp.Type() != TypeError || resp.ErrorCode() != CodeInvalidParams {
		t.Errorf("expected InvalidParams, got %+v", resp)
	}
}

func TestDispatchDefaultParameters(t *testing.T) {
	reg := NewServiceRegistry()
	svc := NewService(anonymousServiceName)
	svc.AddHandler(NewHandler("testMethod2", []ParamSpec{
		{Name: "name", Type: TString, HasDefault: true, Default: String("")},
		{Name: "year", Type: TInt, HasDefault: true, Default: Int(2012)},
	}, TString, func(ctx context.Context, args []Value) (Value, map[string]Value, Error) {
		return String(args[0].StringValue()), nil, nil
	}))
	reg.AddService(svc)
	d := NewDispatcher(reg)

	resp, _ := d.Dispatch(context.Background(), CreateRequest("testMethod2"))
	if resp.Result().StringValue() != "" {
		t.Errorf("expected default name, got %+v", resp)
	}
}

// outputParameter(in1, in2, out) treats out as an in/out slot: its
// caller-supplied value (or 0 if omitted) is added to in1+in2. Object-form
// calls against this void handler observe the sum only through the "out"
// field of the assembled result object; array-form calls observe it as the
// handler's own return value instead, per spec.md §4.5.
func outputParameterService() *Service {
	svc := NewService(anonymousServiceName)
	svc.AddHandler(NewVoidHandler("outputParameter", []ParamSpec{
		{Name: "in1", Type: TInt},
		{Name: "in2", Type: TInt},
		{Name: "out", Type: TInt, Mode: ModeInOut, HasDefault: true, Default: Int(0)},
	}, func(ctx context.Context, args []Value) (Value, map[string]Value, Error) {
		sum := args[0].IntValue() + args[1].IntValue() + args[2].IntValue()
		return Int(sum), map[string]Value{"out": Int(sum)}, nil
	}))
	return svc
}

func TestDispatchOutputParameterArrayForm(t *testing.T) {
	reg := NewServiceRegistry()
	reg.AddService(outputParameterService())
	d := NewDispatcher(reg)

	resp, _ := d.Dispatch(context.Background(), CreateRequest("outputParameter", 1, 0, 2))
	if resp.Result().IntValue() != 3 {
		t.Errorf("expected a bare scalar result of 3, got %+v", resp.Result())
	}
}

func TestDispatchOutputParameterObjectFormDefaultsOut(t *testing.T) {
	reg := NewServiceRegistry()
	reg.AddService(outputParameterService())
	d := NewDispatcher(reg)

	resp, _ := d.Dispatch(context.Background(), CreateRequest("outputParameter", map[string]interface{}{"in1": 1, "in2": 3}))
	if resp.Result().ObjectValue()["out"].IntValue() != 4 {
		t.Errorf("expected out=4, got %+v", resp.Result())
	}
}

func TestDispatchOutputParameterObjectFormExplicitOut(t *testing.T) {
	reg := NewServiceRegistry()
	reg.AddService(outputParameterService())
	d := NewDispatcher(reg)

	resp, _ := d.Dispatch(context.Background(), CreateRequest("outputParameter", map[string]interface{}{"in1": 1, "in2": 3, "out": 2}))
	if resp.Result().ObjectValue()["out"].IntValue() != 6 {
		t.Errorf("expected out=6, got %+v", resp.Result())
	}
}

func TestDispatchRecoversFromPanic(t *testing.T) {
	reg := NewServiceRegistry()
	svc := NewService(anonymousServiceName)
	svc.AddHandler(NewHandler("boom", nil, TBool, func(ctx context.Context, args []Value) (Value, map[string]Value, Error) {
		panic("kaboom")
	}))
	reg.AddService(svc)
	d := NewDispatcher(reg)

	resp, pending := d.Dispatch(context.Background(), CreateRequest("boom"))
	if pending {
		t.Fatal("a panicking handler must not be treated as pending")
	}
	if resp.Type() != TypeError || resp.ErrorCode() != CodeInternalError {
		t.Errorf("expected InternalError after panic, got %+v", resp)
	}
}
