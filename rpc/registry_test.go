package rpc

import "testing"

func TestRegistryResolvesDottedLongestPrefix(t *testing.T) {
	reg := NewServiceRegistry()
	svc := NewService("service.complex.prefix.for")
	reg.AddService(svc)

	resolved, method, err := reg.Resolve("service.complex.prefix.for.testMethod")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if resolved != svc {
		t.Errorf("expected resolved service to be svc")
	}
	if method != "testMethod" {
		t.Errorf("expected method testMethod, got %q", method)
	}
}

func TestRegistryUnqualifiedMethodUsesAnonymousService(t *testing.T) {
	reg := NewServiceRegistry()
	svc := NewService(anonymousServiceName)
	reg.AddService(svc)

	resolved, method, err := reg.Resolve("ping")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if resolved != svc || method != "ping" {
		t.Errorf("expected anonymous service and method ping, got %v %q", resolved, method)
	}
}

func TestRegistryUnknownMethodIsMethodNotFound(t *testing.T) {
	reg := NewServiceRegistry()
	_, _, err := reg.Resolve("nothing.here")
	if err == nil {
		t.Fatal("expected an error")
	}
	if err.ErrorCode() != CodeMethodNotFound {
		t.Errorf("expected MethodNotFound, got code %d", err.ErrorCode())
	}
}

func TestRegistryAddServiceRejectsDuplicateName(t *testing.T) {
	reg := NewServiceRegistry()
	a := NewService("dup")
	b := NewService("dup")

	if !reg.AddService(a) {
		t.Fatal("expected first AddService to succeed")
	}
	if reg.AddService(b) {
		t.Fatal("expected second AddService with the same name to fail")
	}
}

func TestRegistryRemoveServiceTwiceFails(t *testing.T) {
	reg := NewServiceRegistry()
	svc := NewService("once")
	reg.AddService(svc)

	if !reg.RemoveService(svc) {
		t.Fatal("expected first RemoveService to succeed")
	}
	if reg.RemoveService(svc) {
		t.Fatal("expected second RemoveService to fail")
	}
}
