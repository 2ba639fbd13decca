package rpc

import (
	"strings"
	"sync"

	set "gopkg.in/fatih/set.v0"
)

// anonymousServiceName is the key under which a Service registered
// without a name resolves unqualified method calls (spec.md §4.4 step 1).
const anonymousServiceName = ""

// ServiceRegistry holds registered services keyed by resolved name and
// routes a dotted method name to a (Service, unqualifiedMethod) pair by
// longest-prefix match, per spec.md §4.4. It also tracks registered
// instances by identity with a set, the way the teacher's Handler tracks
// live ServerCodecs in Handler.go/websocket.go with the same library.
type ServiceRegistry struct {
	mu       sync.RWMutex
	byName   map[string]*Service
	instances set.Interface
}

func NewServiceRegistry() *ServiceRegistry {
	return &ServiceRegistry{
		byName:    make(map[string]*Service),
		instances: set.New(set.ThreadSafe),
	}
}

// AddService rejects if the service's name is already bound or if the
// same instance is already present; otherwise registers it.
func (r *ServiceRegistry) AddService(svc *Service) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.instances.Has(svc) {
		return false
	}
	if _, exists := r.byName[svc.name]; exists {
		return false
	}
	r.byName[svc.name] = svc
	r.instances.Add(svc)
	return true
}

// RemoveService removes svc by identity; rejects unknown instances
// (including a service already removed once).
func (r *ServiceRegistry) RemoveService(svc *Service) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.instances.Has(svc) {
		return false
	}
	r.instances.Remove(svc)
	if cur, ok := r.byName[svc.name]; ok && cur == svc {
		delete(r.byName, svc.name)
	}
	return true
}

// Resolve implements spec.md §4.4's lookup algorithm: split at the last
// '.', try the prefix as a service name, and fall back progressively to
// shorter dotted prefixes so that the longest registered service name
// wins.
func (r *ServiceRegistry) Resolve(fullMethodName string) (*Service, string, Error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !strings.Contains(fullMethodName, ".") {
		if svc, ok := r.byName[anonymousServiceName]; ok {
			return svc, fullMethodName, nil
		}
		return nil, "", &methodNotFoundError{method: fullMethodName}
	}

	// Service names may themselves contain dots (e.g.
	// "service.complex.prefix.for"), so walk candidate prefixes from
	// longest to shortest until a registered service name matches.
	return r.resolveByPrefix(fullMethodName)
}

func (r *ServiceRegistry) resolveByPrefix(fullMethodName string) (*Service, string, Error) {
	prefix := fullMethodName
	for {
		dot := strings.LastIndex(prefix, ".")
		if dot < 0 {
			break
		}
		prefix = prefix[:dot]
		if svc, ok := r.byName[prefix]; ok {
			method := strings.TrimPrefix(fullMethodName, prefix+".")
			return svc, method, nil
		}
	}
	if svc, ok := r.byName[anonymousServiceName]; ok {
		return svc, fullMethodName, nil
	}
	return nil, "", &methodNotFoundError{method: fullMethodName}
}
