package translate

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// RobotType identifies a robot family in configuration, e.g. "asgard".
type RobotType string

const (
	RobotAsgard RobotType = "asgard"
	RobotSpot   RobotType = "spot"
)

// ParseRobotType normalises a configured robot type. It does not check that
// the type is registered.
func ParseRobotType(s string) RobotType {
	return RobotType(strings.ToLower(strings.TrimSpace(s)))
}

// Registry maps robot types to translator instances. It is populated at
// startup and read from the packet path, so lookups take a read lock only.
type Registry struct {
	mu          sync.RWMutex
	translators map[RobotType]Translator
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{translators: make(map[RobotType]Translator)}
}

// NewDefaultRegistry returns a registry holding one instance of every
// built-in target, all reporting to diag.
func NewDefaultRegistry(diag Diagnostics) (*Registry, error) {
	r := NewRegistry()

	asgard, err := NewAsgardTranslator(diag)
	if err != nil {
		return nil, err
	}
	spot, err := NewSpotTranslator(diag)
	if err != nil {
		return nil, err
	}

	for rt, t := range map[RobotType]Translator{
		RobotAsgard: asgard,
		RobotSpot:   spot,
	} {
		if err := r.Register(rt, t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds t under rt. Registering a type twice is an error.
func (r *Registry) Register(rt RobotType, t Translator) error {
	if rt == "" {
		return fmt.Errorf("robot type is required")
	}
	if t == nil {
		return fmt.Errorf("nil translator for robot type %q", rt)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.translators[rt]; exists {
		return fmt.Errorf("robot type %q already registered", rt)
	}
	r.translators[rt] = t
	return nil
}

// Lookup returns the translator registered for rt. An unregistered type
// returns an error wrapping ErrUnknownRobotType.
func (r *Registry) Lookup(rt RobotType) (Translator, error) {
	r.mu.RLock()
	t, ok := r.translators[rt]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w %q (known: %s)", ErrUnknownRobotType, rt, r.knownList())
	}
	return t, nil
}

// Types returns the registered robot types in sorted order.
func (r *Registry) Types() []RobotType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]RobotType, 0, len(r.translators))
	for rt := range r.translators {
		types = append(types, rt)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

func (r *Registry) knownList() string {
	types := r.Types()
	names := make([]string, len(types))
	for i, rt := range types {
		names[i] = string(rt)
	}
	return strings.Join(names, ", ")
}
