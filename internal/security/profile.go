// Package security defines the host-function allow-lists and capability
// flags an agent module is loaded under, per the two profiles the runtime
// recognizes: strict and relaxed.
package security

import "github.com/caxton-rt/caxton/internal/domain"

// ProfileName selects one of the two canonical profiles.
type ProfileName string

const (
	ProfileStrict  ProfileName = "strict"
	ProfileRelaxed ProfileName = "relaxed"
)

// Profile is the full set of constraints a loaded module must satisfy.
type Profile struct {
	Name                ProfileName
	AllowedImports      map[string]struct{}
	MaxImportFunctions  domain.MaxImportFunctions
	AllowThreads        bool
	AllowNetworking     bool
	RequireFuelMetering bool
}

// Strict returns the minimal host-function surface: identity, the clock,
// and logging. No messaging, no networking, no threads.
func Strict() Profile {
	max, _ := domain.NewMaxImportFunctions(domain.DefaultMaxImportFunctions)
	return Profile{
		Name: ProfileStrict,
		AllowedImports: set(
			"agent_get_id",
			"agent_get_timestamp",
			"agent_log",
		),
		MaxImportFunctions:  max,
		AllowThreads:        false,
		AllowNetworking:     false,
		RequireFuelMetering: true,
	}
}

// Relaxed extends Strict with inter-agent messaging and, when the caller
// opts in, networking.
func Relaxed(allowNetworking bool) Profile {
	max, _ := domain.NewMaxImportFunctions(domain.DefaultMaxImportFunctions)
	allowed := set(
		"agent_get_id",
		"agent_get_timestamp",
		"agent_log",
		"agent_message_send",
		"agent_message_receive",
	)
	if allowNetworking {
		allowed["agent_net_connect"] = struct{}{}
		allowed["agent_net_send"] = struct{}{}
		allowed["agent_net_recv"] = struct{}{}
	}
	return Profile{
		Name:                ProfileRelaxed,
		AllowedImports:      allowed,
		MaxImportFunctions:  max,
		AllowThreads:        false,
		AllowNetworking:     allowNetworking,
		RequireFuelMetering: true,
	}
}

func set(names ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(names))
	for _, n := range names {
		m[n] = struct{}{}
	}
	return m
}

// ForName resolves a configured profile name to its Profile value.
func ForName(name ProfileName) (Profile, error) {
	switch name {
	case ProfileStrict:
		return Strict(), nil
	case ProfileRelaxed:
		return Relaxed(false), nil
	default:
		return Profile{}, domain.ErrInvalidConfigValue
	}
}

// ValidateImports checks a module's declared host-function imports
// against the profile's allow-list and import-count cap. A disallowed
// import or an over-count import list causes load-time rejection, per
// the runtime's external agent-module contract.
func (p Profile) ValidateImports(imports []string) error {
	if len(imports) > p.MaxImportFunctions.Value() {
		return domain.ErrInvalidConfigValue
	}
	for _, imp := range imports {
		if _, ok := p.AllowedImports[imp]; !ok {
			return &DisallowedImportError{Import: imp, Profile: p.Name}
		}
	}
	return nil
}

// DisallowedImportError reports a module import outside its profile's
// allow-list.
type DisallowedImportError struct {
	Import  string
	Profile ProfileName
}

func (e *DisallowedImportError) Error() string {
	return "host function " + e.Import + " not permitted under profile " + string(e.Profile)
}
