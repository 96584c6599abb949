package policy

import (
	"fmt"
)

// RolesFor returns the roles the policy grants to a key, in declaration order.
func (p *Policy) RolesFor(key string) []string {
	var roles []string
	for _, a := range p.Authorities {
		if a.Key == key {
			roles = append(roles, a.Role)
		}
	}
	return roles
}

// Authorize checks whether the given signer keys satisfy every rule governing
// the action.
//
// A rule is satisfied when at least Quorum distinct keys holding the rule's
// role are present among the signers. Unknown keys carry no roles. Actions
// with no governing rule are denied: policies are fail-closed.
func (p *Policy) Authorize(action string, signerKeys ...string) error {
	var matched bool
	for _, r := range p.Rules {
		if r.Action != action {
			continue
		}
		matched = true

		distinct := make(map[string]bool)
		for _, key := range signerKeys {
			if distinct[key] {
				continue
			}
			for _, role := range p.RolesFor(key) {
				if role == r.Role {
					distinct[key] = true
					break
				}
			}
		}
		if len(distinct) < r.Quorum {
			return fmt.Errorf("policy: action %q requires %d signer(s) with role %q, got %d", action, r.Quorum, r.Role, len(distinct))
		}
	}
	if !matched {
		return fmt.Errorf("policy: no rule governs action %q", action)
	}
	return nil
}

// AuthorizeSupersession checks whether a signer may publish a superseding
// manifest. When the policy carries no Supersedes block, any authority key
// is accepted.
func (p *Policy) AuthorizeSupersession(signerKey string) error {
	roles := p.RolesFor(signerKey)
	if len(roles) == 0 {
		return fmt.Errorf("policy: key %q holds no roles", signerKey)
	}
	if len(p.SupersedesAllowedBy) == 0 {
		return nil
	}
	for _, have := range roles {
		for _, want := range p.SupersedesAllowedBy {
			if have == want {
				return nil
			}
		}
	}
	return fmt.Errorf("policy: key %q not allowed to supersede (roles %v)", signerKey, roles)
}
