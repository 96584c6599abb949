// Package policy implements parsing and evaluation for authority policies.
//
// An authority policy names the keys allowed to deploy and upgrade programs
// and the quorum each action requires. The format is an armored text document
// with META, AUTHORITIES, and RULES sections.
package policy

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"fordefi.com/solhost/manifest"
)

const (
	Preamble  = "-----BEGIN SOLHOST AUTHORITY POLICY-----"
	Postamble = "-----END SOLHOST AUTHORITY POLICY-----"

	// SpecID identifies this policy format revision.
	SpecID = "solhost-policy-1"
)

type Policy struct {
	Meta        map[string]string
	Authorities []AuthorityEntry
	Rules       []Rule

	// SupersedesAllowedBy lists roles permitted to publish superseding
	// manifests. Empty means supersession is not role-restricted.
	SupersedesAllowedBy []string
}

type AuthorityEntry struct {
	Key  string
	Role string
}

type Rule struct {
	// Action names the governed operation (e.g. "deploy", "upgrade").
	Action string
	Role   string
	Quorum int

	// quorumExplicit records whether Quorum appeared in the source text.
	// Strict parsing rejects implicit quorums.
	quorumExplicit bool
}

// Parse parses a policy from bytes with permissive defaults:
// a Require block without Quorum defaults to 1.
func Parse(data []byte) (*Policy, error) {
	return parse(data, manifest.Permissive)
}

// ParseStrict parses a policy rejecting all implicit defaults:
// every Require block must carry an explicit Quorum.
func ParseStrict(data []byte) (*Policy, error) {
	return parse(data, manifest.Strict)
}

// ParseWithMode parses a policy under the given verification mode.
func ParseWithMode(data []byte, mode manifest.Mode) (*Policy, error) {
	return parse(data, mode)
}

func parse(data []byte, mode manifest.Mode) (*Policy, error) {
	if bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}) {
		return nil, errors.New("BOM not allowed")
	}
	if bytes.Contains(data, []byte("\r")) {
		return nil, errors.New("CR line endings not allowed")
	}
	for _, line := range bytes.Split(data, []byte("\n")) {
		if len(line) > 0 && (line[len(line)-1] == ' ' || line[len(line)-1] == '\t') {
			return nil, errors.New("trailing whitespace forbidden")
		}
	}

	if !bytes.HasPrefix(data, []byte(Preamble)) {
		return nil, errors.New("missing policy preamble")
	}
	if !bytes.HasSuffix(bytes.TrimSpace(data), []byte(Postamble)) {
		return nil, errors.New("missing policy postamble")
	}

	sections := map[string]bool{"META": true, "AUTHORITIES": true, "RULES": true}
	reader := bufio.NewReader(bytes.NewReader(data))
	var currSection string
	meta := make(map[string]string)
	var authorities []AuthorityEntry
	var rules []Rule
	var supersedesAllowedBy []string

	for {
		line, err := reader.ReadString('\n')
		if err != nil && err.Error() != "EOF" {
			return nil, err
		}
		line = strings.TrimSpace(line)
		if sections[line] {
			currSection = line
			continue
		}
		if currSection == "META" && strings.Contains(line, ": ") {
			kv := strings.SplitN(line, ": ", 2)
			meta[kv[0]] = kv[1]
		}
		if currSection == "AUTHORITIES" && strings.HasPrefix(line, "Key: ") {
			key := strings.TrimPrefix(line, "Key: ")
			roleLine, _ := reader.ReadString('\n')
			roleLine = strings.TrimSpace(roleLine)
			if !strings.HasPrefix(roleLine, "Role: ") {
				return nil, errors.New("expected Role after Key")
			}
			role := strings.TrimPrefix(roleLine, "Role: ")
			authorities = append(authorities, AuthorityEntry{Key: key, Role: role})
		}
		if currSection == "RULES" && strings.HasPrefix(line, "Require:") {
			r := Rule{Quorum: 1}
			for {
				l, _ := reader.ReadString('\n')
				l = strings.TrimSpace(l)
				if l == "" || strings.HasSuffix(l, ":") || l == Postamble {
					break
				}
				switch {
				case strings.HasPrefix(l, "Action: "):
					r.Action = strings.TrimPrefix(l, "Action: ")
				case strings.HasPrefix(l, "Role: "):
					r.Role = strings.TrimPrefix(l, "Role: ")
				case strings.HasPrefix(l, "Quorum: "):
					qStr := strings.TrimPrefix(l, "Quorum: ")
					q, qErr := strconv.Atoi(qStr)
					if qErr != nil || q < 1 {
						return nil, errors.New("invalid Quorum")
					}
					r.Quorum = q
					r.quorumExplicit = true
				default:
					return nil, fmt.Errorf("unknown Require field: %q", l)
				}
			}
			if r.Action == "" || r.Role == "" {
				return nil, errors.New("Require block missing Action or Role")
			}
			rules = append(rules, r)
		}
		if currSection == "RULES" && strings.HasPrefix(line, "Supersedes:") {
			l, _ := reader.ReadString('\n')
			l = strings.TrimSpace(l)
			if !strings.HasPrefix(l, "Allowed-By: ") {
				return nil, errors.New("Supersedes block missing Allowed-By")
			}
			for _, role := range strings.Split(strings.TrimPrefix(l, "Allowed-By: "), ",") {
				role = strings.TrimSpace(role)
				if role == "" {
					return nil, errors.New("empty Allowed-By role")
				}
				supersedesAllowedBy = append(supersedesAllowedBy, role)
			}
		}
		if err != nil {
			break
		}
	}

	if meta["Spec"] != SpecID {
		return nil, fmt.Errorf("META: missing or unsupported Spec (want %q)", SpecID)
	}
	if meta["Version"] == "" {
		return nil, errors.New("META: missing Version")
	}

	if mode == manifest.Strict {
		for _, r := range rules {
			if !r.quorumExplicit {
				return nil, fmt.Errorf("strict mode: Require %s/%s missing explicit Quorum", r.Action, r.Role)
			}
		}
	}

	return &Policy{
		Meta:                meta,
		Authorities:         authorities,
		Rules:               rules,
		SupersedesAllowedBy: supersedesAllowedBy,
	}, nil
}
