package policy

import (
	"testing"

	"fordefi.com/solhost/manifest"
)

const validPolicy = `-----BEGIN SOLHOST AUTHORITY POLICY-----
META
Version: 1
Spec: solhost-policy-1

Description: test

AUTHORITIES
Key: ed25519:DEPLOYER_KEY
Role: deployer

RULES
Require:
  Action: deploy
  Role: deployer
-----END SOLHOST AUTHORITY POLICY-----`

func TestParseValidPolicy(t *testing.T) {
	p, err := Parse([]byte(validPolicy))
	if err != nil {
		t.Fatalf("expected valid policy, got error: %v", err)
	}
	if len(p.Authorities) != 1 || p.Authorities[0].Key != "ed25519:DEPLOYER_KEY" {
		t.Errorf("expected authority entry for DEPLOYER_KEY, got %+v", p.Authorities)
	}
	if len(p.Rules) != 1 || p.Rules[0].Action != "deploy" {
		t.Errorf("expected rule Action=deploy, got %+v", p.Rules)
	}
}

func TestParsePolicy_Quorum(t *testing.T) {
	policyText := `-----BEGIN SOLHOST AUTHORITY POLICY-----
META
Version: 1
Spec: solhost-policy-1

AUTHORITIES
Key: ed25519:K1
Role: upgrade-authority

RULES
Require:
  Action: upgrade
  Role: upgrade-authority
  Quorum: 3
-----END SOLHOST AUTHORITY POLICY-----`

	p, err := Parse([]byte(policyText))
	if err != nil {
		t.Fatalf("expected valid policy, got error: %v", err)
	}
	if len(p.Rules) != 1 || p.Rules[0].Quorum != 3 {
		t.Fatalf("expected quorum=3, got %+v", p.Rules)
	}
}

func TestParseStrict_RequiresExplicitQuorum(t *testing.T) {
	// This policy omits Quorum; Parse() defaults it to 1, but strict parsing must reject.
	p, err := Parse([]byte(validPolicy))
	if err != nil {
		t.Fatalf("Parse(validPolicy): %v", err)
	}
	if len(p.Rules) != 1 || p.Rules[0].Quorum != 1 {
		t.Fatalf("expected default quorum=1, got %+v", p.Rules)
	}

	if _, err := ParseStrict([]byte(validPolicy)); err == nil {
		t.Fatalf("expected strict parse error")
	}
	if _, err := ParseWithMode([]byte(validPolicy), manifest.Strict); err == nil {
		t.Fatalf("expected strict parse error")
	}
}

func TestParseStrict_AllowsExplicitQuorumOne(t *testing.T) {
	policyText := `-----BEGIN SOLHOST AUTHORITY POLICY-----
META
Version: 1
Spec: solhost-policy-1

AUTHORITIES
Key: ed25519:K1
Role: deployer

RULES
Require:
  Action: deploy
  Role: deployer
  Quorum: 1
-----END SOLHOST AUTHORITY POLICY-----`

	if _, err := ParseStrict([]byte(policyText)); err != nil {
		t.Fatalf("expected strict parse ok, got %v", err)
	}
}

func TestParseInvalidPolicy_MissingPreamble(t *testing.T) {
	_, err := Parse([]byte("META\nVersion: 1\n"))
	if err == nil {
		t.Error("expected error for missing preamble")
	}
}

func TestParseInvalidPolicy_MissingMetaSpec(t *testing.T) {
	policyText := `-----BEGIN SOLHOST AUTHORITY POLICY-----
META
Version: 1

AUTHORITIES
Key: ed25519:K1
Role: deployer

RULES
Require:
  Action: deploy
  Role: deployer
-----END SOLHOST AUTHORITY POLICY-----`

	_, err := Parse([]byte(policyText))
	if err == nil {
		t.Fatalf("expected error for missing META Spec")
	}
}

func TestParsePolicy_SupersedesAllowedBy(t *testing.T) {
	policyText := `-----BEGIN SOLHOST AUTHORITY POLICY-----
META
Version: 1
Spec: solhost-policy-1

AUTHORITIES
Key: ed25519:K1
Role: deployer

RULES
Supersedes:
  Allowed-By: deployer, upgrade-authority
-----END SOLHOST AUTHORITY POLICY-----`

	p, err := Parse([]byte(policyText))
	if err != nil {
		t.Fatalf("expected valid policy, got error: %v", err)
	}
	if len(p.SupersedesAllowedBy) != 2 {
		t.Fatalf("expected 2 allowed-by roles, got %+v", p.SupersedesAllowedBy)
	}
}

func TestParseInvalidPolicy_RequireUnknownField(t *testing.T) {
	policyText := `-----BEGIN SOLHOST AUTHORITY POLICY-----
META
Version: 1
Spec: solhost-policy-1

AUTHORITIES
Key: ed25519:K1
Role: deployer

RULES
Require:
  Action: deploy
  Role: deployer
  Nope: 1
-----END SOLHOST AUTHORITY POLICY-----`

	if _, err := Parse([]byte(policyText)); err == nil {
		t.Fatalf("expected error")
	}
}

func TestParseInvalidPolicy_InvalidQuorum(t *testing.T) {
	policyText := `-----BEGIN SOLHOST AUTHORITY POLICY-----
META
Version: 1
Spec: solhost-policy-1

AUTHORITIES
Key: ed25519:K1
Role: deployer

RULES
Require:
  Action: deploy
  Role: deployer
  Quorum: 0
-----END SOLHOST AUTHORITY POLICY-----`

	if _, err := Parse([]byte(policyText)); err == nil {
		t.Fatalf("expected error")
	}
}

func TestParseStrict_RejectsAnyRequireMissingQuorum(t *testing.T) {
	// First Require omits Quorum (permissive defaults to 1), second includes it.
	// Strict should reject because *any* Require block missing Quorum violates "no defaults".
	policyText := `-----BEGIN SOLHOST AUTHORITY POLICY-----
META
Version: 1
Spec: solhost-policy-1

AUTHORITIES
Key: ed25519:K1
Role: deployer

RULES
Require:
  Action: deploy
  Role: deployer

Require:
  Action: upgrade
  Role: deployer
  Quorum: 1
-----END SOLHOST AUTHORITY POLICY-----`

	if _, err := Parse([]byte(policyText)); err != nil {
		t.Fatalf("expected permissive Parse ok, got %v", err)
	}
	if _, err := ParseStrict([]byte(policyText)); err == nil {
		t.Fatalf("expected strict parse error")
	}
}
