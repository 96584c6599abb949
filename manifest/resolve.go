package manifest

import (
	"errors"
	"fmt"
	"sort"
)

// Fork records two or more manifests claiming to supersede the same predecessor.
type Fork struct {
	// OnCID is the contested predecessor CID.
	OnCID string
	// CandidateCIDs are the competing successor CIDs, sorted.
	CandidateCIDs []string
}

// HeadResolution is the outcome of resolving a supersession chain.
type HeadResolution struct {
	// HeadCID is the CID of the chain head, empty when the head is ambiguous.
	HeadCID string
	// Head is the canonical bytes of the head manifest, nil when ambiguous.
	Head []byte
	// Chain lists CIDs from the oldest known manifest to the head.
	Chain []string
	// Heads lists all candidate head CIDs, sorted. Length 1 when unambiguous.
	Heads []string
	// Forks lists contested supersessions, sorted by contested CID.
	Forks []Fork
}

// ResolveHead determines the current head of a manifest supersession chain.
//
// All manifests must be canonical and bind the same Program-ID, Host-ID, and
// Cluster. A head is a manifest whose CID no other manifest supersedes. A fork
// exists when two manifests supersede the same predecessor.
//
// In Strict mode, forks and ambiguous heads are errors. In Permissive mode
// the resolution is returned with Forks and Heads populated and Head left
// empty, so callers can surface the ambiguity explicitly.
func ResolveHead(manifests [][]byte, mode Mode) (*HeadResolution, error) {
	if len(manifests) == 0 {
		return nil, errors.New("resolve: no manifests")
	}

	type entry struct {
		cid        string
		bytes      []byte
		supersedes string
	}

	byCID := make(map[string]entry, len(manifests))
	var program, hostID, cluster string
	for i, m := range manifests {
		id, err := CID(m)
		if err != nil {
			return nil, fmt.Errorf("resolve: manifest %d: %w", i, err)
		}
		if _, dup := byCID[id]; dup {
			// Identical bytes contribute nothing new.
			continue
		}

		p, err := requiredFieldFromSection(m, "PROGRAM", "Program-ID")
		if err != nil {
			return nil, err
		}
		h, err := requiredFieldFromSection(m, "META", "Host-ID")
		if err != nil {
			return nil, err
		}
		c, err := requiredFieldFromSection(m, "PROGRAM", "Cluster")
		if err != nil {
			return nil, err
		}
		if program == "" {
			program, hostID, cluster = p, h, c
		} else if p != program || h != hostID || c != cluster {
			return nil, fmt.Errorf("resolve: manifest %s does not belong to chain (program=%q host=%q cluster=%q)", id, p, h, c)
		}

		sup, _, err := SupersedesManifestCID(m)
		if err != nil {
			return nil, err
		}
		byCID[id] = entry{cid: id, bytes: m, supersedes: sup}
	}

	// successors[x] = CIDs of manifests claiming to supersede x.
	successors := make(map[string][]string)
	superseded := make(map[string]bool)
	for _, e := range byCID {
		if e.supersedes == "" {
			continue
		}
		successors[e.supersedes] = append(successors[e.supersedes], e.cid)
		superseded[e.supersedes] = true
	}

	var forks []Fork
	for on, cands := range successors {
		if len(cands) > 1 {
			sort.Strings(cands)
			forks = append(forks, Fork{OnCID: on, CandidateCIDs: cands})
		}
	}
	sort.Slice(forks, func(i, j int) bool { return forks[i].OnCID < forks[j].OnCID })

	var heads []string
	for id := range byCID {
		if !superseded[id] {
			heads = append(heads, id)
		}
	}
	sort.Strings(heads)

	res := &HeadResolution{Heads: heads, Forks: forks}

	if len(forks) > 0 || len(heads) != 1 {
		if mode == Strict {
			if len(forks) > 0 {
				return nil, fmt.Errorf("resolve: fork detected on %s", forks[0].OnCID)
			}
			return nil, fmt.Errorf("resolve: ambiguous heads (%d candidates)", len(heads))
		}
		return res, nil
	}

	// Walk back from the head, validating each supersession link whose
	// predecessor is present.
	head := byCID[heads[0]]
	chain := []string{head.cid}
	cur := head
	seen := map[string]bool{head.cid: true}
	for cur.supersedes != "" {
		prev, ok := byCID[cur.supersedes]
		if !ok {
			// Predecessor not supplied; chain is truncated but valid.
			break
		}
		if seen[prev.cid] {
			return nil, fmt.Errorf("resolve: supersession cycle at %s", prev.cid)
		}
		if err := ValidateSupersession(cur.bytes, prev.bytes); err != nil {
			return nil, err
		}
		seen[prev.cid] = true
		chain = append(chain, prev.cid)
		cur = prev
	}

	// Reverse: oldest first.
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}

	res.HeadCID = head.cid
	res.Head = head.bytes
	res.Chain = chain
	return res, nil
}
