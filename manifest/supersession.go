package manifest

import (
	"errors"
	"fmt"
	"strings"
)

// SupersedesManifestCID returns the CID referenced by META: Supersedes-Manifest-CID.
func SupersedesManifestCID(manifestBytes []byte) (string, bool, error) {
	v, ok, err := singleFieldFromSection(manifestBytes, "META", "Supersedes-Manifest-CID")
	if err != nil {
		return "", false, err
	}
	if !ok {
		return "", false, nil
	}
	return v, true, nil
}

// ValidateSupersession enforces minimal manifest supersession semantics.
//
// A manifest B supersedes manifest A when:
// - B's META includes Supersedes-Manifest-CID equal to CID(A)
// - B and A bind the same Program-ID
// - B and A use the same Host-ID
// - B and A target the same Cluster
func ValidateSupersession(newManifest, oldManifest []byte) error {
	oldCID, err := CID(oldManifest)
	if err != nil {
		return err
	}
	newCID, err := CID(newManifest)
	if err != nil {
		return err
	}
	if newCID == oldCID {
		return errors.New("supersession invalid: new manifest bytes identical to old")
	}

	sup, ok, err := SupersedesManifestCID(newManifest)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("supersession invalid: new manifest does not declare Supersedes-Manifest-CID")
	}
	if sup != oldCID {
		return fmt.Errorf("supersession invalid: Supersedes-Manifest-CID=%q does not match old CID=%q", sup, oldCID)
	}

	oldProgram, err := requiredFieldFromSection(oldManifest, "PROGRAM", "Program-ID")
	if err != nil {
		return err
	}
	newProgram, err := requiredFieldFromSection(newManifest, "PROGRAM", "Program-ID")
	if err != nil {
		return err
	}
	if oldProgram != newProgram {
		return fmt.Errorf("supersession invalid: program mismatch old=%q new=%q", oldProgram, newProgram)
	}

	oldHostID, err := requiredFieldFromSection(oldManifest, "META", "Host-ID")
	if err != nil {
		return err
	}
	newHostID, err := requiredFieldFromSection(newManifest, "META", "Host-ID")
	if err != nil {
		return err
	}
	if oldHostID != newHostID {
		return fmt.Errorf("supersession invalid: host-id mismatch old=%q new=%q", oldHostID, newHostID)
	}

	oldCluster, err := requiredFieldFromSection(oldManifest, "PROGRAM", "Cluster")
	if err != nil {
		return err
	}
	newCluster, err := requiredFieldFromSection(newManifest, "PROGRAM", "Cluster")
	if err != nil {
		return err
	}
	if oldCluster != newCluster {
		return fmt.Errorf("supersession invalid: cluster mismatch old=%q new=%q", oldCluster, newCluster)
	}

	return nil
}

func sectionLines(manifestBytes []byte, section string) ([]string, error) {
	lines := strings.Split(string(manifestBytes), "\n")
	idx := -1
	for i, l := range lines {
		if l == section {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("missing section %q", section)
	}
	start := idx + 1
	var out []string
	for i := start; i < len(lines); i++ {
		l := lines[i]
		if l == "" {
			break
		}
		out = append(out, l)
	}
	return out, nil
}

func fieldValues(lines []string, key string) []string {
	prefix := key + ": "
	var out []string
	for _, l := range lines {
		if strings.HasPrefix(l, prefix) {
			out = append(out, strings.TrimPrefix(l, prefix))
		}
	}
	return out
}

func requiredFieldFromSection(manifestBytes []byte, section, key string) (string, error) {
	v, ok, err := singleFieldFromSection(manifestBytes, section, key)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("missing %s: %s", section, key)
	}
	return v, nil
}

func singleFieldFromSection(manifestBytes []byte, section, key string) (string, bool, error) {
	lines, err := sectionLines(manifestBytes, section)
	if err != nil {
		return "", false, err
	}
	vals := fieldValues(lines, key)
	if len(vals) == 0 {
		return "", false, nil
	}
	if len(vals) > 1 {
		return "", false, fmt.Errorf("multiple %s: %s", section, key)
	}
	if vals[0] == "" {
		return "", false, fmt.Errorf("empty %s: %s", section, key)
	}
	return vals[0], true, nil
}
