// Package duplex pairs related single-pass reads and fuses each pair into
// the multi-channel consensus record consumed by the stereo model.
package duplex

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// PartnerMap is the bijective association between primary and secondary
// read ids, built once before pipeline construction and read concurrently
// afterwards. Lookups succeed in either direction.
type PartnerMap struct {
	secondaryOf map[string]string // primary id -> secondary id
	primaryOf   map[string]string // secondary id -> primary id
}

// NewPartnerMap builds a PartnerMap from (primary, secondary) id pairs.
// Malformed input — empty ids, self-pairs, or any id appearing twice in
// either role — is a construction-time error: the pipeline must not start.
func NewPartnerMap(pairs [][2]string) (*PartnerMap, error) {
	pm := &PartnerMap{
		secondaryOf: make(map[string]string, len(pairs)),
		primaryOf:   make(map[string]string, len(pairs)),
	}
	for i, p := range pairs {
		primary, secondary := p[0], p[1]
		if primary == "" || secondary == "" {
			return nil, fmt.Errorf("duplex: pair %d has an empty read id", i)
		}
		if primary == secondary {
			return nil, fmt.Errorf("duplex: pair %d maps read %q to itself", i, primary)
		}
		for _, id := range []string{primary, secondary} {
			if _, dup := pm.secondaryOf[id]; dup {
				return nil, fmt.Errorf("duplex: read %q appears in more than one pair", id)
			}
			if _, dup := pm.primaryOf[id]; dup {
				return nil, fmt.Errorf("duplex: read %q appears in more than one pair", id)
			}
		}
		pm.secondaryOf[primary] = secondary
		pm.primaryOf[secondary] = primary
	}
	return pm, nil
}

// LoadPartnerMap reads whitespace-separated "primary secondary" id pairs,
// one per line. Blank lines and #-comments are skipped; anything else that
// is not exactly two fields is a fatal parse error.
func LoadPartnerMap(r io.Reader) (*PartnerMap, error) {
	var pairs [][2]string
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != 2 {
			return nil, fmt.Errorf("duplex: pairs file line %d: expected 2 ids, got %d", line, len(fields))
		}
		pairs = append(pairs, [2]string{fields[0], fields[1]})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("duplex: reading pairs file: %w", err)
	}
	return NewPartnerMap(pairs)
}

// Partner returns the partner of id and whether id plays the primary role.
// ok is false for reads that are not part of any declared pair.
func (pm *PartnerMap) Partner(id string) (partner string, isPrimary, ok bool) {
	if partner, ok := pm.secondaryOf[id]; ok {
		return partner, true, true
	}
	if partner, ok := pm.primaryOf[id]; ok {
		return partner, false, true
	}
	return "", false, false
}

// Len returns the number of declared pairs.
func (pm *PartnerMap) Len() int { return len(pm.secondaryOf) }
