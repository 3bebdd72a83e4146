package links

import "strings"

// ExtractID returns the store identifier embedded in raw, or "" when no pattern
// yields a value of the store's exact shape. The VDP query form is tried first
// on video detail pages.
func ExtractID(r Rules, raw string) string {
	if raw == "" {
		return ""
	}

	if r.VDPPattern != nil && r.IsVDP(raw) {
		if id := r.match(r.VDPPattern.FindStringSubmatch(raw)); id != "" {
			return id
		}
	}

	for _, pattern := range r.IDPatterns {
		if id := r.match(pattern.FindStringSubmatch(raw)); id != "" {
			return id
		}
	}
	return ""
}

// ValidID normalizes id and checks it against the store shape.
func (r Rules) ValidID(id string) (string, bool) {
	id = strings.TrimSpace(id)
	if r.UpperCaseID {
		id = strings.ToUpper(id)
	}
	if r.IDShape == nil || !r.IDShape.MatchString(id) {
		return "", false
	}
	return id, true
}

func (r Rules) match(groups []string) string {
	if len(groups) < 2 {
		return ""
	}
	id, ok := r.ValidID(groups[1])
	if !ok {
		return ""
	}
	return id
}
