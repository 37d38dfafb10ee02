// Package featureflags evaluates per-user feature switches configured as a
// comma-separated list, e.g. "live_editing=on,new_editor=25%".
package featureflags

import (
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
)

// rule is a parsed flag value. pct is the share of users, 0-100, that see the flag.
type rule struct {
	raw string
	pct int
}

// Manager evaluates feature flags. A nil Manager treats every flag as unset.
type Manager struct {
	rules map[string]rule
}

// NewManager creates a feature-flag manager from a comma-separated config string.
// Malformed entries and unknown values are skipped.
func NewManager(raw string) *Manager {
	rules := make(map[string]rule)

	for _, pair := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		key, value = normalize(key), normalize(value)
		if key == "" {
			continue
		}
		pct, ok := parseValue(value)
		if !ok {
			continue
		}
		rules[key] = rule{raw: value, pct: pct}
	}

	return &Manager{rules: rules}
}

// parseValue accepts on/true/1, off/false/0 and N% rollouts.
func parseValue(value string) (int, bool) {
	switch value {
	case "on", "true", "1":
		return 100, true
	case "off", "false", "0":
		return 0, true
	}

	pctRaw, isPct := strings.CutSuffix(value, "%")
	if !isPct {
		return 0, false
	}
	pct, err := strconv.Atoi(pctRaw)
	if err != nil {
		return 0, false
	}
	return min(max(pct, 0), 100), true
}

// Enabled returns whether a flag is enabled for a given user. Unset flags are off.
func (m *Manager) Enabled(name string, userID uint) bool {
	return m.EnabledOr(name, userID, false)
}

// EnabledOr is Enabled with an explicit value for flags that are not configured.
// Partial rollouts are deterministic per user and never include user 0.
func (m *Manager) EnabledOr(name string, userID uint, fallback bool) bool {
	if m == nil {
		return fallback
	}
	r, ok := m.rules[normalize(name)]
	if !ok {
		return fallback
	}

	switch {
	case r.pct >= 100:
		return true
	case r.pct <= 0, userID == 0:
		return false
	}
	return rolloutBucket(name, userID) < r.pct
}

// Raw returns a copy of configured flag values.
func (m *Manager) Raw() map[string]string {
	if m == nil {
		return map[string]string{}
	}
	out := make(map[string]string, len(m.rules))
	for k, r := range m.rules {
		out[k] = r.raw
	}
	return out
}

// Snapshot returns evaluated flag status for one user.
func (m *Manager) Snapshot(userID uint) map[string]bool {
	if m == nil {
		return map[string]bool{}
	}
	out := make(map[string]bool, len(m.rules))
	for name := range m.rules {
		out[name] = m.Enabled(name, userID)
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func rolloutBucket(name string, userID uint) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(fmt.Sprintf("%s:%d", normalize(name), userID)))
	return int(h.Sum32() % 100)
}
