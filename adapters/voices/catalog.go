// Package voices maps character roles onto the synthesis voice catalog.
package voices

import "strings"

// DefaultVoice is used for free-conversation replies with no character.
const DefaultVoice = "Kore"

// catalog lists the prebuilt voice names offered to characters, ordered by
// preference. Keyword buckets bias certain roles toward a fitting voice
// before falling back to catalog order.
var catalog = []string{"Kore", "Puck", "Charon", "Aoede", "Fenrir", "Leda", "Orus", "Zephyr"}

// roleBuckets is ordered so assignment stays deterministic when a role
// matches more than one keyword.
var roleBuckets = []struct {
	keyword   string
	preferred []string
}{
	{"child", []string{"Leda", "Zephyr"}},
	{"enfant", []string{"Leda", "Zephyr"}},
	{"old", []string{"Charon", "Orus"}},
	{"vieux", []string{"Charon", "Orus"}},
	{"vendor", []string{"Puck", "Fenrir"}},
	{"waiter", []string{"Puck", "Fenrir"}},
}

// Catalog returns the full voice catalog in preference order.
func Catalog() []string {
	return append([]string(nil), catalog...)
}

// Assign picks an unused voice for the role. Pure function: same inputs,
// same output. Falls back to catalog order once the role's preferred
// voices are taken, and reuses the first catalog entry if every voice is
// in use (scenarios are small, so this is a degenerate case).
func Assign(role string, used map[string]bool) string {
	lower := strings.ToLower(role)
	for _, bucket := range roleBuckets {
		if !strings.Contains(lower, bucket.keyword) {
			continue
		}
		for _, voice := range bucket.preferred {
			if !used[voice] {
				return voice
			}
		}
	}
	for _, voice := range catalog {
		if !used[voice] {
			return voice
		}
	}
	return catalog[0]
}
