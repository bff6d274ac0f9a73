package dedupe

import (
	"strings"

	"github.com/agenthands/cardscan/internal/core/model"
)

// DuplicatePair points at two contacts that look like the same person.
// Detection is advisory only: repeated scans legitimately append duplicate
// entries, and the collection is never merged automatically.
type DuplicatePair struct {
	OriginalID  string `json:"original_id"`
	DuplicateID string `json:"duplicate_id"`
	MatchedOn   string `json:"matched_on"` // "email" or "name"
}

// Find reports likely duplicates in insertion order. An email match wins
// over a name match; contacts with neither field never pair.
func Find(contacts []model.Contact) []DuplicatePair {
	var pairs []DuplicatePair
	byEmail := map[string]string{}
	byName := map[string]string{}

	for _, c := range contacts {
		email := strings.ToLower(strings.TrimSpace(c.Email))
		name := normalizeName(c.Name)

		if email != "" {
			if originalID, seen := byEmail[email]; seen {
				pairs = append(pairs, DuplicatePair{
					OriginalID:  originalID,
					DuplicateID: c.ID,
					MatchedOn:   "email",
				})
				continue
			}
			byEmail[email] = c.ID
		}

		if name != "" {
			if originalID, seen := byName[name]; seen {
				pairs = append(pairs, DuplicatePair{
					OriginalID:  originalID,
					DuplicateID: c.ID,
					MatchedOn:   "name",
				})
				continue
			}
			byName[name] = c.ID
		}
	}

	return pairs
}

func normalizeName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}
