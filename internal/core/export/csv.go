package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/agenthands/cardscan/internal/core/model"
)

// Header is the fixed CSV column order.
var Header = []string{
	"Name", "Title", "Company", "Email", "Phone",
	"Website", "Address", "LinkedIn", "Notes",
}

// ToCSV serializes the collection in order, header row first. Every cell is
// trimmed, quote-wrapped, and embedded quotes are doubled. This applies to
// every field unconditionally, which also covers embedded commas and
// newlines. An empty collection yields a header-only file.
func ToCSV(contacts []model.Contact) []byte {
	lines := make([]string, 0, len(contacts)+1)
	lines = append(lines, strings.Join(Header, ","))

	for _, c := range contacts {
		row := []string{
			c.Name, c.Title, c.Company, c.Email, c.Phone,
			c.Website, c.Address, c.LinkedIn, c.Notes,
		}
		cells := make([]string, len(row))
		for i, val := range row {
			escaped := strings.ReplaceAll(strings.TrimSpace(val), `"`, `""`)
			cells[i] = `"` + escaped + `"`
		}
		lines = append(lines, strings.Join(cells, ","))
	}

	return []byte(strings.Join(lines, "\n"))
}

// Filename returns the timestamped download name for an export.
func Filename(now time.Time) string {
	return fmt.Sprintf("bizcards_export_%d.csv", now.UnixMilli())
}
