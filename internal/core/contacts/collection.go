package contacts

import (
	"sync"

	"github.com/google/uuid"

	"github.com/agenthands/cardscan/internal/core/model"
)

// Collection is the session's contact set: append-only insertion order,
// ids minted at ingestion and never reused. It is the only owner of contact
// mutation; everything else reads copies.
type Collection struct {
	mu    sync.Mutex
	items []model.Contact
}

func NewCollection() *Collection {
	return &Collection{}
}

// Ingest assigns a fresh id to each field set, marks it unedited, and
// appends in the order received. Returns the created contacts.
func (c *Collection) Ingest(fields []model.ContactFields) []model.Contact {
	created := make([]model.Contact, len(fields))
	for i, f := range fields {
		created[i] = model.Contact{
			ID:            uuid.NewString(),
			ContactFields: f.Trimmed(),
			IsEdited:      false,
		}
	}

	c.mu.Lock()
	c.items = append(c.items, created...)
	c.mu.Unlock()

	return created
}

// Update replaces the full field set of the contact with the given id and
// forces IsEdited. Updating a vanished contact is already-satisfied, not an
// error; the return value only says whether the id was found.
func (c *Collection) Update(id string, fields model.ContactFields) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.items {
		if c.items[i].ID == id {
			c.items[i].ContactFields = fields.Trimmed()
			c.items[i].IsEdited = true
			return true
		}
	}
	return false
}

// Delete removes the contact with the given id. Absent ids are a no-op.
func (c *Collection) Delete(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.items {
		if c.items[i].ID == id {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return true
		}
	}
	return false
}

// Get returns the contact with the given id, if present.
func (c *Collection) Get(id string) (model.Contact, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, item := range c.items {
		if item.ID == id {
			return item, true
		}
	}
	return model.Contact{}, false
}

// All returns a copy of the collection in insertion order.
func (c *Collection) All() []model.Contact {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]model.Contact, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Collection) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
