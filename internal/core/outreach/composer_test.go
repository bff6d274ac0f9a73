package outreach

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agenthands/cardscan/internal/core/model"
)

func contactNamed(name string) model.Contact {
	return model.Contact{ContactFields: model.ContactFields{Name: name, Email: name + "@x.com"}}
}

func TestFirstName(t *testing.T) {
	assert.Equal(t, "Ada", FirstName("Ada Lovelace"))
	assert.Equal(t, "Cher", FirstName("Cher"))
	assert.Equal(t, "", FirstName(""))
	assert.Equal(t, "Ada", FirstName("  Ada Lovelace  "))
}

func TestRender(t *testing.T) {
	c := model.Contact{ContactFields: model.ContactFields{Name: "Ada Lovelace"}}

	assert.Equal(t, "Hi Ada,", Render("Hi {name},", c))
}

func TestRenderReplacesAllOccurrences(t *testing.T) {
	c := model.Contact{ContactFields: model.ContactFields{Name: "Ada Lovelace"}}

	assert.Equal(t, "Ada, thanks Ada!", Render("{name}, thanks {name}!", c))
}

func TestRenderEmptyName(t *testing.T) {
	c := model.Contact{}

	assert.Equal(t, "Hi ,", Render("Hi {name},", c))
}

type recordingSender struct {
	messages []Message
	failAt   int // 0 = never fail
}

func (r *recordingSender) Send(_ context.Context, msg Message) error {
	if r.failAt > 0 && len(r.messages)+1 == r.failAt {
		return errors.New("smtp down")
	}
	r.messages = append(r.messages, msg)
	return nil
}

func TestCampaignSendRendersPerContactInOrder(t *testing.T) {
	sender := &recordingSender{}
	var progress []int
	campaign := NewCampaign(sender)
	campaign.OnProgress = func(sent, total int) { progress = append(progress, sent) }

	recipients := []model.Contact{contactNamed("Ada Lovelace"), contactNamed("Bob Jones")}
	sent, err := campaign.Send(context.Background(), recipients, "Hello {name}", "Hi {name},")

	assert.NoError(t, err)
	assert.Equal(t, 2, sent)
	assert.Equal(t, []int{1, 2}, progress)
	assert.Equal(t, "Hello Ada", sender.messages[0].Subject)
	assert.Equal(t, "Hi Ada,", sender.messages[0].Body)
	assert.Equal(t, "Ada Lovelace@x.com", sender.messages[0].To)
	assert.Equal(t, "Hello Bob", sender.messages[1].Subject)
}

func TestCampaignSendStopsOnFailure(t *testing.T) {
	sender := &recordingSender{failAt: 2}
	campaign := NewCampaign(sender)

	recipients := []model.Contact{contactNamed("Ada"), contactNamed("Bob"), contactNamed("Eve")}
	sent, err := campaign.Send(context.Background(), recipients, "s", "b")

	assert.Error(t, err)
	assert.Equal(t, 1, sent)
	assert.Len(t, sender.messages, 1)
}
