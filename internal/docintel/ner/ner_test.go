package ner_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/docintel/internal/docintel/ner"
	"github.com/kart-io/docintel/internal/model"
)

func findLabel(mentions []model.EntityMention, label string) []model.EntityMention {
	var out []model.EntityMention
	for _, m := range mentions {
		if m.Label == label {
			out = append(out, m)
		}
	}
	return out
}

func TestExtractEmpty(t *testing.T) {
	r := ner.New()
	assert.Nil(t, r.Extract(""))
	assert.Nil(t, r.Extract("   \n  "))
}

func TestExtractEmail(t *testing.T) {
	r := ner.New()
	text := "Contact j.doe@example.com for details."

	mentions := r.Extract(text)
	emails := findLabel(mentions, ner.LabelEmail)
	require.Len(t, emails, 1)
	assert.Equal(t, "j.doe@example.com", emails[0].Text)
	assert.Equal(t, strings.Index(text, "j.doe"), emails[0].Start)
	assert.Equal(t, emails[0].Start+len("j.doe@example.com"), emails[0].End)
}

func TestExtractMoneyAndDate(t *testing.T) {
	r := ner.New()
	mentions := r.Extract("The invoice total is $1,234.56 due 2024-03-15.")

	money := findLabel(mentions, ner.LabelMoney)
	require.Len(t, money, 1)
	assert.Equal(t, "$1,234.56", money[0].Text)

	dates := findLabel(mentions, ner.LabelDate)
	require.Len(t, dates, 1)
	assert.Equal(t, "2024-03-15", dates[0].Text)
}

func TestExtractPercent(t *testing.T) {
	r := ner.New()
	mentions := r.Extract("Revenue grew 12.5% year over year.")

	percents := findLabel(mentions, ner.LabelPercent)
	require.Len(t, percents, 1)
	assert.Equal(t, "12.5%", percents[0].Text)
}

func TestExtractOrganization(t *testing.T) {
	r := ner.New()
	mentions := r.Extract("Acme Widgets Inc announced a partnership.")

	orgs := findLabel(mentions, ner.LabelOrg)
	require.Len(t, orgs, 1)
	assert.Contains(t, orgs[0].Text, "Acme Widgets")
}

func TestExtractPerson(t *testing.T) {
	r := ner.New()
	mentions := r.Extract("The report was signed by Dr. Jane Smith yesterday.")

	people := findLabel(mentions, ner.LabelPerson)
	require.Len(t, people, 1)
	assert.Equal(t, "Dr. Jane Smith", people[0].Text)
}

func TestExtractCardinal(t *testing.T) {
	r := ner.New()
	mentions := r.Extract("The shipment includes 1,250 units across 3 warehouses.")

	cardinals := findLabel(mentions, ner.LabelCardinal)
	require.Len(t, cardinals, 2)
	assert.Equal(t, "1,250", cardinals[0].Text)
	assert.Equal(t, "3", cardinals[1].Text)
}

func TestExtractCardinalYieldsToRicherLabels(t *testing.T) {
	r := ner.New()
	// Every digit here belongs to a money, date or percent span; nothing
	// is left over for a bare count.
	mentions := r.Extract("Paid $500 on 2024-03-15 with 12.5% interest.")
	assert.Empty(t, findLabel(mentions, ner.LabelCardinal))
}

func TestExtractOverlapSuppression(t *testing.T) {
	r := ner.New()
	// The URL must be claimed whole; no nested matches inside it.
	mentions := r.Extract("See https://example.com/report-2024 for the data.")

	urls := findLabel(mentions, ner.LabelURL)
	require.Len(t, urls, 1)
	for _, m := range mentions {
		if m.Label == ner.LabelURL {
			continue
		}
		assert.False(t, m.Start < urls[0].End && m.End > urls[0].Start,
			"mention %+v overlaps the URL span", m)
	}
}

func TestExtractOrdering(t *testing.T) {
	r := ner.New()
	mentions := r.Extract("On 2024-01-02 pay $500 to ops@example.com.")

	require.GreaterOrEqual(t, len(mentions), 3)
	for i := 1; i < len(mentions); i++ {
		assert.LessOrEqual(t, mentions[i-1].Start, mentions[i].Start)
	}
}

func TestSummarize(t *testing.T) {
	mentions := []model.EntityMention{
		{Text: "2024-03-15", Label: ner.LabelDate},
		{Text: "2024-03-15", Label: ner.LabelDate},
		{Text: "2024-01-01", Label: ner.LabelDate},
		{Text: "$100", Label: ner.LabelMoney},
	}

	groups := ner.Summarize(mentions)
	require.Len(t, groups, 2)
	assert.Equal(t, ner.LabelDate, groups[0].Label)
	assert.Equal(t, []string{"2024-01-01", "2024-03-15"}, groups[0].Values)
	assert.Equal(t, ner.LabelMoney, groups[1].Label)
	assert.Equal(t, []string{"$100"}, groups[1].Values)
}

func TestIntersecting(t *testing.T) {
	mentions := []model.EntityMention{
		{Text: "a", Label: ner.LabelDate, Start: 5, End: 10},
		{Text: "b", Label: ner.LabelMoney, Start: 20, End: 30},
		{Text: "c", Label: ner.LabelDate, Start: 35, End: 45},
	}

	inside := ner.Intersecting(mentions, 15, 32)
	require.Len(t, inside, 1)
	assert.Equal(t, "b", inside[0].Text)
	assert.Equal(t, 5, inside[0].Start)
	assert.Equal(t, 15, inside[0].End)
}
