// Package ner provides named-entity recognition over extracted page text.
//
// The recognizer is rule-based: a set of compiled patterns plus a small
// organization-suffix gazetteer. Labels follow the conventional NER
// vocabulary (DATE, MONEY, ORG, PERSON, ...), so downstream consumers can
// treat the label set as closed.
package ner

import (
	"regexp"
	"sort"
	"strings"

	"github.com/kart-io/docintel/internal/model"
)

// maxTextLen bounds recognition input to avoid pathological regexp scans on
// very large pages.
const maxTextLen = 100000

// Entity labels.
const (
	LabelDate    = "DATE"
	LabelTime    = "TIME"
	LabelMoney   = "MONEY"
	LabelPercent = "PERCENT"
	LabelEmail   = "EMAIL"
	LabelURL     = "URL"
	LabelPhone   = "PHONE"
	LabelOrg      = "ORG"
	LabelPerson   = "PERSON"
	LabelCardinal = "CARDINAL"
)

type pattern struct {
	label string
	re    *regexp.Regexp
}

// Patterns are matched in order; an earlier match claims its span and
// suppresses overlapping later matches (an email must not also surface its
// domain as an ORG, a date must not also match as a number).
var patterns = []pattern{
	{LabelEmail, regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)},
	{LabelURL, regexp.MustCompile(`https?://[^\s<>"]+`)},
	{LabelMoney, regexp.MustCompile(`[$€£]\s?\d[\d,]*(?:\.\d+)?(?:\s?(?:million|billion|thousand))?`)},
	{LabelMoney, regexp.MustCompile(`\d[\d,]*(?:\.\d+)?\s?(?:USD|EUR|GBP|dollars|euros|pounds)\b`)},
	{LabelPercent, regexp.MustCompile(`\d+(?:\.\d+)?\s?%`)},
	{LabelDate, regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)},
	{LabelDate, regexp.MustCompile(`\d{1,2}/\d{1,2}/\d{2,4}`)},
	{LabelDate, regexp.MustCompile(`(?:January|February|March|April|May|June|July|August|September|October|November|December|Jan|Feb|Mar|Apr|Jun|Jul|Aug|Sep|Sept|Oct|Nov|Dec)\.?\s\d{1,2}(?:st|nd|rd|th)?,?\s\d{4}`)},
	{LabelDate, regexp.MustCompile(`\d{1,2}\s(?:January|February|March|April|May|June|July|August|September|October|November|December)\s\d{4}`)},
	{LabelTime, regexp.MustCompile(`\d{1,2}:\d{2}(?::\d{2})?\s?(?:[AaPp][Mm])?`)},
	{LabelPhone, regexp.MustCompile(`\+?\d{0,3}[\s.-]?\(?\d{3}\)?[\s.-]?\d{3}[\s.-]?\d{4}\b`)},
	{LabelOrg, regexp.MustCompile(`[A-Z][A-Za-z&'-]*(?:\s[A-Z][A-Za-z&'-]*)*\s(?:Inc|Incorporated|Ltd|Limited|LLC|LLP|Corp|Corporation|Company|Co|GmbH|AG|SA|PLC)\.?\b`)},
	{LabelPerson, regexp.MustCompile(`(?:Mr|Mrs|Ms|Dr|Prof)\.?\s[A-Z][a-z]+(?:\s[A-Z][a-z]+)?`)},
	// Last so every richer numeric label claims its digits first; only
	// bare counts are left over.
	{LabelCardinal, regexp.MustCompile(`\b(?:\d{1,3}(?:,\d{3})+|\d+)(?:\.\d+)?\b`)},
}

// Recognizer extracts named entities from text.
type Recognizer struct{}

// New creates a Recognizer.
func New() *Recognizer {
	return &Recognizer{}
}

// Extract returns all entity mentions found in the text, ordered by start
// offset. Offsets are byte offsets into the input. Mentions are not
// deduplicated: per-chunk occurrence lists need every hit for search-time
// highlighting.
func (r *Recognizer) Extract(text string) []model.EntityMention {
	if len(text) > maxTextLen {
		text = text[:maxTextLen]
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var mentions []model.EntityMention
	claimed := make([][2]int, 0, 32)

	for _, p := range patterns {
		for _, loc := range p.re.FindAllStringIndex(text, -1) {
			if overlapsAny(claimed, loc[0], loc[1]) {
				continue
			}
			value := strings.TrimSpace(text[loc[0]:loc[1]])
			if value == "" {
				continue
			}
			claimed = append(claimed, [2]int{loc[0], loc[1]})
			mentions = append(mentions, model.EntityMention{
				Text:  value,
				Label: p.label,
				Start: loc[0],
				End:   loc[1],
			})
		}
	}

	sort.Slice(mentions, func(i, j int) bool {
		if mentions[i].Start != mentions[j].Start {
			return mentions[i].Start < mentions[j].Start
		}
		return mentions[i].End < mentions[j].End
	})
	return mentions
}

// Summarize aggregates mentions into per-label groups of distinct values,
// sorted for stable display.
func Summarize(mentions []model.EntityMention) []model.EntityGroup {
	byLabel := make(map[string]map[string]struct{})
	for _, m := range mentions {
		if byLabel[m.Label] == nil {
			byLabel[m.Label] = make(map[string]struct{})
		}
		byLabel[m.Label][m.Text] = struct{}{}
	}

	labels := make([]string, 0, len(byLabel))
	for label := range byLabel {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	groups := make([]model.EntityGroup, 0, len(labels))
	for _, label := range labels {
		values := make([]string, 0, len(byLabel[label]))
		for v := range byLabel[label] {
			values = append(values, v)
		}
		sort.Strings(values)
		groups = append(groups, model.EntityGroup{Label: label, Values: values})
	}
	return groups
}

// Intersecting returns the mentions whose spans fall inside [start, end),
// with offsets rebased to the span. Used to attach page-level mentions to
// the chunk that contains them.
func Intersecting(mentions []model.EntityMention, start, end int) []model.EntityMention {
	var out []model.EntityMention
	for _, m := range mentions {
		if m.Start >= start && m.End <= end {
			rebased := m
			rebased.Start -= start
			rebased.End -= start
			out = append(out, rebased)
		}
	}
	return out
}

func overlapsAny(claimed [][2]int, start, end int) bool {
	for _, c := range claimed {
		if start < c[1] && end > c[0] {
			return true
		}
	}
	return false
}
