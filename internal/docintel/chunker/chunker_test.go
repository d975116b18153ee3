package chunker_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/docintel/internal/docintel/chunker"
)

// flatten mirrors the chunker's newline handling so tests can compare a
// chunk against the source slice its offset points at.
func flatten(text string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', '\t':
			return ' '
		}
		return r
	}, text)
}

func TestSplitEmpty(t *testing.T) {
	c := chunker.New(nil)
	assert.Nil(t, c.Split(""))
	assert.Nil(t, c.Split("   \n\t  "))
}

func TestSplitShortText(t *testing.T) {
	c := chunker.New(nil)
	chunks := c.Split("The quarterly report shows steady growth in all regions.")
	require.Len(t, chunks, 1)
	assert.Contains(t, chunks[0].Text, "quarterly report")
	assert.Equal(t, 0, chunks[0].Start)
}

func TestSplitDropsTinyFragments(t *testing.T) {
	c := chunker.New(nil)
	assert.Empty(t, c.Split("ok."))
}

func TestSplitRespectsSentences(t *testing.T) {
	c := chunker.New(&chunker.Config{Size: 80, Overlap: 20})
	text := "The first sentence covers revenue. The second sentence covers expenses. " +
		"The third sentence covers projections. The fourth sentence covers risks. " +
		"The fifth sentence covers the outlook."

	chunks := c.Split(text)
	require.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		// A chunk may carry overlap on top of the target size but never an
		// unbounded amount.
		assert.LessOrEqual(t, len(chunk.Text), 80+20*2, "chunk too large: %q", chunk.Text)
		assert.NotEmpty(t, strings.TrimSpace(chunk.Text))
	}
	assert.Contains(t, chunks[0].Text, "first sentence")
	assert.Contains(t, chunks[len(chunks)-1].Text, "outlook")
}

func TestSplitWindowsUnstructuredText(t *testing.T) {
	c := chunker.New(&chunker.Config{Size: 500, Overlap: 50})
	text := strings.Repeat("x", 1200)

	chunks := c.Split(text)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0].Text, 500)
	assert.Len(t, chunks[1].Text, 500)
	assert.Len(t, chunks[2].Text, 300)
	assert.Equal(t, 0, chunks[0].Start)
	assert.Equal(t, 450, chunks[1].Start)
	assert.Equal(t, 900, chunks[2].Start)
}

func TestSplitCarriesOverlap(t *testing.T) {
	c := chunker.New(&chunker.Config{Size: 60, Overlap: 20})
	text := "Alpha bravo charlie delta echo foxtrot golf hotel. " +
		"India juliett kilo lima mike november oscar papa."

	chunks := c.Split(text)
	require.Len(t, chunks, 2)
	// The tail words of the first chunk reappear at the head of the second.
	tailWords := strings.Fields(chunks[0].Text)
	last := tailWords[len(tailWords)-1]
	assert.True(t, strings.Contains(chunks[1].Text, strings.TrimRight(last, ".")),
		"expected overlap word %q in %q", last, chunks[1].Text)
	// The second chunk starts inside the first, never before it.
	assert.Greater(t, chunks[1].Start, chunks[0].Start)
	assert.Less(t, chunks[1].Start, chunks[0].Start+len(chunks[0].Text))
}

func TestSplitOffsetsLocateChunksInSource(t *testing.T) {
	c := chunker.New(&chunker.Config{Size: 80, Overlap: 20})
	text := "Invoice issued 2024-03-15 to Acme Widgets for services rendered!\n" +
		"Payment covers consulting delivered through the first quarter.\n" +
		"Does the retainer continue afterwards? The follow-up review is\n" +
		"scheduled for 2025-03-15 at the client headquarters in Lyon.\n" +
		"A final settlement meeting happens shortly after that date."

	chunks := c.Split(text)
	require.Greater(t, len(chunks), 2)

	flat := flatten(text)
	for _, chunk := range chunks {
		require.GreaterOrEqual(t, chunk.Start, 0)
		require.LessOrEqual(t, chunk.Start+len(chunk.Text), len(text))
		// Every chunk is the exact slice of the source its offset claims,
		// line breaks aside.
		assert.Equal(t, flat[chunk.Start:chunk.Start+len(chunk.Text)], chunk.Text)
	}

	// A value deep in the text must be covered by a chunk whose span
	// actually contains it, not by one anchored at the page head.
	pos := strings.Index(text, "2025-03-15")
	require.Positive(t, pos)
	var covered bool
	for _, chunk := range chunks {
		if strings.Contains(chunk.Text, "2025-03-15") {
			covered = true
			assert.LessOrEqual(t, chunk.Start, pos)
			assert.GreaterOrEqual(t, chunk.Start+len(chunk.Text), pos+len("2025-03-15"))
		}
	}
	assert.True(t, covered, "no chunk covers the later date")
}

func TestSplitOffsetsMonotonic(t *testing.T) {
	c := chunker.New(&chunker.Config{Size: 100, Overlap: 25})
	text := strings.Repeat("Sentence one is here. Sentence two is longer than one. ", 10)

	chunks := c.Split(text)
	require.Greater(t, len(chunks), 1)
	for i := 1; i < len(chunks); i++ {
		assert.Greater(t, chunks[i].Start, chunks[i-1].Start)
	}
}

func TestSplitDeterministic(t *testing.T) {
	c := chunker.New(&chunker.Config{Size: 100, Overlap: 25})
	text := strings.Repeat("Sentence one is here. Sentence two is longer than one. ", 10)

	first := c.Split(text)
	second := c.Split(text)
	assert.Equal(t, first, second)
}
