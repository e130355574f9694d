package feed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const singleItemRSS = `<?xml version="1.0"?>
<rss version="2.0"><channel><title>Feed</title>
<item>
  <title>Hello</title>
  <link>https://example.com/a?utm_source=x&amp;id=1</link>
  <pubDate>Wed, 01 Jan 2025 00:00:00 GMT</pubDate>
</item>
</channel></rss>`

func TestDecode_SingleItemPromotedToList(t *testing.T) {
	entries, err := Decode([]byte(singleItemRSS))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Hello", entries[0].Title)
	assert.Equal(t, "https://example.com/a?id=1", entries[0].Link)
	require.NotNil(t, entries[0].PublishDate)
}

func TestDecode_MissingTitleAndLinkDefaultToUnknown(t *testing.T) {
	const doc = `<?xml version="1.0"?>
<rss version="2.0"><channel><title>Feed</title>
<item><guid>g1</guid></item>
</channel></rss>`
	entries, err := Decode([]byte(doc))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "UNKNOWN", entries[0].Title)
	assert.Equal(t, "g1", entries[0].Link)
}

func TestDecode_MissingDateYieldsNilPubDate(t *testing.T) {
	const doc = `<?xml version="1.0"?>
<rss version="2.0"><channel><title>Feed</title>
<item><title>No date</title><link>https://example.com/b</link></item>
</channel></rss>`
	entries, err := Decode([]byte(doc))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Nil(t, entries[0].PublishDate)
}

func TestDecode_NotXML(t *testing.T) {
	_, err := Decode([]byte("not a feed at all"))
	assert.ErrorIs(t, err, ErrParseError)
}

func TestDecode_Idempotent(t *testing.T) {
	first, err := Decode([]byte(singleItemRSS))
	require.NoError(t, err)
	second, err := Decode([]byte(singleItemRSS))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestCleanString_Idempotent(t *testing.T) {
	in := "  hello\n\tworld  "
	once := cleanString(in)
	twice := cleanString(once)
	assert.Equal(t, "hello world", once)
	assert.Equal(t, once, twice)
}

func TestCleanURL_StripsTrackingParams(t *testing.T) {
	in := "https://example.com/a?utm_source=x&utm_medium=y&fbclid=z&gclid=w&id=1"
	out := cleanURL(in)
	assert.Equal(t, "https://example.com/a?id=1", out)
}

func TestCleanURL_Idempotent(t *testing.T) {
	in := "https://example.com/a?utm_source=x&id=1"
	once := cleanURL(in)
	twice := cleanURL(once)
	assert.Equal(t, once, twice)
}
