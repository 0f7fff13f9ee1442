package rss

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rssDoc(items ...string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:media="http://search.yahoo.com/mrss/" xmlns:content="http://purl.org/rss/1.0/modules/content/">
  <channel>
    <title>Test Feed</title>
    <link>http://example.com/</link>
    <description>Channel description</description>
    ` + strings.Join(items, "\n") + `
  </channel>
</rss>`
}

func TestParseRSSItemsInOrder(t *testing.T) {
	var items []string
	for i := 1; i <= 5; i++ {
		items = append(items, fmt.Sprintf(`<item><title>Article %d</title><link>http://example.com/%d</link></item>`, i, i))
	}
	drafts, err := Parse(strings.NewReader(rssDoc(items...)))
	require.NoError(t, err)
	require.Len(t, drafts, 5)
	for i, d := range drafts {
		assert.Equal(t, fmt.Sprintf("Article %d", i+1), d.Title)
		assert.Equal(t, fmt.Sprintf("http://example.com/%d", i+1), d.Link)
	}
}

func TestParseDropsIncompleteItems(t *testing.T) {
	doc := rssDoc(
		`<item><title>One</title><link>http://example.com/1</link></item>`,
		`<item><title>Two</title><description>no link here</description></item>`,
		`<item><title>Three</title><link>http://example.com/3</link></item>`,
		`<item><link>http://example.com/4</link></item>`,
		`<item><title>   </title><link>http://example.com/5</link></item>`,
	)
	drafts, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, drafts, 2)
	assert.Equal(t, "One", drafts[0].Title)
	assert.Equal(t, "Three", drafts[1].Title)
}

func TestParseRejectsUnknownRoot(t *testing.T) {
	cases := map[string]string{
		"html page":   `<!DOCTYPE html><html><body><item><title>x</title><link>y</link></item></body></html>`,
		"plain text":  `not valid xml`,
		"empty":       ``,
		"opml":        `<?xml version="1.0"?><opml version="2.0"><body/></opml>`,
		"only prolog": `<?xml version="1.0"?>`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			drafts, err := Parse(strings.NewReader(doc))
			require.Error(t, err)
			assert.Nil(t, drafts)
			assert.True(t, errors.Is(err, ErrNotAFeed))
			var pe *ParseError
			assert.True(t, errors.As(err, &pe))
		})
	}
}

func TestParseAtom(t *testing.T) {
	doc := `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Atom Feed</title>
  <link href="http://example.org/" rel="alternate"/>
  <entry>
    <title>Atom One</title>
    <link rel="self" href="http://example.org/api/1"/>
    <link rel="alternate" type="text/html" href="http://example.org/1"/>
    <updated>2024-01-02T15:04:05Z</updated>
    <summary type="html">&lt;p&gt;Hello &amp;amp; welcome&lt;/p&gt;</summary>
  </entry>
  <entry>
    <title>Atom Two</title>
    <link href="http://example.org/2"/>
    <content type="xhtml"><div xmlns="http://www.w3.org/1999/xhtml"><p>Body <img src="http://img.example.org/2.png"/></p></div></content>
  </entry>
  <entry>
    <title>Atom Three</title>
    <link>http://example.org/3</link>
  </entry>
</feed>`
	drafts, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, drafts, 3)

	assert.Equal(t, "http://example.org/1", drafts[0].Link)
	require.NotNil(t, drafts[0].PubDate)
	assert.Equal(t, "2024-01-02T15:04:05Z", *drafts[0].PubDate)
	require.NotNil(t, drafts[0].Description)
	assert.Equal(t, "Hello & welcome", *drafts[0].Description)

	assert.Equal(t, "http://example.org/2", drafts[1].Link)
	require.NotNil(t, drafts[1].ImageURL)
	assert.Equal(t, "http://img.example.org/2.png", *drafts[1].ImageURL)
	require.NotNil(t, drafts[1].Description)
	assert.Equal(t, "Body", *drafts[1].Description)

	assert.Equal(t, "http://example.org/3", drafts[2].Link)
	assert.Nil(t, drafts[2].Description)
	assert.Nil(t, drafts[2].PubDate)
}

func TestParseAtomEnclosureIsNotTheLink(t *testing.T) {
	doc := `<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <title>Image only</title>
    <link rel="enclosure" type="image/png" href="http://x/i.png"/>
  </entry>
  <entry>
    <title>Image and page</title>
    <link rel="enclosure" type="image/png" href="http://x/j.png"/>
    <link rel="related" href="http://x/page"/>
  </entry>
</feed>`
	drafts, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, drafts, 1, "an entry with only an enclosure has no link")
	assert.Equal(t, "Image and page", drafts[0].Title)
	assert.Equal(t, "http://x/page", drafts[0].Link)
	require.NotNil(t, drafts[0].ImageURL)
	assert.Equal(t, "http://x/j.png", *drafts[0].ImageURL)
}

func TestParseRDF(t *testing.T) {
	doc := `<?xml version="1.0"?>
<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#" xmlns="http://purl.org/rss/1.0/" xmlns:dc="http://purl.org/dc/elements/1.1/">
  <channel><title>RDF</title></channel>
  <item><title>R1</title><link>http://example.net/1</link><dc:date>2024-03-01T10:00:00Z</dc:date></item>
  <item><title>R2</title><link>http://example.net/2</link></item>
</rdf:RDF>`
	drafts, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, drafts, 2)
	require.NotNil(t, drafts[0].PubDate)
	assert.Equal(t, "2024-03-01T10:00:00Z", *drafts[0].PubDate)
}

func TestParseImagePriority(t *testing.T) {
	doc := rssDoc(
		`<item>
			<title>media first</title>
			<link>http://example.com/a</link>
			<media:content url="http://img/a-content.jpg" medium="image"/>
			<enclosure url="http://img/a-enclosure.jpg" type="image/jpeg"/>
			<media:thumbnail url="http://img/a-thumb.jpg"/>
			<description><![CDATA[<img src="http://img/a-inline.jpg">]]></description>
		</item>`,
		`<item>
			<title>enclosure only</title>
			<link>http://example.com/b</link>
			<enclosure url="http://audio/b.mp3" type="audio/mpeg"/>
			<enclosure url="http://img/b.png" type="image/png"/>
		</item>`,
		`<item>
			<title>grouped thumbnail</title>
			<link>http://example.com/c</link>
			<media:group><media:content url="http://video/c.mp4" medium="video"/><media:thumbnail url="http://img/c.jpg"/></media:group>
		</item>`,
		`<item>
			<title>inline only</title>
			<link>http://example.com/d</link>
			<description>&lt;p&gt;text &lt;img alt="x" src='http://img/d.gif' /&gt;&lt;/p&gt;</description>
		</item>`,
		`<item>
			<title>no image</title>
			<link>http://example.com/e</link>
			<description>plain</description>
		</item>`,
	)
	drafts, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, drafts, 5)

	want := []string{"http://img/a-content.jpg", "http://img/b.png", "http://img/c.jpg", "http://img/d.gif"}
	for i, w := range want {
		require.NotNil(t, drafts[i].ImageURL, drafts[i].Title)
		assert.Equal(t, w, *drafts[i].ImageURL, drafts[i].Title)
	}
	assert.Nil(t, drafts[4].ImageURL)
	require.NotNil(t, drafts[3].Description)
	assert.Equal(t, "text", *drafts[3].Description)
}

func TestParseSanitizesDescription(t *testing.T) {
	doc := rssDoc(`<item>
		<title>Scripted</title>
		<link>http://example.com/s</link>
		<description><![CDATA[<script>alert('x')</script><style>p{}</style><p>Safe &amp; sound</p>]]></description>
		<content:encoded><![CDATA[<p>Longer body</p>]]></content:encoded>
		<pubDate>Mon, 02 Jan 2006 15:04:05 +0000</pubDate>
	</item>`)
	drafts, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	require.NotNil(t, drafts[0].Description)
	assert.Equal(t, "Safe & sound", *drafts[0].Description)
	require.NotNil(t, drafts[0].PubDate)
	assert.Equal(t, "Mon, 02 Jan 2006 15:04:05 +0000", *drafts[0].PubDate)
}

func TestParseTruncatedDocumentKeepsEarlierItems(t *testing.T) {
	doc := `<?xml version="1.0"?><rss version="2.0"><channel>
<item><title>Complete</title><link>http://example.com/1</link></item>
<item><title>Cut off</title><link>http://exa`
	drafts, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, "Complete", drafts[0].Title)
}

func TestParseValidEmptyFeed(t *testing.T) {
	drafts, err := Parse(strings.NewReader(rssDoc()))
	require.NoError(t, err)
	assert.Empty(t, drafts)
}

func TestParseHTMLTitle(t *testing.T) {
	doc := rssDoc(`<item><title>AT&amp;T &lt;b&gt;wins&lt;/b&gt;</title><link>http://example.com/t</link></item>`)
	drafts, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, "AT&T wins", drafts[0].Title)
}
