package rss

import (
	"io"
	"strings"

	xpp "github.com/mmcdole/goxpp"
	"golang.org/x/net/html/charset"
)

// Draft is one article extracted from a feed document, before it is bound to
// a subscription.
type Draft struct {
	Title       string
	Link        string
	Description *string // sanitized plain text
	ImageURL    *string
	PubDate     *string // raw date string as found in the feed
}

var feedRoots = map[string]bool{
	"rss":  true,
	"feed": true,
	"rdf":  true,
}

// Parse scans an RSS, Atom or RDF document and returns its items in document
// order. Items without both a title and a link are dropped. Only an
// unrecognized (or missing) root element fails the parse; a document that
// breaks off mid-way yields the items read up to that point.
func Parse(r io.Reader) ([]Draft, error) {
	p := xpp.NewXMLPullParser(r, false, charset.NewReaderLabel)

	if err := expectFeedRoot(p); err != nil {
		return nil, err
	}

	drafts := make([]Draft, 0, 16)
	var cur *scratch
	depth := 0 // element depth relative to the open item

	for {
		ev, err := p.Next()
		if err != nil {
			return drafts, nil
		}
		switch ev {
		case xpp.EndDocument:
			return drafts, nil

		case xpp.StartTag:
			name := strings.ToLower(p.Name)
			if cur == nil {
				if name == "item" || name == "entry" {
					cur = &scratch{}
					depth = 0
				}
				continue
			}
			consumed, err := cur.read(p, name, depth)
			if err != nil {
				if d, ok := cur.draft(); ok {
					drafts = append(drafts, d)
				}
				return drafts, nil
			}
			if !consumed {
				depth++
			}

		case xpp.EndTag:
			if cur == nil {
				continue
			}
			if depth > 0 {
				depth--
				continue
			}
			if d, ok := cur.draft(); ok {
				drafts = append(drafts, d)
			}
			cur = nil
		}
	}
}

func expectFeedRoot(p *xpp.XMLPullParser) error {
	for {
		ev, err := p.Next()
		if err != nil {
			return &ParseError{Err: ErrNotAFeed}
		}
		switch ev {
		case xpp.EndDocument:
			return &ParseError{Err: ErrNotAFeed}
		case xpp.StartTag:
			if feedRoots[strings.ToLower(p.Name)] {
				return nil
			}
			return &ParseError{Root: p.Name, Err: ErrNotAFeed}
		}
	}
}

type scratch struct {
	title      string
	link       string
	linkStrong bool // link came from an RSS <link> or an Atom alternate link
	bodies     []string
	pubDate    string
	image      string
}

// read handles a start tag inside an item. It reports whether the whole
// element was consumed (its end tag included).
func (s *scratch) read(p *xpp.XMLPullParser, name string, depth int) (bool, error) {
	media := isMediaSpace(p.Space)

	switch {
	case media && (name == "content" || name == "thumbnail"):
		if name == "thumbnail" || acceptMediaContent(p) {
			s.hintImage(p.Attribute("url"))
		}
		return false, nil

	case name == "enclosure":
		if t := strings.ToLower(p.Attribute("type")); t == "" || strings.HasPrefix(t, "image/") {
			s.hintImage(p.Attribute("url"))
		}
		return false, nil
	}

	// Only direct children carry item fields; nested ones belong to
	// containers such as <source> or <media:group>.
	if depth > 0 {
		return false, nil
	}

	switch name {
	case "title":
		text, err := readInner(p)
		if s.title == "" {
			s.title = cleanTitle(text)
		}
		return true, err

	case "link":
		href := strings.TrimSpace(p.Attribute("href"))
		rel := strings.ToLower(p.Attribute("rel"))
		typ := strings.ToLower(p.Attribute("type"))
		text, err := readInner(p)
		value := href
		if value == "" {
			value = strings.TrimSpace(text)
		}
		if rel == "enclosure" {
			if strings.HasPrefix(typ, "image/") {
				s.hintImage(value)
			}
			return true, err
		}
		s.setLink(value, rel == "" || rel == "alternate")
		return true, err

	case "description", "summary", "content", "encoded":
		text, err := readInner(p)
		if strings.TrimSpace(text) != "" {
			s.bodies = append(s.bodies, text)
		}
		return true, err

	case "pubdate", "published", "updated", "date", "issued", "modified":
		text, err := readInner(p)
		if s.pubDate == "" {
			s.pubDate = strings.TrimSpace(text)
		}
		return true, err
	}
	return false, nil
}

func (s *scratch) hintImage(u string) {
	u = strings.TrimSpace(u)
	if s.image == "" && u != "" {
		s.image = u
	}
}

func (s *scratch) setLink(value string, strong bool) {
	if value == "" {
		return
	}
	if s.link == "" || (strong && !s.linkStrong) {
		s.link = value
		s.linkStrong = strong
	}
}

func (s *scratch) draft() (Draft, bool) {
	title := strings.TrimSpace(s.title)
	link := strings.TrimSpace(s.link)
	if title == "" || link == "" {
		return Draft{}, false
	}
	d := Draft{Title: title, Link: link}

	if len(s.bodies) > 0 {
		d.Description = CleanHTML(&s.bodies[0])
	}
	image := s.image
	for _, body := range s.bodies {
		if image != "" {
			break
		}
		image = ExtractImage(body)
	}
	if image != "" {
		d.ImageURL = &image
	}
	if s.pubDate != "" {
		pub := s.pubDate
		d.PubDate = &pub
	}
	return d, true
}

// readInner returns the content of the current element up to its end tag.
// Nested markup is written back out so HTML bodies survive as HTML.
func readInner(p *xpp.XMLPullParser) (string, error) {
	var b strings.Builder
	depth := 0
	for {
		ev, err := p.Next()
		if err != nil {
			return b.String(), err
		}
		switch ev {
		case xpp.Text:
			b.WriteString(p.Text)
		case xpp.StartTag:
			depth++
			b.WriteByte('<')
			b.WriteString(p.Name)
			for _, a := range p.Attrs {
				b.WriteByte(' ')
				b.WriteString(a.Name.Local)
				b.WriteString(`="`)
				b.WriteString(strings.ReplaceAll(a.Value, `"`, "&quot;"))
				b.WriteByte('"')
			}
			b.WriteByte('>')
		case xpp.EndTag:
			if depth == 0 {
				return b.String(), nil
			}
			depth--
			b.WriteString("</")
			b.WriteString(p.Name)
			b.WriteByte('>')
		case xpp.EndDocument:
			return b.String(), io.ErrUnexpectedEOF
		}
	}
}

func cleanTitle(s string) string {
	if strings.ContainsAny(s, "<&") {
		return CleanText(s)
	}
	return strings.TrimSpace(s)
}

func isMediaSpace(space string) bool {
	space = strings.ToLower(space)
	return space == "media" || strings.Contains(space, "search.yahoo.com/mrss")
}

func acceptMediaContent(p *xpp.XMLPullParser) bool {
	medium := strings.ToLower(p.Attribute("medium"))
	typ := strings.ToLower(p.Attribute("type"))
	if medium != "" && medium != "image" {
		return false
	}
	return typ == "" || strings.HasPrefix(typ, "image/")
}
