// Package opml handles importing and exporting subscriptions as OPML.
package opml

import (
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/bryan-buckman/newsreader/internal/model"
)

// OPML represents the root of an OPML document.
type OPML struct {
	XMLName xml.Name `xml:"opml"`
	Version string   `xml:"version,attr"`
	Head    Head     `xml:"head"`
	Body    Body     `xml:"body"`
}

// Head contains OPML metadata.
type Head struct {
	Title       string `xml:"title,omitempty"`
	DateCreated string `xml:"dateCreated,omitempty"`
}

// Body contains the outlines.
type Body struct {
	Outlines []Outline `xml:"outline"`
}

// Outline represents a single outline element (folder or feed).
type Outline struct {
	Text        string    `xml:"text,attr"`
	Title       string    `xml:"title,attr,omitempty"`
	Type        string    `xml:"type,attr,omitempty"`
	XMLURL      string    `xml:"xmlUrl,attr,omitempty"`
	HTMLURL     string    `xml:"htmlUrl,attr,omitempty"`
	Description string    `xml:"description,attr,omitempty"`
	Category    string    `xml:"category,attr,omitempty"` // comma-separated
	Language    string    `xml:"language,attr,omitempty"`
	Outlines    []Outline `xml:"outline,omitempty"`
}

// Entry is one feed read from an OPML document.
type Entry struct {
	Title       string
	URL         string
	Description string
	// Categories come from the outline's category attribute, or failing
	// that from the names of its enclosing folders.
	Categories []string
	Country    string
}

// Parse reads an OPML document and returns a flat list of feeds.
func Parse(r io.Reader) ([]Entry, error) {
	var doc OPML
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode opml: %w", err)
	}
	var entries []Entry
	var walk func(outlines []Outline, path []string)
	walk = func(outlines []Outline, path []string) {
		for _, o := range outlines {
			if o.XMLURL != "" {
				title := o.Title
				if title == "" {
					title = o.Text
				}
				cats := splitCategory(o.Category)
				if len(cats) == 0 {
					cats = append([]string{}, path...)
				}
				entries = append(entries, Entry{
					Title:       title,
					URL:         strings.TrimSpace(o.XMLURL),
					Description: o.Description,
					Categories:  cats,
					Country:     o.Language,
				})
			} else if len(o.Outlines) > 0 {
				name := o.Text
				if name == "" {
					name = o.Title
				}
				walk(o.Outlines, append(path, name))
			}
		}
	}
	walk(doc.Body.Outlines, nil)
	return entries, nil
}

// splitCategory reads the OPML 2.0 category attribute. Slash-delimited
// paths like "/Tech/Go" contribute their last element.
func splitCategory(attr string) []string {
	var out []string
	for _, c := range strings.Split(attr, ",") {
		c = strings.TrimSpace(c)
		if i := strings.LastIndexByte(c, '/'); i >= 0 {
			c = c[i+1:]
		}
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}

// Export renders subscriptions as OPML, one folder per primary category.
func Export(title string, subs []model.Subscription) ([]byte, error) {
	doc := OPML{
		Version: "2.0",
		Head: Head{
			Title:       title,
			DateCreated: time.Now().Format(time.RFC1123Z),
		},
	}

	folders := make(map[string]*Outline)
	var names []string
	for _, s := range subs {
		cats := make([]string, len(s.Categories))
		for i, c := range s.Categories {
			cats[i] = string(c)
		}
		feed := Outline{
			Text:        s.Title,
			Title:       s.Title,
			Type:        "rss",
			XMLURL:      s.URL,
			Description: s.Description,
			Category:    strings.Join(cats, ","),
			Language:    s.Country,
		}
		name := s.PrimaryCategory()
		fo, ok := folders[name]
		if !ok {
			fo = &Outline{Text: name, Title: name}
			folders[name] = fo
			names = append(names, name)
		}
		fo.Outlines = append(fo.Outlines, feed)
	}

	sort.Strings(names)
	for _, n := range names {
		doc.Body.Outlines = append(doc.Body.Outlines, *folders[n])
	}

	output, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), output...), nil
}
