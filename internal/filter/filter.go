// Package filter derives the user-visible article views. Every function is
// pure and returns a new slice, leaving its input untouched.
package filter

import (
	"strings"

	"github.com/bryan-buckman/newsreader/internal/model"
)

// AllCategory passes every category through ByCategory.
const AllCategory = "All"

// View selects which list an article query renders.
type View string

const (
	ViewAll    View = "all"
	ViewForYou View = "foryou"
	ViewSaved  View = "saved"
)

// FilterSet is the full set of presentation filters.
type FilterSet struct {
	View      View
	Category  string // AllCategory or "" means no category filter
	Whitelist []string
	Blacklist []string
}

// keywords lower-cases and drops blank entries.
func keywords(list []string) []string {
	out := make([]string, 0, len(list))
	for _, k := range list {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			out = append(out, k)
		}
	}
	return out
}

func titleHasAny(title string, kws []string) bool {
	t := strings.ToLower(title)
	for _, k := range kws {
		if strings.Contains(t, k) {
			return true
		}
	}
	return false
}

// MatchesAny reports whether title contains any keyword, ignoring case.
// Blank keywords never match.
func MatchesAny(title string, list []string) bool {
	return titleHasAny(title, keywords(list))
}

// Blacklist drops articles whose title contains a blacklisted keyword.
// An empty blacklist keeps everything.
func Blacklist(articles []model.Article, blacklist []string) []model.Article {
	kws := keywords(blacklist)
	out := make([]model.Article, 0, len(articles))
	for _, a := range articles {
		if len(kws) > 0 && titleHasAny(a.Title, kws) {
			continue
		}
		out = append(out, a)
	}
	return out
}

// ForYou keeps blacklist-filtered articles whose title matches at least one
// whitelist keyword. An empty whitelist yields no articles at all.
func ForYou(articles []model.Article, whitelist, blacklist []string) []model.Article {
	wl := keywords(whitelist)
	if len(wl) == 0 {
		return []model.Article{}
	}
	var out []model.Article
	for _, a := range Blacklist(articles, blacklist) {
		if titleHasAny(a.Title, wl) {
			out = append(out, a)
		}
	}
	if out == nil {
		out = []model.Article{}
	}
	return out
}

// ByCategory keeps blacklist-filtered articles in category, compared without
// case. AllCategory and "" keep every category.
func ByCategory(articles []model.Article, category string, blacklist []string) []model.Article {
	kept := Blacklist(articles, blacklist)
	if category == "" || strings.EqualFold(category, AllCategory) {
		return kept
	}
	out := kept[:0]
	for _, a := range kept {
		if strings.EqualFold(a.Category, category) {
			out = append(out, a)
		}
	}
	return out
}

// Apply composes the filters for a FilterSet. Hidden articles never appear.
func Apply(articles []model.Article, fs FilterSet) []model.Article {
	visible := make([]model.Article, 0, len(articles))
	for _, a := range articles {
		if a.Hidden {
			continue
		}
		if fs.View == ViewSaved && !a.Saved {
			continue
		}
		visible = append(visible, a)
	}
	if fs.View == ViewForYou {
		return ByCategory(ForYou(visible, fs.Whitelist, fs.Blacklist), fs.Category, nil)
	}
	return ByCategory(visible, fs.Category, fs.Blacklist)
}
