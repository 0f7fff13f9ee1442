package filter

import (
	"testing"

	"github.com/bryan-buckman/newsreader/internal/model"
	"github.com/stretchr/testify/assert"
)

func articles() []model.Article {
	return []model.Article{
		{ID: 1, Title: "Go 1.24 Released", Category: "TECHNOLOGY"},
		{ID: 2, Title: "Election results are in", Category: "POLITICS"},
		{ID: 3, Title: "Rust and Go compared", Category: "technology"},
		{ID: 4, Title: "Celebrity gossip", Category: "ENTERTAINMENT", Hidden: true},
		{ID: 5, Title: "Markets rally", Category: "FINANCE", Saved: true},
	}
}

func ids(as []model.Article) []int64 {
	out := make([]int64, 0, len(as))
	for _, a := range as {
		out = append(out, a.ID)
	}
	return out
}

func TestBlacklist(t *testing.T) {
	tests := []struct {
		name      string
		blacklist []string
		want      []int64
	}{
		{"empty is identity", nil, []int64{1, 2, 3, 4, 5}},
		{"blank keywords ignored", []string{"", "  "}, []int64{1, 2, 3, 4, 5}},
		{"case insensitive", []string{"ELECTION"}, []int64{1, 3, 4, 5}},
		{"any keyword", []string{"go", "markets"}, []int64{2, 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(Blacklist(articles(), tt.blacklist)))
		})
	}
}

func TestForYouEmptyWhitelistIsEmpty(t *testing.T) {
	assert.Empty(t, ForYou(articles(), nil, nil))
	assert.Empty(t, ForYou(articles(), []string{" "}, nil))
	assert.NotNil(t, ForYou(articles(), nil, nil))
}

func TestForYou(t *testing.T) {
	assert.Equal(t, []int64{1, 3}, ids(ForYou(articles(), []string{"go"}, nil)))
	assert.Equal(t, []int64{1}, ids(ForYou(articles(), []string{"go"}, []string{"rust"})))
	assert.Empty(t, ForYou(articles(), []string{"weather"}, nil))
}

func TestByCategory(t *testing.T) {
	assert.Equal(t, []int64{1, 3}, ids(ByCategory(articles(), "Technology", nil)))
	assert.Len(t, ByCategory(articles(), AllCategory, nil), 5)
	assert.Len(t, ByCategory(articles(), "all", nil), 5)
	assert.Equal(t, []int64{3}, ids(ByCategory(articles(), "TECHNOLOGY", []string{"released"})))
}

func TestApply(t *testing.T) {
	all := Apply(articles(), FilterSet{View: ViewAll, Category: AllCategory})
	assert.Equal(t, []int64{1, 2, 3, 5}, ids(all))

	saved := Apply(articles(), FilterSet{View: ViewSaved})
	assert.Equal(t, []int64{5}, ids(saved))

	forYou := Apply(articles(), FilterSet{View: ViewForYou, Whitelist: []string{"go", "gossip"}, Category: "technology"})
	assert.Equal(t, []int64{1, 3}, ids(forYou))

	assert.Empty(t, Apply(articles(), FilterSet{View: ViewForYou}))
}

func TestInputNotMutated(t *testing.T) {
	in := articles()
	_ = ByCategory(in, "POLITICS", []string{"go"})
	assert.Equal(t, articles(), in)
}
