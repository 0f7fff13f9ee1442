package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "warn")
	l.Info("hidden")
	l.Warn("shown", "feed", "http://a.example")
	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "feed=http://a.example")
}

func TestNewUnknownLevelIsInfo(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "loud")
	l.Debug("quiet")
	l.Info("normal")
	assert.NotContains(t, buf.String(), "quiet")
	assert.Contains(t, buf.String(), "normal")
}

func TestOrDiscard(t *testing.T) {
	assert.NotNil(t, OrDiscard(nil))
	l := Discard()
	assert.Same(t, l, OrDiscard(l))
}
