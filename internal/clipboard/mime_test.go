package clipboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMIMEFromAtomKnown(t *testing.T) {
	assert.Equal(t, "text/plain;charset=utf-8", MIMEFromAtom("UTF8_STRING"))
	assert.Equal(t, "text/uri-list", MIMEFromAtom("text/uri-list"))
}

func TestMIMEFromAtomUnknownPassesThrough(t *testing.T) {
	assert.Equal(t, "application/x-my-custom-atom", MIMEFromAtom("application/x-my-custom-atom"))
}

func TestAtomFromMIMERoundTrip(t *testing.T) {
	for _, mime := range []string{"text/plain;charset=utf-8", "text/html", "image/png"} {
		atom := AtomFromMIME(mime)
		assert.Equal(t, mime, MIMEFromAtom(atom))
	}
}
