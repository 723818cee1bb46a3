package i18n

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	tr := Default()

	assert.Equal(t, "en", tr.Lang())
	assert.Equal(t, "Cart cleared.", tr.T("cart.cleared"))
	assert.Equal(t, "Your cart has 2 line(s).", tr.Tf("cart.summary", 2))
	assert.Equal(t, "missing.key", tr.T("missing.key"))
}

func TestLoadFS_Fallback(t *testing.T) {
	fsys := fstest.MapFS{
		"loc/en.yaml": {Data: []byte("en:\n  a:\n    b: hello\n  c: world\n")},
		"loc/es.yml":  {Data: []byte("es:\n  a:\n    b: hola\n")},
		"loc/notes":   {Data: []byte("ignored")},
	}

	m, err := LoadFS(fsys, "loc", "en")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"en", "es"}, m.Languages())

	es := m.Translator("ES")
	assert.Equal(t, "hola", es.T("a.b"))
	assert.Equal(t, "world", es.T("c"))

	assert.Equal(t, "en", m.Translator("fr").Lang())
}

func TestLoadFS_Errors(t *testing.T) {
	_, err := LoadFS(fstest.MapFS{"loc/readme.txt": {Data: []byte("x")}}, "loc", "en")
	assert.Error(t, err)

	_, err = LoadFS(fstest.MapFS{"loc/es.yaml": {Data: []byte("es:\n  a: b\n")}}, "loc", "en")
	assert.Error(t, err)
}
