package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c := Default()
	require.Contains(t, c.Objectives, "Colheita")
	require.Contains(t, c.Properties, "Fazenda Sul")
	require.Len(t, c.Fields, 10)
	require.Equal(t, "05", c.Fields[4])
}

func TestDecodeFallsBackPerList(t *testing.T) {
	c, err := Decode(strings.NewReader("properties:\n  - Fazenda Esperança\n  - ' '\n"))
	require.NoError(t, err)
	require.Equal(t, []string{"Fazenda Esperança"}, c.Properties)
	require.Equal(t, Default().Objectives, c.Objectives)
	require.Equal(t, Default().Fields, c.Fields)
}

func TestDecodeEmptyDocument(t *testing.T) {
	c, err := Decode(strings.NewReader(""))
	require.NoError(t, err)
	require.Equal(t, Default(), c)
}

func TestDecodeRejectsUnknownKeys(t *testing.T) {
	_, err := Decode(strings.NewReader("talhoes: [\"1\"]\n"))
	require.Error(t, err)
}

func TestLoad(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	require.Equal(t, Default(), c)

	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fields: [\"A1\", \"A2\"]\n"), 0o600))
	c, err = Load(path)
	require.NoError(t, err)
	require.Equal(t, []string{"A1", "A2"}, c.Fields)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestExamples(t *testing.T) {
	values := []string{"Colheita", "Plantio", "Irrigação"}
	require.Equal(t, "Colheita, Plantio ou Irrigação", Examples(values, 0))
	require.Equal(t, "Colheita ou Plantio", Examples(values, 2))
	require.Equal(t, "Colheita", Examples(values[:1], 3))
	require.Equal(t, "", Examples(nil, 3))
}
