package transcript

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitFields(t *testing.T) {
	fields := SplitFields("lagarta nas folhas ponto Fazenda Sul Ponto lagarta do cartucho", "ponto")
	require.Equal(t, []string{"lagarta nas folhas", "Fazenda Sul", "lagarta do cartucho"}, fields)
}

func TestSplitFieldsSkipsEmptyParts(t *testing.T) {
	require.Equal(t, []string{"descrição"}, SplitFields("ponto descrição ponto ponto", "ponto"))
	require.Nil(t, SplitFields("   ", "ponto"))
}

func TestSplitFieldsWithoutSeparator(t *testing.T) {
	require.Equal(t, []string{"tudo junto"}, SplitFields(" tudo  junto ", ""))
}

func TestFieldOr(t *testing.T) {
	fields := []string{"a"}
	require.Equal(t, "a", FieldOr(fields, 0, "x"))
	require.Equal(t, "x", FieldOr(fields, 1, "x"))
	require.Equal(t, "x", FieldOr(fields, -1, "x"))
}
