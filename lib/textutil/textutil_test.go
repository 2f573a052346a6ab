package textutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeName(t *testing.T) {
	require.Equal(t, "wpc", NormalizeName(" W.P.(C) \n"))
	require.Equal(t, "crla", NormalizeName("CRL.A"))
}

func TestClosest(t *testing.T) {
	candidates := []string{"W.P.(C)", "CRL.A.", "FAO", "LPA", "CS(OS)"}

	cases := []struct {
		query string
		index int
	}{
		{query: "wp(c)", index: 0},
		{query: "CRL A", index: 1},
		{query: "CS OS", index: 4},
		{query: "LPAA", index: 3},
	}
	for _, tc := range cases {
		t.Run(tc.query, func(t *testing.T) {
			index, similarity := Closest(tc.query, candidates)
			require.Equal(t, tc.index, index)
			require.Greater(t, similarity, 0.8)
		})
	}

	index, _ := Closest("anything", nil)
	require.Equal(t, -1, index)
}
