package archive

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func openTestArchive(t testing.TB, ttl time.Duration) *Archive {
	a, err := Open(Options{
		BaseURL: "https://hcservices.ecourts.gov.in/ecourtindiaHC",
		TTL:     ttl,
	})
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func TestKey(t *testing.T) {
	a := openTestArchive(t, 0)

	cases := []struct {
		endpoint string
		params   map[string]string
		expect   string
	}{
		{
			endpoint: "/ecourtindiaHC/cases/case_no_qry.php",
			params:   map[string]string{"state_code": "10", "case_no": "20", "captcha": "ab12c"},
			expect:   "response:https://hcservices.ecourts.gov.in/ecourtindiaHC/cases/case_no_qry.php?case_no=20&state_code=10",
		},
		{
			endpoint: "cases/display_pdf.php?filename=a.pdf",
			params:   map[string]string{"cino": "X"},
			expect:   "response:https://hcservices.ecourts.gov.in/cases/display_pdf.php?cino=X&filename=a.pdf",
		},
		{
			endpoint: "https://HCSERVICES.ecourts.gov.in:443/ecourtindiaHC/cases/../cases/s_casetype.php",
			expect:   "response:https://hcservices.ecourts.gov.in/ecourtindiaHC/cases/s_casetype.php",
		},
		{
			endpoint: "/ecourtindiaHC/cases/o_civil_case_history.php",
			params:   map[string]string{"cino": "DLHC010123452019"},
			expect:   "response:https://hcservices.ecourts.gov.in/ecourtindiaHC/cases/o_civil_case_history.php?cino=DLHC010123452019",
		},
	}
	for _, tc := range cases {
		key, err := a.Key(tc.endpoint, tc.params)
		require.NoError(t, err)
		require.Equal(t, tc.expect, key)
		require.NotContains(t, key, ".php/")
	}
}

func TestPutGet(t *testing.T) {
	ctx := context.Background()
	a := openTestArchive(t, time.Hour)

	_, err := a.Get(ctx, "/cases/case_no_qry.php", nil)
	require.ErrorIs(t, err, ErrNotArchived)

	params := map[string]string{"case_no": "20", "captcha": "first"}
	require.NoError(t, a.Put(ctx, "/cases/case_no_qry.php", params, []byte("list payload")))

	// a different captcha is the same request
	body, err := a.Get(ctx, "/cases/case_no_qry.php", map[string]string{"case_no": "20", "captcha": "second"})
	require.NoError(t, err)
	require.Equal(t, "list payload", string(body))

	_, err = a.GetCase(ctx, "DLHC010000012021")
	require.ErrorIs(t, err, ErrNotArchived)
	require.NoError(t, a.PutCase(ctx, "DLHC010000012021", []byte("<html></html>")))
	doc, err := a.GetCase(ctx, "DLHC010000012021")
	require.NoError(t, err)
	require.Equal(t, "<html></html>", string(doc))
}
