package ecourts

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewCourtWhitelist(t *testing.T) {
	for key := range courtNames {
		court, err := NewCourt(key.state, "", key.court)
		require.NoError(t, err, "state=%s court=%s", key.state, key.court)
		require.Equal(t, "1", court.DistrictCode())

		if key.court == "" {
			alias, err := NewCourt(key.state, "", "1")
			require.NoError(t, err)
			require.True(t, court.Equal(alias))
		}
	}

	cases := []struct {
		state string
		court string
	}{
		{state: "14", court: ""},
		{state: "1", court: "7"},
		{state: "", court: ""},
		{state: "2", court: "2"},
		{state: "29", court: "3"},
	}
	for _, test := range cases {
		_, err := NewCourt(test.state, "", test.court)
		require.Error(t, err)
		require.True(t, errors.Is(err, ErrInvalidCourt))
	}
}

func TestCourtQueryParams(t *testing.T) {
	court, err := NewCourt("6", "", "")
	require.NoError(t, err)
	require.Equal(t, map[string]string{
		"state_code": "6",
		"dist_code":  "1",
		"court_code": "1",
	}, court.QueryParams())

	bench, err := NewCourt("1", "2", "3")
	require.NoError(t, err)
	require.Equal(t, "3", bench.QueryParams()["court_code"])
	require.Equal(t, "2", bench.QueryParams()["dist_code"])
	require.Equal(t, "Bombay High Court - Bench At Aurangabad", bench.Name())
}

func TestCourtsEnumeration(t *testing.T) {
	courts := Courts()
	require.Len(t, courts, len(courtNames))
	require.Equal(t, "1", courts[0].StateCode())
	require.Equal(t, "29", courts[len(courts)-1].StateCode())
	for _, c := range courts {
		_, err := NewCourt(c.StateCode(), c.DistrictCode(), c.CourtCode())
		require.NoError(t, err)
	}
}

func TestCourtJSON(t *testing.T) {
	court, err := NewCourt("10", "", "2")
	require.NoError(t, err)
	data, err := json.Marshal(court)
	require.NoError(t, err)

	var decoded Court
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.True(t, court.Equal(decoded))

	err = json.Unmarshal([]byte(`{"state_code":"99","district_code":"1"}`), &decoded)
	require.ErrorIs(t, err, ErrInvalidCourt)
}
