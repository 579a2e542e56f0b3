package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	dErrors "vigil/pkg/domain-errors"
)

func TestParseAccountID(t *testing.T) {
	valid := NewAccountID()
	parsed, err := ParseAccountID(valid.String())
	require.NoError(t, err)
	require.Equal(t, valid, parsed)

	for _, bad := range []string{"", "not-a-uuid", "00000000-0000-0000-0000-000000000000"} {
		_, err := ParseAccountID(bad)
		require.Error(t, err, "input %q", bad)
		require.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	}
}

func TestIDJSONRoundTrip(t *testing.T) {
	reportID := NewReportID()

	raw, err := json.Marshal(reportID)
	require.NoError(t, err)
	require.JSONEq(t, `"`+reportID.String()+`"`, string(raw))

	var decoded ReportID
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Equal(t, reportID, decoded)
}
