package chores

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsValidSchedule(t *testing.T) {
	t.Parallel()
	cases := []struct {
		expr string
		want bool
	}{
		{"0 9 * * *", true},
		{"0 0 * * 0", true},
		{"30 0 9 * * 1-5", true},
		{"0 18 * * 1,3,5", true},
		{"@daily", true},
		{"@every 1h", true},
		{"@now", true},
		{" @NOW ", true},
		{"", false},
		{"every day", false},
		{"61 * * * *", false},
		{"* * *", false},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, IsValidSchedule(tc.expr), tc.expr)
	}
}

func TestIsImmediate(t *testing.T) {
	t.Parallel()
	require.True(t, IsImmediate("@now"))
	require.True(t, IsImmediate(" @Now"))
	require.False(t, IsImmediate("@daily"))
}
