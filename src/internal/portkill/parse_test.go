package portkill

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const netstatSample = `
Active Connections

  Proto  Local Address          Foreign Address        State           PID
  TCP    0.0.0.0:135            0.0.0.0:0              LISTENING       1044
  TCP    0.0.0.0:30001          0.0.0.0:0              LISTENING       7777
  TCP    127.0.0.1:3000         127.0.0.1:52110        TIME_WAIT       0
  TCP    0.0.0.0:3000           0.0.0.0:0              LISTENING       4321
  TCP    [::]:3000              [::]:0                 LISTENING       4321
  TCP    127.0.0.1:52110        127.0.0.1:3000         ESTABLISHED     9999
  UDP    0.0.0.0:5353           *:*                                    2200
  UDP    0.0.0.0:4000           *:*                                    3300
`

func TestParseLsofPIDs(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []int
		wantErr bool
	}{
		{name: "single pid", input: "1234\n", want: []int{1234}},
		{name: "several pids", input: "1234\n5678\n", want: []int{1234, 5678}},
		{name: "duplicates dropped", input: "1234\n5678\n1234\n", want: []int{1234, 5678}},
		{name: "blank lines and padding", input: "\n  42 \r\n\n", want: []int{42}},
		{name: "empty output", input: "", want: nil},
		{name: "garbage", input: "COMMAND PID\n", wantErr: true},
		{name: "zero pid", input: "0\n", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLsofPIDs([]byte(tt.input))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseNetstat(t *testing.T) {
	entries := ParseNetstat([]byte(netstatSample))
	require.Len(t, entries, 8, "headers and blank lines should be skipped")

	assert.Equal(t, NetstatEntry{
		Proto:       "TCP",
		LocalAddr:   "0.0.0.0:135",
		ForeignAddr: "0.0.0.0:0",
		State:       "LISTENING",
		PID:         1044,
	}, entries[0])

	udp := entries[6]
	assert.Equal(t, "UDP", udp.Proto)
	assert.Equal(t, "0.0.0.0:5353", udp.LocalAddr)
	assert.Empty(t, udp.State)
	assert.Equal(t, 2200, udp.PID)
}

func TestParseNetstat_ListeningRowPIDIsLastColumn(t *testing.T) {
	out := "  TCP    0.0.0.0:8080           0.0.0.0:0              LISTENING       5150\n"

	entries := ParseNetstat([]byte(out))
	require.Len(t, entries, 1)
	assert.Equal(t, "LISTENING", entries[0].State, "the fourth field of a TCP row is the state")
	assert.Equal(t, 5150, entries[0].PID)

	pid, ok := FindNetstatPID(entries, 8080)
	require.True(t, ok)
	assert.Equal(t, 5150, pid)
}

func TestFindNetstatPID(t *testing.T) {
	entries := ParseNetstat([]byte(netstatSample))

	tests := []struct {
		name   string
		port   int
		want   int
		wantOK bool
	}{
		// The TIME_WAIT row comes first but belongs to PID 0.
		{name: "listening owner", port: 3000, want: 4321, wantOK: true},
		{name: "port suffix must be whole", port: 300, wantOK: false},
		{name: "longer port matches exactly", port: 30001, want: 7777, wantOK: true},
		{name: "udp rows ignored", port: 4000, wantOK: false},
		{name: "local side only", port: 52110, want: 9999, wantOK: true},
		{name: "no match", port: 8080, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pid, ok := FindNetstatPID(entries, tt.port)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, pid)
			}
		})
	}
}

func TestFindNetstatPID_Empty(t *testing.T) {
	_, ok := FindNetstatPID(nil, 3000)
	assert.False(t, ok)

	_, ok = FindNetstatPID(ParseNetstat([]byte("no rows here\n")), 3000)
	assert.False(t, ok)
}
