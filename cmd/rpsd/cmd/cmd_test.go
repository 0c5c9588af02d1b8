package cmd

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"onchainrps/internal/commitment"
	"onchainrps/internal/rps"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestCommitCmd(t *testing.T) {
	salt := "0x" + strings.Repeat("ab", 32)
	out, err := run(t, "commit", "--move", "scissors", "--salt", salt)
	require.NoError(t, err)

	var got struct {
		Move       string `json:"move"`
		MoveValue  uint8  `json:"moveValue"`
		Salt       string `json:"salt"`
		Commitment string `json:"commitment"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Equal(t, "scissors", got.Move)
	require.Equal(t, uint8(2), got.MoveValue)
	require.Equal(t, salt, got.Salt)

	s, err := commitment.SaltFromInput(salt)
	require.NoError(t, err)
	require.Equal(t, commitment.Commit(rps.Scissors, s).String(), got.Commitment)
}

func TestCommitCmd_RejectsBadMove(t *testing.T) {
	_, err := run(t, "commit", "--move", "lizard")
	require.Error(t, err)
}

func TestSaltCmd_Deterministic(t *testing.T) {
	a, err := run(t, "salt", "correct horse")
	require.NoError(t, err)
	b, err := run(t, "salt", "correct horse")
	require.NoError(t, err)
	require.Equal(t, a, b)
	require.Len(t, strings.TrimSpace(a), 66)
}

func TestVersionCmd(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	require.Equal(t, Version, strings.TrimSpace(out))
}
