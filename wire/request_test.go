package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		line string
		want []string
	}{
		{"", nil},
		{"   ", nil},
		{"LIST", []string{"LIST"}},
		{"ALLOC age 4", []string{"ALLOC", "age", "4"}},
		{"  READ   x 0    4  ", []string{"READ", "x", "0", "4"}},
		{"WRITE a\tb 0 TQ==", []string{"WRITE", "a\tb", "0", "TQ=="}},
		{"FREE name\r", []string{"FREE", "name\r"}},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Tokenize(tt.line), "line %q", tt.line)
	}
}

func TestParseRequest(t *testing.T) {
	req, err := ParseRequest([]byte("WRITE age 0 HgAAAA=="))
	require.NoError(t, err)
	assert.Equal(t, CmdWrite, req.Command)
	assert.Equal(t, []string{"age", "0", "HgAAAA=="}, req.Args)
	assert.Equal(t, "age", req.Arg(0))
	assert.Equal(t, "", req.Arg(3))
	assert.Equal(t, "", req.Arg(-1))

	req, err = ParseRequest([]byte("list"))
	require.NoError(t, err)
	assert.Equal(t, CmdType("list"), req.Command, "commands are case-sensitive")
	assert.Empty(t, req.Args)

	_, err = ParseRequest([]byte("    "))
	require.ErrorIs(t, err, ErrEmpty)
}

func TestArity(t *testing.T) {
	tests := []struct {
		cmd    CmdType
		want   int
		wantOK bool
	}{
		{CmdAlloc, 2, true},
		{CmdWrite, 3, true},
		{CmdRead, 3, true},
		{CmdFree, 1, true},
		{CmdList, 0, true},
		{CmdExit, 0, true},
		{"alloc", 0, false},
		{"STATS", 0, false},
	}

	for _, tt := range tests {
		n, ok := tt.cmd.Arity()
		assert.Equal(t, tt.want, n, string(tt.cmd))
		assert.Equal(t, tt.wantOK, ok, string(tt.cmd))
	}
}

func TestValidateToken(t *testing.T) {
	assert.NoError(t, ValidateToken("age"))
	assert.NoError(t, ValidateToken("a\tb"))

	for _, tok := range []string{"", "a b", "a\nb", " "} {
		err := ValidateToken(tok)
		var invalid *InvalidTokenError
		require.ErrorAs(t, err, &invalid, "token %q", tok)
		assert.False(t, ShouldCloseConnection(err))
	}
}
