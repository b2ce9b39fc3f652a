package b64

import (
	"bytes"
	"encoding/base64"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		in   []byte
		want string
	}{
		{nil, ""},
		{[]byte("M"), "TQ=="},
		{[]byte("Ma"), "TWE="},
		{[]byte("Man"), "TWFu"},
		{[]byte{0x1e, 0, 0, 0}, "HgAAAA=="},
		{[]byte{0xfb, 0xff}, "+/8="},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Encode(tt.in))
		assert.Equal(t, len(tt.want), EncodedLen(len(tt.in)))
		assert.Equal(t, "x"+tt.want, string(AppendEncode([]byte("x"), tt.in)))
	}
}

func TestDecodeStrict(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    []byte
		wantErr error
	}{
		{name: "empty", in: "", want: []byte{}},
		{name: "full group", in: "TWFu", want: []byte("Man")},
		{name: "one pad", in: "TWE=", want: []byte("Ma")},
		{name: "two pads", in: "TQ==", want: []byte("M")},
		{name: "little endian 30", in: "HgAAAA==", want: []byte{0x1e, 0, 0, 0}},
		{name: "plus and slash", in: "+/8=", want: []byte{0xfb, 0xff}},
		{name: "short", in: "TWF", wantErr: ErrLength},
		{name: "long", in: "TWFuT", wantErr: ErrLength},
		{name: "bad first", in: "!WFu", wantErr: CorruptInputError(0)},
		{name: "bad second", in: "T!Fu", wantErr: CorruptInputError(1)},
		{name: "bad third", in: "TW!u", wantErr: CorruptInputError(2)},
		{name: "bad fourth", in: "TWF!", wantErr: CorruptInputError(3)},
		{name: "pad in first", in: "=WFu", wantErr: CorruptInputError(0)},
		{name: "pad then data", in: "TW=u", wantErr: CorruptInputError(3)},
		{name: "pad before last group", in: "TQ==TWFu", wantErr: CorruptInputError(2)},
		{name: "single pad before last group", in: "TWE=TWFu", wantErr: CorruptInputError(3)},
		{name: "carriage return", in: "TWFu\r\n\r\n", wantErr: CorruptInputError(4)},
		{name: "space", in: "TW u", wantErr: CorruptInputError(2)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.in, Strict)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeLegacy(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    []byte
		wantErr error
	}{
		{name: "empty", in: "", want: []byte{}},
		{name: "full group", in: "TWFu", want: []byte("Man")},
		{name: "padding rejected in third", in: "TQ==", wantErr: CorruptInputError(2)},
		{name: "padding rejected in fourth", in: "TWE=", wantErr: CorruptInputError(3)},
		{name: "short", in: "TWF", wantErr: ErrLength},
		{name: "bad first", in: "!WFu", wantErr: CorruptInputError(0)},
		{name: "bad second", in: "T!Fu", wantErr: CorruptInputError(1)},
		{name: "bad third drops byte", in: "TW!u", want: []byte{'M', 0x2e}},
		{name: "bad fourth drops byte", in: "TWF!", want: []byte("Ma")},
		{name: "both bad", in: "TW!!", want: []byte("M")},
		{name: "bad in middle group", in: "TW!!TWFu", want: []byte("MMan")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.in, Legacy)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for n := 0; n <= 64; n++ {
		src := make([]byte, n)
		rng.Read(src)

		got, err := Decode(Encode(src), Strict)
		require.NoError(t, err, "len %d", n)
		assert.True(t, bytes.Equal(src, got), "len %d", n)

		// Legacy only accepts unpadded encodings.
		if n%3 == 0 {
			got, err = Decode(Encode(src), Legacy)
			require.NoError(t, err, "len %d", n)
			assert.True(t, bytes.Equal(src, got), "len %d", n)
		}
	}
}

func TestPolicyString(t *testing.T) {
	for _, p := range []Policy{Strict, Legacy} {
		parsed, err := ParsePolicy(p.String())
		require.NoError(t, err)
		assert.Equal(t, p, parsed)
	}

	_, err := ParsePolicy("loose")
	assert.Error(t, err)
	assert.Equal(t, "Policy(7)", Policy(7).String())
}

// FuzzDecodeStrict checks the strict decoder against encoding/base64 in strict
// mode. The stdlib silently drops '\r' and '\n', so those inputs are skipped.
// Run with: go test -fuzz='^FuzzDecodeStrict$' -fuzztime=60s ./b64
func FuzzDecodeStrict(f *testing.F) {
	f.Add("")
	f.Add("TWFu")
	f.Add("TQ==")
	f.Add("TWE=")
	f.Add("TW=u")
	f.Add("HgAAAA==")
	f.Add("TQ==TWFu")

	f.Fuzz(func(t *testing.T, s string) {
		if strings.ContainsAny(s, "\r\n") {
			t.Skip()
		}
		got, err := Decode(s, Strict)
		if err != nil {
			return
		}

		// Non-zero trailing bits are accepted here and rejected by the stdlib
		// in strict mode, so compare against the lenient stdlib decoder.
		want, stdErr := base64.StdEncoding.DecodeString(s)
		require.NoError(t, stdErr, "input %q", s)
		require.Equal(t, want, got)

		require.Equal(t, Encode(got), Encode(want))
	})
}

func FuzzRoundTrip(f *testing.F) {
	f.Add([]byte{})
	f.Add([]byte("hello"))
	f.Add([]byte{0, 0, 0, 0})

	f.Fuzz(func(t *testing.T, src []byte) {
		got, err := Decode(Encode(src), Strict)
		require.NoError(t, err)
		require.True(t, bytes.Equal(src, got))
	})
}

func BenchmarkEncode(b *testing.B) {
	src := bytes.Repeat([]byte{0xab}, 4096)
	b.SetBytes(int64(len(src)))
	b.ReportAllocs()
	for b.Loop() {
		_ = Encode(src)
	}
}

func BenchmarkDecodeStrict(b *testing.B) {
	s := Encode(bytes.Repeat([]byte{0xab}, 4096))
	b.SetBytes(int64(len(s)))
	b.ReportAllocs()
	for b.Loop() {
		_, _ = Decode(s, Strict)
	}
}
