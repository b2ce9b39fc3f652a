package server

import (
	"encoding/binary"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pior/heapd/b64"
	"github.com/pior/heapd/registry"
	"github.com/pior/heapd/wire"
)

type exchange struct {
	request string
	reply   string
}

func newTestDispatcher(opts DispatchOptions) *Dispatcher {
	return NewDispatcher(registry.New(registry.Config{MaxAllocSize: 1 << 20}), opts)
}

func runExchanges(t *testing.T, d *Dispatcher, script []exchange) {
	t.Helper()
	for _, ex := range script {
		resp, _ := d.Dispatch([]byte(ex.request))
		assert.Equal(t, ex.reply, resp.String(), "request %q", ex.request)
	}
}

func TestDispatchAgeScenario(t *testing.T) {
	var thirty [4]byte
	binary.LittleEndian.PutUint32(thirty[:], 30)
	payload := b64.Encode(thirty[:])
	require.Equal(t, "HgAAAA==", payload)

	runExchanges(t, newTestDispatcher(DispatchOptions{}), []exchange{
		{"ALLOC age 4", "OK"},
		{"WRITE age 0 " + payload, "OK"},
		{"READ age 0 4", "OK HgAAAA=="},
		{"LIST", "OK age:4;"},
		{"FREE age", "OK"},
		{"READ age 0 4", "ERR not_found"},
		{"LIST", "OK "},
	})
}

func TestDispatchDuplicateAlloc(t *testing.T) {
	d := newTestDispatcher(DispatchOptions{})
	runExchanges(t, d, []exchange{
		{"ALLOC x 10", "OK"},
		{"WRITE x 0 MDEyMzQ1Njc4OQ==", "OK"},
		{"ALLOC x 5", "ERR already_exists"},
		{"READ x 0 10", "OK MDEyMzQ1Njc4OQ=="},
		{"LIST", "OK x:10;"},
	})
}

func TestDispatchBounds(t *testing.T) {
	runExchanges(t, newTestDispatcher(DispatchOptions{}), []exchange{
		{"ALLOC x 10", "OK"},
		{"READ x 8 5", "ERR out_of_bounds"},
		{"READ x 8 2", "OK AAA="},
		{"READ x 10 0", "OK "},
		{"READ x 11 0", "ERR out_of_bounds"},
		{"READ x 2 18446744073709551615", "ERR out_of_bounds"},
		{"READ x 18446744073709551615 2", "ERR out_of_bounds"},
		{"WRITE x 8 QUJD", "ERR out_of_bounds"},
		{"WRITE x 7 QUJD", "OK"},
		{"READ x 7 3", "OK QUJD"},
		{"WRITE x 18446744073709551615 QQ==", "ERR out_of_bounds"},
	})
}

func TestDispatchErrors(t *testing.T) {
	runExchanges(t, newTestDispatcher(DispatchOptions{}), []exchange{
		{"", "ERR empty"},
		{"    ", "ERR empty"},
		{"HELLO", "ERR unknown_command"},
		{"alloc x 1", "ERR unknown_command"},
		{"ALLOC", "ERR ALLOC usage"},
		{"ALLOC x", "ERR ALLOC usage"},
		{"ALLOC x 1 2", "ERR ALLOC usage"},
		{"WRITE x 0", "ERR WRITE usage"},
		{"READ x 0", "ERR READ usage"},
		{"FREE", "ERR FREE usage"},
		{"FREE a b", "ERR FREE usage"},
		{"LIST all", "ERR LIST usage"},
		{"EXIT now", "ERR EXIT usage"},
		{"FREE x", "ERR not_found"},
		{"WRITE x 0 !!!!", "ERR not_found"},
		{"READ x 0 0", "ERR not_found"},
		{"ALLOC x 2", "OK"},
		{"WRITE x 0 !!!!", "ERR bad_base64"},
		{"WRITE x 0 QUJ", "ERR bad_base64"},
		{"WRITE x 0 QUJDRA==", "ERR out_of_bounds"},
		{"ALLOC big 2097152", "ERR nomem"},
		{"ALLOC huge 18446744073709551615", "ERR nomem"},
	})
}

func TestDispatchCollapsesSpaces(t *testing.T) {
	runExchanges(t, newTestDispatcher(DispatchOptions{}), []exchange{
		{"  ALLOC   x    3  ", "OK"},
		{"WRITE x  0  QUJD", "OK"},
		{"READ x 0 3 ", "OK QUJD"},
	})
}

func TestDispatchExit(t *testing.T) {
	d := newTestDispatcher(DispatchOptions{})

	resp, exit := d.Dispatch([]byte("EXIT"))
	assert.True(t, exit)
	assert.Equal(t, "OK bye", resp.String())

	for _, line := range []string{"LIST", "EXIT now", "ALLOC a 1"} {
		_, exit = d.Dispatch([]byte(line))
		assert.False(t, exit, line)
	}
}

func TestDispatchLenientNumbers(t *testing.T) {
	runExchanges(t, newTestDispatcher(DispatchOptions{}), []exchange{
		{"ALLOC x abc", "OK"},
		{"LIST", "OK x:0;"},
		{"ALLOC y 4bytes", "OK"},
		{"WRITE y +1 QUJD", "OK"},
		{"READ y zero 4", "OK AEFCQw=="},
		{"ALLOC z -1", "ERR nomem"},
		{"LIST", "OK y:4;x:0;"},
	})
}

func TestDispatchStrictNumbers(t *testing.T) {
	runExchanges(t, newTestDispatcher(DispatchOptions{StrictNumbers: true}), []exchange{
		{"ALLOC x abc", "ERR ALLOC usage"},
		{"ALLOC x -1", "ERR ALLOC usage"},
		{"ALLOC x 4", "OK"},
		{"WRITE x +1 QUJD", "ERR WRITE usage"},
		{"WRITE missing 1x QUJD", "ERR WRITE usage"},
		{"READ x 0 4bytes", "ERR READ usage"},
		{"READ x 0 4", "OK AAAAAA=="},
		{"LIST", "OK x:4;"},
	})
}

func TestDispatchBase64Policies(t *testing.T) {
	t.Run("strict", func(t *testing.T) {
		runExchanges(t, newTestDispatcher(DispatchOptions{Base64Policy: b64.Strict}), []exchange{
			{"ALLOC x 4", "OK"},
			{"WRITE x 0 QQ==", "OK"},
			{"WRITE x 0 QU!D", "ERR bad_base64"},
			{"READ x 0 1", "OK QQ=="},
		})
	})

	t.Run("legacy", func(t *testing.T) {
		runExchanges(t, newTestDispatcher(DispatchOptions{Base64Policy: b64.Legacy}), []exchange{
			{"ALLOC x 4", "OK"},
			{"WRITE x 0 QQ==", "ERR bad_base64"},
			{"WRITE x 0 QU!D", "OK"},
			{"READ x 0 2", "OK QQM="},
		})
	})
}

func TestDispatchListNewestFirst(t *testing.T) {
	d := newTestDispatcher(DispatchOptions{})
	for _, name := range []string{"a", "b", "c"} {
		resp, _ := d.Dispatch([]byte("ALLOC " + name + " 1"))
		require.True(t, resp.IsOK())
	}

	resp, _ := d.Dispatch([]byte("LIST"))
	assert.Equal(t, "OK c:1;b:1;a:1;", resp.String())

	resp, _ = d.Dispatch([]byte("FREE b"))
	require.True(t, resp.IsOK())
	resp, _ = d.Dispatch([]byte("LIST"))
	assert.Equal(t, "c:1;a:1;", resp.Payload)
}

func TestDispatchStats(t *testing.T) {
	d := newTestDispatcher(DispatchOptions{})
	for _, line := range []string{"ALLOC a 1", "ALLOC a 1", "READ a 0 9", "FREE", "BOGUS", "", "LIST", "EXIT"} {
		d.Dispatch([]byte(line))
	}

	stats := d.Stats()
	assert.Equal(t, uint64(2), stats.Commands[wire.CmdAlloc])
	assert.Equal(t, uint64(1), stats.Commands[wire.CmdRead])
	assert.Equal(t, uint64(1), stats.Commands[wire.CmdFree])
	assert.Equal(t, uint64(1), stats.Commands[wire.CmdList])
	assert.Equal(t, uint64(1), stats.Commands[wire.CmdExit])
	assert.Equal(t, uint64(1), stats.Commands[CommandUnknown])

	assert.Equal(t, uint64(1), stats.Errors[wire.ReasonAlreadyExists])
	assert.Equal(t, uint64(1), stats.Errors[wire.ReasonOutOfBounds])
	assert.Equal(t, uint64(1), stats.Errors[ReasonUsage])
	assert.Equal(t, uint64(1), stats.Errors[wire.ReasonUnknownCommand])
	assert.Equal(t, uint64(1), stats.Errors[wire.ReasonEmpty])
	assert.Zero(t, stats.Errors[wire.ReasonNotFound])
}

func BenchmarkDispatchWriteRead(b *testing.B) {
	d := newTestDispatcher(DispatchOptions{})
	d.Dispatch([]byte("ALLOC buf 4096"))
	write := []byte("WRITE buf 0 " + b64.Encode([]byte(strings.Repeat("x", 1024))))
	read := []byte("READ buf 0 1024")

	b.ReportAllocs()
	for b.Loop() {
		d.Dispatch(write)
		d.Dispatch(read)
	}
}
