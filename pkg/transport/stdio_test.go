package transport

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/richard-senior/matchpredict/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamTransportReadsConsecutiveRequests(t *testing.T) {
	in := `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"predict_match","arguments":{"home":"Brighton {A}","away":"Say \"hi\" }"}}}
{"jsonrpc":"2.0","method":"notifications/initialized"}
`
	tr := NewStreamTransport(strings.NewReader(in), io.Discard)

	req, err := tr.ReadRequest()
	require.NoError(t, err)
	assert.Equal(t, "tools/call", req.Method)
	var params protocol.ToolCallParams
	require.NoError(t, json.Unmarshal(req.Params, &params))
	assert.Equal(t, "Brighton {A}", params.Arguments["home"])
	assert.Equal(t, `Say "hi" }`, params.Arguments["away"])

	req, err = tr.ReadRequest()
	require.NoError(t, err)
	assert.Equal(t, "notifications/initialized", req.Method)
	assert.Nil(t, req.ID)

	_, err = tr.ReadRequest()
	assert.Equal(t, io.EOF, err)
}

func TestStreamTransportTruncatedMessage(t *testing.T) {
	tr := NewStreamTransport(strings.NewReader(`{"jsonrpc":"2.0","id":1,`), io.Discard)
	_, err := tr.ReadRequest()
	assert.Equal(t, io.ErrUnexpectedEOF, err)
}

func TestStreamTransportWritesLines(t *testing.T) {
	var out bytes.Buffer
	tr := NewStreamTransport(strings.NewReader(""), &out)
	resp, err := protocol.NewJsonRpcResponse(map[string]string{"ok": "yes"}, 7)
	require.NoError(t, err)
	require.NoError(t, tr.WriteResponse(resp))

	line := out.String()
	assert.True(t, strings.HasSuffix(line, "\n"))
	parsed, err := protocol.ParseJsonRpcResponse([]byte(line))
	require.NoError(t, err)
	assert.EqualValues(t, 7, parsed.ID)
}
