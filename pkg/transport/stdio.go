package transport

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/richard-senior/matchpredict/internal/logger"
	"github.com/richard-senior/matchpredict/pkg/protocol"
)

// StdioTransport exchanges newline separated JSON-RPC messages over a reader and writer pair.
type StdioTransport struct {
	reader *bufio.Reader
	writer *bufio.Writer
}

// NewStdioTransport creates a new transport that uses stdin/stdout
func NewStdioTransport() *StdioTransport {
	return NewStreamTransport(os.Stdin, os.Stdout)
}

func NewStreamTransport(r io.Reader, w io.Writer) *StdioTransport {
	return &StdioTransport{
		reader: bufio.NewReader(r),
		writer: bufio.NewWriter(w),
	}
}

// ReadRequest reads one JSON object, counting braces outside string literals to find its end.
// io.EOF is returned unchanged when the client goes away between messages.
func (t *StdioTransport) ReadRequest() (*protocol.JsonRpcRequest, error) {
	var requestData []byte
	var depth int
	var inString, escapeNext bool

	for {
		b, err := t.reader.ReadByte()
		if err != nil {
			if err == io.EOF && strings.TrimSpace(string(requestData)) != "" {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}
		if depth == 0 && b != '{' {
			// whitespace between messages
			continue
		}
		requestData = append(requestData, b)

		if inString {
			switch {
			case escapeNext:
				escapeNext = false
			case b == '\\':
				escapeNext = true
			case b == '"':
				inString = false
			}
			continue
		}
		switch b {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
		}
		if depth == 0 {
			break
		}
	}

	logger.Debug("Received raw request:", string(requestData))
	request, err := protocol.ParseJsonRpcRequest(requestData)
	if err != nil {
		return nil, err
	}
	return request, nil
}

// WriteResponse writes a JSON-RPC response followed by a newline and flushes it.
func (t *StdioTransport) WriteResponse(response *protocol.JsonRpcResponse) error {
	responseBytes, err := json.Marshal(response)
	if err != nil {
		logger.Error("Failed to marshal response:", err)
		return err
	}
	responseBytes = append(responseBytes, '\n')

	if _, err := t.writer.Write(responseBytes); err != nil {
		return err
	}
	return t.writer.Flush()
}
