package transport

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/richard-senior/podds/internal/logger"
	"github.com/richard-senior/podds/pkg/protocol"
)

// StdioTransport reads JSON-RPC requests from a stream and writes one response per line.
// Requests are framed by brace depth rather than newlines, so pretty printed input works too
type StdioTransport struct {
	reader *bufio.Reader
	writer *bufio.Writer
	mu     sync.Mutex
}

// NewStdioTransport creates a new transport that uses stdin/stdout
func NewStdioTransport() *StdioTransport {
	return NewStreamTransport(os.Stdin, os.Stdout)
}

// NewStreamTransport creates a transport over arbitrary streams
func NewStreamTransport(r io.Reader, w io.Writer) *StdioTransport {
	return &StdioTransport{
		reader: bufio.NewReader(r),
		writer: bufio.NewWriter(w),
	}
}

// ReadRequest reads the next JSON object from the stream.
// io.EOF means the client went away. A malformed object is returned as a *protocol.JsonRpcError
// so the caller can answer it and carry on
func (t *StdioTransport) ReadRequest() (*protocol.JsonRpcRequest, error) {
	var requestData []byte
	var depth int
	var inString, escapeNext, started bool

	for {
		b, err := t.reader.ReadByte()
		if err != nil {
			if err == io.EOF {
				if started {
					logger.Warn("Stream closed mid request")
				}
				logger.Debug("Received EOF, client disconnected")
				return nil, io.EOF
			}
			logger.Error("Error reading request:", err)
			return nil, err
		}

		// Skip whitespace and stray bytes between objects
		if !started {
			if b != '{' {
				continue
			}
			started = true
		}
		requestData = append(requestData, b)

		if escapeNext {
			escapeNext = false
			continue
		}
		if inString {
			switch b {
			case '\\':
				escapeNext = true
			case '"':
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

	requestStr := strings.TrimSpace(string(requestData))
	logger.Debug("Received raw request:", requestStr)

	return protocol.ParseJsonRpcRequest([]byte(requestStr))
}

// WriteResponse writes a JSON-RPC response as a single line
func (t *StdioTransport) WriteResponse(response *protocol.JsonRpcResponse) error {
	responseBytes, err := json.Marshal(response)
	if err != nil {
		logger.Error("Failed to marshal response:", err)
		return err
	}
	responseBytes = append(responseBytes, '\n')

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, err := t.writer.Write(responseBytes); err != nil {
		logger.Error("Failed to write response:", err)
		return err
	}
	if err := t.writer.Flush(); err != nil {
		logger.Error("Failed to flush response:", err)
		return err
	}
	logger.Debug("Sent response:", string(responseBytes))
	return nil
}
