package acp

import (
	"bufio"
	"encoding/json"
	"io"
)

// ndjsonCodec frames JSON-RPC messages one-per-line, the wire format the
// Agent Client Protocol uses over stdio (unlike LSP's Content-Length
// headers). It implements jsonrpc2.ObjectCodec.
type ndjsonCodec struct{}

func (ndjsonCodec) WriteObject(stream io.Writer, obj interface{}) error {
	data, err := json.Marshal(obj)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = stream.Write(data)
	return err
}

func (ndjsonCodec) ReadObject(stream *bufio.Reader, v interface{}) error {
	line, err := stream.ReadBytes('\n')
	if err != nil && len(line) == 0 {
		return err
	}
	return json.Unmarshal(line, v)
}

// pipePair combines a subprocess's stdin/stdout into a single
// io.ReadWriteCloser for jsonrpc2.NewBufferedStream.
type pipePair struct {
	io.ReadCloser
	io.WriteCloser
}

func (p pipePair) Close() error {
	werr := p.WriteCloser.Close()
	rerr := p.ReadCloser.Close()
	if werr != nil {
		return werr
	}
	return rerr
}

func (p pipePair) Read(b []byte) (int, error)  { return p.ReadCloser.Read(b) }
func (p pipePair) Write(b []byte) (int, error) { return p.WriteCloser.Write(b) }
