// Package worker backs the classifier and detector capabilities with an
// external model process. Requests are length-prefixed binary payloads on
// the child's stdin; responses are length-prefixed JSON on a side-channel
// pipe (FD 3), keeping the child's stdout free for its own logging.
package worker

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
)

// Worker owns one child process and its pipes. Requests are serialized with
// a mutex: the protocol allows one request in flight at a time, which also
// matches the pipeline's single-flight inference contract.
type Worker struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser
	data  io.ReadCloser

	mu     sync.Mutex
	closed bool
}

// New starts the worker process. The child must read [len][payload] records
// from stdin and write [len][json] records to FD 3.
func New(command string, args ...string) (*Worker, error) {
	cmd := exec.Command(command, args...)
	cmd.Stderr = os.Stderr

	r, w, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("create data pipe: %w", err)
	}
	cmd.ExtraFiles = []*os.File{w}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		w.Close()
		r.Close()
		return nil, fmt.Errorf("create stdin pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		w.Close()
		r.Close()
		return nil, fmt.Errorf("start worker %s: %w", command, err)
	}

	// The child now holds the only write end of the data pipe.
	w.Close()

	return &Worker{cmd: cmd, stdin: stdin, data: r}, nil
}

// roundTrip sends one request and reads one response.
func (w *Worker) roundTrip(ctx context.Context, payload []byte) ([]byte, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil, fmt.Errorf("worker closed")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := binary.Write(w.stdin, binary.BigEndian, uint32(len(payload))); err != nil {
		return nil, fmt.Errorf("write request header: %w", err)
	}
	if _, err := w.stdin.Write(payload); err != nil {
		return nil, fmt.Errorf("write request: %w", err)
	}

	header := make([]byte, 4)
	if _, err := io.ReadFull(w.data, header); err != nil {
		// An early EOF here usually means the child crashed on startup.
		return nil, fmt.Errorf("read response header: %w", err)
	}
	respLen := binary.BigEndian.Uint32(header)
	body := make([]byte, respLen)
	if _, err := io.ReadFull(w.data, body); err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return body, nil
}

// errorResult is the child's error envelope.
type errorResult struct {
	Error string `json:"error"`
}

// decode unmarshals a response into out, surfacing the child's error
// envelope as a Go error.
func decode(body []byte, out any) error {
	if err := json.Unmarshal(body, out); err != nil {
		var werr errorResult
		if json.Unmarshal(body, &werr) == nil && werr.Error != "" {
			return fmt.Errorf("worker error: %s", werr.Error)
		}
		return fmt.Errorf("malformed worker response: %w", err)
	}
	return nil
}

// Close shuts the worker down and reaps the child process.
func (w *Worker) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	w.stdin.Close()
	w.data.Close()
	return w.cmd.Wait()
}
