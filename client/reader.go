package client

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"strings"
)

// EventReader is one open stream connection. Next blocks until the server
// sends a named event or the connection dies.
type EventReader interface {
	Next() (name string, data []byte, err error)
	Close() error
}

// OpenStreamFunc opens one stream connection. The controller cancels ctx
// on teardown and reconnect.
type OpenStreamFunc func(ctx context.Context) (EventReader, error)

type sseReader struct {
	resp *http.Response
	br   *bufio.Reader
}

func openSSE(ctx context.Context, httpClient *http.Client, url, token string) (EventReader, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("stream returned status %d", resp.StatusCode)
	}
	return &sseReader{resp: resp, br: bufio.NewReader(resp.Body)}, nil
}

// Next parses one server-sent event frame: optional comment lines, then
// field lines, terminated by a blank line.
func (r *sseReader) Next() (string, []byte, error) {
	name := ""
	var data strings.Builder
	for {
		line, err := r.br.ReadString('\n')
		if err != nil {
			return "", nil, err
		}
		line = strings.TrimRight(line, "\r\n")

		if line == "" {
			if name == "" && data.Len() == 0 {
				continue
			}
			if name == "" {
				name = "message"
			}
			return name, []byte(data.String()), nil
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			name = value
		case "data":
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(value)
		}
	}
}

func (r *sseReader) Close() error {
	return r.resp.Body.Close()
}
