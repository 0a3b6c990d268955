package e2e

import (
	"bufio"
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"notistream/internal/config"
	httpserver "notistream/internal/http"
	"notistream/internal/http/controller"
	"notistream/internal/service/notify"
	"notistream/internal/sse"
	"notistream/internal/store/memory"
)

const testSecret = "e2e-secret"

type noopPublisher struct{}

func (n *noopPublisher) Publish(ctx context.Context, payload []byte, routingKey string) error {
	_ = ctx
	_ = payload
	_ = routingKey
	return nil
}

type testServer struct {
	server *httptest.Server
	store  *memory.Store
	hub    *sse.Hub
}

func setupServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		HTTPAddr:        ":0",
		JWTSecret:       testSecret,
		DispatchPrefix:  "dispatch",
		StreamHeartbeat: 5 * time.Second,
		PageLimit:       25,
	}
	logger := zap.NewNop()
	store := memory.New(logger)
	hub := sse.NewHub()
	svc := notify.NewService(cfg, store, hub, &noopPublisher{}, logger)
	handler := controller.NewHandler(cfg, svc, hub, logger, nil)
	router := httpserver.NewRouter(cfg, handler, nil, logger)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return &testServer{server: server, store: store, hub: hub}
}

func authToken(t *testing.T, subject string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

// readSSEEvent parses one named frame off the stream. Frames without an
// event field report the default "message" name. Callers reading more than
// one frame must reuse the same bufio.Reader.
func readSSEEvent(reader *bufio.Reader, timeout time.Duration) (string, string, error) {
	type result struct {
		name string
		data string
		err  error
	}
	ch := make(chan result, 1)

	go func() {
		name := ""
		var dataLines []string
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				ch <- result{"", "", err}
				return
			}
			line = strings.TrimRight(line, "\r\n")
			if line == "" {
				if name != "" || len(dataLines) > 0 {
					if name == "" {
						name = "message"
					}
					ch <- result{name, strings.Join(dataLines, "\n"), nil}
					return
				}
				continue
			}
			if strings.HasPrefix(line, ":") {
				continue
			}
			if strings.HasPrefix(line, "event:") {
				name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
				continue
			}
			if strings.HasPrefix(line, "data:") {
				dataLines = append(dataLines, strings.TrimSpace(strings.TrimPrefix(line, "data:")))
			}
		}
	}()

	select {
	case res := <-ch:
		return res.name, res.data, res.err
	case <-time.After(timeout):
		return "", "", context.DeadlineExceeded
	}
}
