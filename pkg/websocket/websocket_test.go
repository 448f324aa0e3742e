package websocketPkg

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"SigSecure/internal/entity"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sidecar(t *testing.T, handle func(msg []byte) interface{}) string {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			out, _ := jsoniter.Marshal(handle(msg))
			if err := conn.WriteMessage(websocket.TextMessage, out); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func quiet() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestSidecarRecognize(t *testing.T) {
	url := sidecar(t, func(msg []byte) interface{} {
		var req nerRequest
		_ = jsoniter.Unmarshal(msg, &req)
		return nerResponse{Entities: []entity.EntitySpan{{Text: strings.TrimPrefix(req.Text, "Signer: "), Label: "PERSON"}}}
	})

	c := newClient(quiet(), map[Service]string{NERService: url})
	defer c.CloseConnections()

	spans, err := c.Recognize(context.Background(), "Signer: John Doe")
	require.NoError(t, err)
	assert.Equal(t, []entity.EntitySpan{{Text: "John Doe", Label: "PERSON"}}, spans)
	assert.True(t, c.IsConnected(NERService))

	// second call reuses the connection
	_, err = c.Recognize(context.Background(), "Signer: Ann Roe")
	require.NoError(t, err)
}

func TestSidecarEmbed(t *testing.T) {
	url := sidecar(t, func(msg []byte) interface{} {
		var req embedRequest
		_ = jsoniter.Unmarshal(msg, &req)
		vecs := make([][]float32, len(req.Texts))
		for i := range vecs {
			vecs[i] = []float32{float32(i), 1}
		}
		return embedResponse{Vectors: vecs}
	})

	c := newClient(quiet(), map[Service]string{EmbeddingService: url})
	defer c.CloseConnections()

	vecs, err := c.Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{0, 1}, {1, 1}}, vecs)
}

func TestSidecarServiceError(t *testing.T) {
	url := sidecar(t, func([]byte) interface{} {
		return nerResponse{Error: "model not loaded"}
	})

	c := newClient(quiet(), map[Service]string{NERService: url})
	defer c.CloseConnections()

	_, err := c.Recognize(context.Background(), "x")
	assert.ErrorContains(t, err, "model not loaded")
}

func TestSidecarNotConfigured(t *testing.T) {
	c := newClient(quiet(), map[Service]string{})

	_, err := c.Embed(context.Background(), []string{"x"})
	assert.ErrorContains(t, err, "not configured")
	assert.False(t, c.IsConnected(EmbeddingService))
}
