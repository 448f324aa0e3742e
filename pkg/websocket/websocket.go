package websocketPkg

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"SigSecure/internal/entity"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

// Service names one model endpoint of the ML sidecar.
type Service string

const (
	NERService       Service = "ner"
	EmbeddingService Service = "embedding"
)

type IWebsocket interface {
	Recognize(ctx context.Context, text string) ([]entity.EntitySpan, error)
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	IsConnected(service Service) bool
	Reconnect(service Service) error
	CloseConnections()
}

type nerRequest struct {
	Text string `json:"text"`
}

type nerResponse struct {
	Entities []entity.EntitySpan `json:"entities"`
	Error    string              `json:"error,omitempty"`
}

type embedRequest struct {
	Texts []string `json:"texts"`
}

type embedResponse struct {
	Vectors [][]float32 `json:"vectors"`
	Error   string      `json:"error,omitempty"`
}

type webSocketClient struct {
	conns        map[Service]*websocket.Conn
	urls         map[Service]string
	mu           sync.Mutex
	log          *logrus.Logger
	pingInterval time.Duration
	readTimeout  time.Duration
	writeTimeout time.Duration
}

// NewSidecarClient dials the NER and embedding sockets in the background.
// A service that is down at startup is dialed again on first use.
func NewSidecarClient(log *logrus.Logger) IWebsocket {
	client := newClient(log, map[Service]string{
		NERService:       getWebSocketURL(NERService),
		EmbeddingService: getWebSocketURL(EmbeddingService),
	})

	go client.connectInBackground(NERService)
	go client.connectInBackground(EmbeddingService)

	return client
}

func newClient(log *logrus.Logger, urls map[Service]string) *webSocketClient {
	return &webSocketClient{
		conns:        make(map[Service]*websocket.Conn),
		urls:         urls,
		log:          log,
		pingInterval: 30 * time.Second,
		readTimeout:  30 * time.Second,
		writeTimeout: 5 * time.Second,
	}
}

func (c *webSocketClient) connectInBackground(service Service) {
	if err := c.Reconnect(service); err != nil {
		c.log.WithFields(logrus.Fields{
			"service": service,
			"error":   err.Error(),
		}).Warn("Initial sidecar connection failed, will retry on demand")
		return
	}
	c.log.WithField("service", service).Info("Connected to sidecar service")
}

func (c *webSocketClient) IsConnected(service Service) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conns[service] != nil
}

func (c *webSocketClient) Reconnect(service Service) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if conn := c.conns[service]; conn != nil {
		conn.Close()
		delete(c.conns, service)
	}

	url := c.urls[service]
	if url == "" {
		return fmt.Errorf("URL for %s service not configured", service)
	}

	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second

	conn, _, err := dialer.Dial(url, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", url, err)
	}

	conn.SetPingHandler(func(appData string) error {
		if err := conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(c.writeTimeout)); err != nil {
			c.log.WithField("error", err.Error()).Debug("Error sending pong")
		}
		return nil
	})

	c.conns[service] = conn
	go c.keepAlive(service, conn)

	return nil
}

func (c *webSocketClient) CloseConnections() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for service, conn := range c.conns {
		conn.Close()
		delete(c.conns, service)
	}
}

func (c *webSocketClient) keepAlive(service Service, conn *websocket.Conn) {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	for range ticker.C {
		c.mu.Lock()
		if c.conns[service] != conn {
			c.mu.Unlock()
			return
		}

		err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(c.writeTimeout))
		if err != nil {
			c.log.WithFields(logrus.Fields{
				"service": service,
				"error":   err.Error(),
			}).Warn("Ping failed, marking connection as dead")
			delete(c.conns, service)
			conn.Close()
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()
	}
}

func (c *webSocketClient) getConnection(service Service) (*websocket.Conn, error) {
	c.mu.Lock()
	conn := c.conns[service]
	c.mu.Unlock()

	if conn != nil {
		return conn, nil
	}

	if err := c.Reconnect(service); err != nil {
		return nil, fmt.Errorf("cannot connect to %s service: %w", service, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if conn = c.conns[service]; conn == nil {
		return nil, fmt.Errorf("not connected to %s service", service)
	}
	return conn, nil
}

// roundTrip sends one JSON request and reads one JSON reply. The lock is held
// for the whole exchange so replies cannot be read by another caller.
func (c *webSocketClient) roundTrip(ctx context.Context, service Service, req, resp interface{}) error {
	conn, err := c.getConnection(service)
	if err != nil {
		return err
	}

	payload, err := jsoniter.Marshal(req)
	if err != nil {
		return fmt.Errorf("error encoding %s request: %w", service, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	writeDeadline := time.Now().Add(c.writeTimeout)
	readDeadline := time.Now().Add(c.readTimeout)
	if d, ok := ctx.Deadline(); ok {
		if d.Before(writeDeadline) {
			writeDeadline = d
		}
		if d.Before(readDeadline) {
			readDeadline = d
		}
	}

	drop := func() {
		if c.conns[service] == conn {
			delete(c.conns, service)
		}
		conn.Close()
	}

	_ = conn.SetWriteDeadline(writeDeadline)
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		drop()
		return fmt.Errorf("error sending %s request: %w", service, err)
	}

	_ = conn.SetReadDeadline(readDeadline)
	_, message, err := conn.ReadMessage()
	if err != nil {
		drop()
		return fmt.Errorf("error reading %s response: %w", service, err)
	}

	_ = conn.SetReadDeadline(time.Time{})
	_ = conn.SetWriteDeadline(time.Time{})

	if err := jsoniter.Unmarshal(message, resp); err != nil {
		return fmt.Errorf("error unmarshaling %s response: %w", service, err)
	}
	return nil
}

func (c *webSocketClient) Recognize(ctx context.Context, text string) ([]entity.EntitySpan, error) {
	var resp nerResponse
	if err := c.roundTrip(ctx, NERService, nerRequest{Text: text}, &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("ner service: %s", resp.Error)
	}

	c.log.WithFields(logrus.Fields{
		"service":  NERService,
		"entities": len(resp.Entities),
	}).Debug("Received sidecar response")

	return resp.Entities, nil
}

func (c *webSocketClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	var resp embedResponse
	if err := c.roundTrip(ctx, EmbeddingService, embedRequest{Texts: texts}, &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("embedding service: %s", resp.Error)
	}
	if len(resp.Vectors) != len(texts) {
		return nil, fmt.Errorf("embedding service returned %d vectors for %d texts", len(resp.Vectors), len(texts))
	}
	return resp.Vectors, nil
}

func getWebSocketURL(service Service) string {
	switch service {
	case NERService:
		if url := os.Getenv("SIDECAR_NER_URL"); url != "" {
			return url
		}
		return "ws://localhost:8000/api/v1/ner/ws"
	case EmbeddingService:
		if url := os.Getenv("SIDECAR_EMBEDDING_URL"); url != "" {
			return url
		}
		return "ws://localhost:8000/api/v1/embed/ws"
	default:
		return ""
	}
}
