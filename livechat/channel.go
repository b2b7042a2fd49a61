// Package livechat keeps a booking conversation live over a websocket.
package livechat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/anjiri1684/skill_exchange/logger"
	"github.com/anjiri1684/skill_exchange/models"
)

type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateJoined       State = "joined"
	StateReceiving    State = "receiving"
	StateSending      State = "sending"
	StateError        State = "error"
)

var (
	ErrNotConnected  = errors.New("live channel is not connected")
	ErrEmptyMessage  = errors.New("message is empty")
	ErrMissingInputs = errors.New("a conversation and a credential are required")
)

type Config struct {
	URL string
	// Dialer defaults to websocket.DefaultDialer.
	Dialer *websocket.Dialer
	// MaxAttempts bounds reconnection attempts after the first connection.
	MaxAttempts int
	RetryDelay  time.Duration
	Logger      *zap.Logger
}

func DefaultConfig(socketURL string) Config {
	return Config{URL: socketURL, MaxAttempts: 5, RetryDelay: time.Second}
}

// SocketURL derives the websocket address from the REST base URL and the
// socket path.
func SocketURL(apiURL, path string) (string, error) {
	u, err := url.Parse(apiURL)
	if err != nil {
		return "", fmt.Errorf("parse api url: %w", err)
	}
	switch u.Scheme {
	case "https", "wss":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = "/" + strings.TrimLeft(path, "/")
	u.RawQuery, u.Fragment = "", ""
	return u.String(), nil
}

// MessageSink receives inbound messages. *store.Store satisfies it.
type MessageSink interface {
	AddMessage(m models.ChatMessage)
}

// Channel is one live connection scoped to a conversation and a credential.
// It reconnects on its own and never surfaces transport failures to callers.
type Channel struct {
	cfg       Config
	bookingID string
	token     string
	sink      MessageSink
	log       *zap.Logger

	mu        sync.Mutex
	state     State
	conn      *websocket.Conn
	attempts  int
	delivered bool

	writeMu sync.Mutex

	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

// Open starts connecting in the background and returns immediately.
func Open(cfg Config, bookingID, token string, sink MessageSink) (*Channel, error) {
	if bookingID == "" || token == "" {
		return nil, ErrMissingInputs
	}
	if cfg.Dialer == nil {
		cfg.Dialer = websocket.DefaultDialer
	}
	if cfg.MaxAttempts < 0 {
		cfg.MaxAttempts = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Channel{
		cfg:       cfg,
		bookingID: bookingID,
		token:     token,
		sink:      sink,
		log:       logger.OrNop(cfg.Logger).With(zap.String(logger.FieldBookingID, bookingID)),
		state:     StateDisconnected,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	go c.run(ctx)
	return c, nil
}

func (c *Channel) BookingID() string { return c.bookingID }

// Token is the credential the channel authenticates with.
func (c *Channel) Token() string { return c.token }

func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Channel) setState(s State) {
	c.mu.Lock()
	prev := c.state
	c.state = s
	c.mu.Unlock()
	if prev != s {
		c.log.Debug("live channel state", zap.String(logger.FieldState, string(s)))
	}
}

// Done is closed once the channel has stopped for good.
func (c *Channel) Done() <-chan struct{} { return c.done }

// Close tears the connection down and waits for the background loop to
// exit. It is safe to call more than once.
func (c *Channel) Close() {
	c.closeOnce.Do(func() {
		c.cancel()
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
	})
	<-c.done
}

// errProgress ends a retry budget early: the dropped connection had delivered
// messages, so the next reconnect starts with a fresh budget.
var errProgress = errors.New("live channel delivered messages before dropping")

func (c *Channel) backoff() retry.Backoff {
	return retry.WithMaxRetries(uint64(c.cfg.MaxAttempts), retry.NewConstant(c.cfg.RetryDelay))
}

func (c *Channel) run(ctx context.Context) {
	defer close(c.done)
	defer c.setState(StateDisconnected)

	for {
		err := retry.Do(ctx, c.backoff(), c.session)
		if ctx.Err() != nil {
			return
		}
		if !errors.Is(err, errProgress) {
			c.mu.Lock()
			attempt := c.attempts
			c.mu.Unlock()
			c.log.Warn("live channel giving up", zap.Int(logger.FieldAttempt, attempt), zap.Error(err))
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(c.cfg.RetryDelay):
		}
	}
}

// session runs one connection until it drops. Every drop is retryable unless
// messages arrived on it, which resets the budget.
func (c *Channel) session(ctx context.Context) error {
	c.setState(StateConnecting)
	conn, err := c.connect(ctx)
	if err == nil {
		err = c.receive(ctx, conn)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	c.mu.Lock()
	progressed := c.delivered
	c.delivered = false
	c.attempts++
	attempt := c.attempts
	if progressed {
		c.attempts = 0
	}
	c.mu.Unlock()

	c.setState(StateError)
	c.log.Warn("live channel dropped", zap.Error(err), zap.Int(logger.FieldAttempt, attempt))
	if progressed {
		return fmt.Errorf("%w: %v", errProgress, err)
	}
	return retry.RetryableError(err)
}

// connect dials, authenticates and joins the room. The join is not
// acknowledged.
func (c *Channel) connect(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := c.cfg.Dialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	if err := c.write(conn, models.EventAuth, models.SocketAuth{Token: c.token}); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("auth: %w", err)
	}
	if err := c.write(conn, models.EventJoinRoom, c.bookingID); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("join: %w", err)
	}

	c.mu.Lock()
	if ctx.Err() != nil {
		c.mu.Unlock()
		_ = conn.Close()
		return nil, ctx.Err()
	}
	c.conn = conn
	c.state = StateJoined
	c.mu.Unlock()
	c.log.Debug("live channel joined")
	return conn, nil
}

func (c *Channel) receive(ctx context.Context, conn *websocket.Conn) error {
	defer func() {
		c.mu.Lock()
		if c.conn == conn {
			c.conn = nil
		}
		c.mu.Unlock()
		_ = conn.Close()
	}()

	for {
		var env models.SocketEnvelope
		if err := conn.ReadJSON(&env); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read: %w", err)
		}

		switch env.Event {
		case models.EventReceiveMessage:
			var m models.ChatMessage
			if err := json.Unmarshal(env.Data, &m); err != nil {
				c.log.Warn("malformed live message", zap.Error(err))
				continue
			}
			c.mu.Lock()
			c.attempts = 0
			c.delivered = true
			if c.state != StateSending {
				c.state = StateReceiving
			}
			c.mu.Unlock()
			c.sink.AddMessage(m)
		case models.EventError:
			var e models.SocketError
			_ = json.Unmarshal(env.Data, &e)
			c.log.Warn("live channel error", zap.String(logger.FieldError, e.Message))
		default:
			c.log.Debug("ignoring live event", zap.String("event", env.Event))
		}
	}
}

func (c *Channel) write(conn *websocket.Conn, event string, data any) error {
	env, err := models.NewEnvelope(event, data)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return conn.WriteJSON(env)
}

// Send pushes text to the room as sender. Nothing is added locally; the
// message shows up when the server relays it back.
func (c *Channel) Send(text string, sender models.Sender) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}
	c.mu.Lock()
	conn := c.conn
	if conn == nil {
		c.mu.Unlock()
		return ErrNotConnected
	}
	prev := c.state
	if prev == StateSending {
		prev = StateJoined
	}
	c.state = StateSending
	c.mu.Unlock()

	err := c.write(conn, models.EventSendMessage, models.OutgoingMessage{
		BookingID: c.bookingID,
		Message:   text,
		Sender:    sender,
	})

	c.mu.Lock()
	if c.state == StateSending {
		c.state = prev
	}
	c.mu.Unlock()
	if err != nil {
		c.log.Warn("live send failed", zap.Error(err))
		return fmt.Errorf("send: %w", err)
	}
	return nil
}
