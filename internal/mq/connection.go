package mq

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Значения по умолчанию для подключения.
const (
	DefaultConnectAttempts = 10
	DefaultRetryDelay      = 5 * time.Second
)

// State — состояние логического соединения с брокером.
//
// Переходы:
//
//	Disconnected → Connecting → Connected
//	               Connecting → Disconnected (попытки исчерпаны)
//	Connected → Closing → Disconnected (разрыв или Close)
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateClosing
)

// String возвращает строковое представление State.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateClosing:
		return "closing"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Config — конфигурация Connection.
type Config struct {
	// URL — адрес брокера.
	URL string

	// Dialer — способ установить физическое соединение (default: DialAMQP).
	Dialer Dialer

	// ConnectAttempts — число попыток при явном подключении (default: 10).
	ConnectAttempts int

	// RetryDelay — фиксированная пауза между попытками (default: 5s).
	RetryDelay time.Duration

	// FailFast — Channel возвращает ErrNotConnected вместо ожидания reconnect.
	FailFast bool

	Logger *slog.Logger
}

// Connection — единственное логическое соединение процесса с RabbitMQ.
//
// Особенности:
//   - Connect делает ограниченное число попыток с фиксированной паузой
//   - После разрыва запускается фоновый reconnect без ограничения попыток
//   - Одновременно выполняется не более одной попытки подключения
//   - Close останавливает reconnect и закрывает соединение
type Connection struct {
	url      string
	dial     Dialer
	attempts int
	delay    time.Duration
	failFast bool
	logger   *slog.Logger

	mu      sync.Mutex
	state   State
	conn    Conn
	pending *connectAttempt
	closed  bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// connectAttempt — попытка подключения, которую разделяют все ожидающие.
type connectAttempt struct {
	done chan struct{}
	err  error
}

// NewConnection создаёт Connection. Подключение не выполняется до Connect или Channel.
func NewConnection(cfg Config) *Connection {
	dial := cfg.Dialer
	if dial == nil {
		dial = DialAMQP
	}

	attempts := cfg.ConnectAttempts
	if attempts <= 0 {
		attempts = DefaultConnectAttempts
	}

	delay := cfg.RetryDelay
	if delay <= 0 {
		delay = DefaultRetryDelay
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	c := &Connection{
		url:      cfg.URL,
		dial:     dial,
		attempts: attempts,
		delay:    delay,
		failFast: cfg.FailFast,
		logger:   logger.With("component", "mq.connection"),
		ctx:      ctx,
		cancel:   cancel,
	}
	connectionState.Set(float64(StateDisconnected))
	return c
}

// Connect устанавливает соединение.
//
// Делает до ConnectAttempts попыток с паузой RetryDelay и возвращает
// ErrBrokerUnavailable, если все они неудачны. Если подключение уже идёт,
// ждёт его результата вместо новой попытки.
func (c *Connection) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrConnectionClosed
	}

	if c.state == StateConnected && c.conn != nil {
		if !c.conn.IsClosed() {
			c.mu.Unlock()
			return nil
		}
		c.lostLocked(c.conn, nil)
	}

	a := c.pending
	if a == nil {
		a = c.startAttemptLocked(c.attempts)
	}
	c.mu.Unlock()

	return c.wait(ctx, a)
}

// Channel открывает свежий канал на живом соединении.
//
// Если соединения нет, сначала подключается через Connect. Если идёт
// reconnect, блокируется до его завершения, либо сразу возвращает
// ErrNotConnected в режиме FailFast.
func (c *Connection) Channel(ctx context.Context) (Channel, error) {
	for {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return nil, ErrConnectionClosed
		}

		if conn := c.conn; c.state == StateConnected && conn != nil {
			if !conn.IsClosed() {
				c.mu.Unlock()

				ch, err := conn.Channel()
				if err == nil {
					return ch, nil
				}
				if !conn.IsClosed() {
					return nil, fmt.Errorf("open channel: %w", err)
				}

				// Пока мьютекс был отпущен, reconnect мог уже поставить новое
				// соединение: состояние проверяется заново
				c.mu.Lock()
				c.lostLocked(conn, nil)
				c.mu.Unlock()
				continue
			}
			// Соединение умерло раньше, чем пришло уведомление о закрытии
			c.lostLocked(conn, nil)
		}

		a := c.pending
		if a != nil && c.failFast {
			state := c.state
			c.mu.Unlock()
			return nil, fmt.Errorf("%w: state %s", ErrNotConnected, state)
		}
		if a == nil {
			a = c.startAttemptLocked(c.attempts)
		}
		c.mu.Unlock()

		if err := c.wait(ctx, a); err != nil {
			return nil, err
		}
	}
}

// State возвращает текущее состояние соединения.
func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsConnected проверяет, установлено ли соединение.
func (c *Connection) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateConnected && c.conn != nil && !c.conn.IsClosed()
}

// Close закрывает соединение и останавливает фоновый reconnect.
func (c *Connection) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conn := c.conn
	c.conn = nil
	if conn != nil {
		c.setStateLocked(StateClosing)
	}
	c.mu.Unlock()

	c.cancel()

	var err error
	if conn != nil && !conn.IsClosed() {
		if cerr := conn.Close(); cerr != nil {
			err = fmt.Errorf("close connection: %w", cerr)
		}
	}

	c.wg.Wait()

	c.mu.Lock()
	c.setStateLocked(StateDisconnected)
	c.mu.Unlock()

	c.logger.Info("connection closed")
	return err
}

// --- Internals ---

// startAttemptLocked запускает попытку подключения в фоне.
// maxAttempts <= 0 — без ограничения (используется для reconnect).
func (c *Connection) startAttemptLocked(maxAttempts int) *connectAttempt {
	a := &connectAttempt{done: make(chan struct{})}
	c.pending = a
	c.setStateLocked(StateConnecting)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		conn, err := c.dialLoop(maxAttempts)
		c.finish(a, conn, err)
	}()

	return a
}

// dialLoop пытается подключиться с фиксированной паузой между попытками.
func (c *Connection) dialLoop(maxAttempts int) (Conn, error) {
	var lastErr error

	for attempt := 1; maxAttempts <= 0 || attempt <= maxAttempts; attempt++ {
		if c.ctx.Err() != nil {
			return nil, ErrConnectionClosed
		}

		c.logger.Info("connecting to RabbitMQ", "attempt", attempt, "max_attempts", maxAttempts)

		conn, err := c.dial(c.url)
		if err == nil {
			return conn, nil
		}
		lastErr = err

		if maxAttempts > 0 && attempt == maxAttempts {
			break
		}

		c.logger.Warn("connect attempt failed",
			"attempt", attempt,
			"retry_in", c.delay,
			"error", err,
		)

		select {
		case <-c.ctx.Done():
			return nil, ErrConnectionClosed
		case <-time.After(c.delay):
		}
	}

	c.logger.Error("max connect attempts reached, is RabbitMQ running?",
		"attempts", maxAttempts,
		"error", lastErr,
	)
	return nil, fmt.Errorf("%w after %d attempts: %w", ErrBrokerUnavailable, maxAttempts, lastErr)
}

// finish фиксирует результат попытки и будит ожидающих.
func (c *Connection) finish(a *connectAttempt, conn Conn, err error) {
	c.mu.Lock()
	c.pending = nil

	switch {
	case err != nil:
		a.err = err
		c.setStateLocked(StateDisconnected)
	case c.closed:
		conn.Close()
		a.err = ErrConnectionClosed
		c.setStateLocked(StateDisconnected)
	default:
		c.conn = conn
		c.setStateLocked(StateConnected)
		c.watchLocked(conn)
		c.logger.Info("connected to RabbitMQ")
	}
	c.mu.Unlock()

	close(a.done)
}

// watchLocked подписывается на уведомления о закрытии и блокировке соединения.
func (c *Connection) watchLocked(conn Conn) {
	closeCh := conn.NotifyClose(make(chan *amqp.Error, 1))
	blockedCh := conn.NotifyBlocked(make(chan amqp.Blocking, 1))

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			select {
			case <-c.ctx.Done():
				return

			case b, ok := <-blockedCh:
				if !ok {
					blockedCh = nil
					continue
				}
				if b.Active {
					c.logger.Warn("connection blocked by broker", "reason", b.Reason)
				} else {
					c.logger.Info("connection unblocked by broker")
				}

			case amqpErr, ok := <-closeCh:
				var err error
				if ok && amqpErr != nil {
					err = amqpErr
				}
				c.mu.Lock()
				c.lostLocked(conn, err)
				c.mu.Unlock()
				return
			}
		}
	}()
}

// lostLocked переводит соединение в Disconnected и запускает фоновый reconnect.
// Повторный вызов для того же conn ничего не делает.
func (c *Connection) lostLocked(conn Conn, err error) {
	if c.conn != conn {
		return
	}

	c.setStateLocked(StateClosing)
	c.conn = nil
	c.setStateLocked(StateDisconnected)

	if c.closed {
		return
	}

	c.logger.Warn("connection lost, reconnecting", "error", err)
	reconnectsTotal.Inc()

	if c.pending == nil {
		c.startAttemptLocked(0)
	}
}

// wait ожидает завершения попытки подключения.
func (c *Connection) wait(ctx context.Context, a *connectAttempt) error {
	select {
	case <-a.done:
		return a.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Connection) setStateLocked(s State) {
	if c.state == s {
		return
	}
	c.logger.Debug("connection state changed", "from", c.state.String(), "to", s.String())
	c.state = s
	connectionState.Set(float64(s))
}
