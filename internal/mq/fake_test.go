package mq

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// --- Fakes ---

var errRefused = errors.New("dial tcp 127.0.0.1:5672: connect: connection refused")

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// waitFor ждёт выполнения условия.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

// fakeDialer считает вызовы и выдаёт fakeConn.
type fakeDialer struct {
	mu           sync.Mutex
	calls        int
	failFirst    int
	failAll      bool
	nackConfirms bool
	gate         chan struct{}
	conns        []*fakeConn

	// beforeChannel вызывается в Channel первого соединения до открытия канала.
	beforeChannel func(c *fakeConn)
}

func (d *fakeDialer) Dial(string) (Conn, error) {
	d.mu.Lock()
	d.calls++
	fail := d.failAll || d.calls <= d.failFirst
	gate := d.gate
	d.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if fail {
		return nil, errRefused
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	c := &fakeConn{nackConfirms: d.nackConfirms}
	if len(d.conns) == 0 {
		c.beforeChannel = d.beforeChannel
	}
	d.conns = append(d.conns, c)
	return c, nil
}

func (d *fakeDialer) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

func (d *fakeDialer) setFailAll(v bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failAll = v
}

func (d *fakeDialer) conn(i int) *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	if i >= len(d.conns) {
		return nil
	}
	return d.conns[i]
}

func (d *fakeDialer) connCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.conns)
}

// fakeConn — соединение в памяти.
type fakeConn struct {
	mu           sync.Mutex
	closed       bool
	nackConfirms bool
	closeCh      chan *amqp.Error
	channels     []*fakeChannel

	beforeChannel func(c *fakeConn)
}

func (c *fakeConn) Channel() (Channel, error) {
	if c.beforeChannel != nil {
		c.beforeChannel(c)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, amqp.ErrClosed
	}
	ch := newFakeChannel(c.nackConfirms)
	c.channels = append(c.channels, ch)
	return ch, nil
}

func (c *fakeConn) NotifyClose(receiver chan *amqp.Error) chan *amqp.Error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeCh = receiver
	return receiver
}

func (c *fakeConn) NotifyBlocked(receiver chan amqp.Blocking) chan amqp.Blocking {
	return receiver
}

func (c *fakeConn) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return amqp.ErrClosed
	}
	c.closed = true
	closeCh := c.closeCh
	channels := c.channels
	c.mu.Unlock()

	for _, ch := range channels {
		ch.Close()
	}
	if closeCh != nil {
		close(closeCh)
	}
	return nil
}

// drop имитирует разрыв соединения со стороны брокера.
func (c *fakeConn) drop() {
	c.mu.Lock()
	c.closed = true
	closeCh := c.closeCh
	channels := c.channels
	c.mu.Unlock()

	for _, ch := range channels {
		ch.Close()
	}
	if closeCh != nil {
		closeCh <- &amqp.Error{Code: amqp.ConnectionForced, Reason: "CONNECTION_FORCED"}
		close(closeCh)
	}
}

// openChannels возвращает число открытых каналов на соединении.
func (c *fakeConn) openChannels() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.channels)
}

func (c *fakeConn) channel(i int) *fakeChannel {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i >= len(c.channels) {
		return nil
	}
	return c.channels[i]
}

// consuming возвращает последний канал, на котором вызван Consume.
func (c *fakeConn) consuming() *fakeChannel {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.channels) - 1; i >= 0; i-- {
		if c.channels[i].isConsuming() {
			return c.channels[i]
		}
	}
	return nil
}

type queueDecl struct {
	durable bool
	args    amqp.Table
}

// fakeChannel — канал в памяти.
type fakeChannel struct {
	mu           sync.Mutex
	closed       bool
	nackConfirms bool
	queues       map[string]queueDecl
	exchanges    map[string]string
	binds        []string
	qos          int
	confirmCh    chan amqp.Confirmation
	published    []amqp.Publishing
	routingKeys  []string
	consumeQueue string
	autoAck      bool
	consuming    bool
	deliveries   chan amqp.Delivery
	tag          uint64
}

func newFakeChannel(nackConfirms bool) *fakeChannel {
	return &fakeChannel{
		nackConfirms: nackConfirms,
		queues:       make(map[string]queueDecl),
		exchanges:    make(map[string]string),
		deliveries:   make(chan amqp.Delivery, 16),
	}
}

func (ch *fakeChannel) ExchangeDeclare(name, kind string, _, _, _, _ bool, _ amqp.Table) error {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	ch.exchanges[name] = kind
	return nil
}

func (ch *fakeChannel) QueueDeclare(name string, durable, _, _, _ bool, args amqp.Table) (amqp.Queue, error) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	ch.queues[name] = queueDecl{durable: durable, args: args}
	return amqp.Queue{Name: name}, nil
}

func (ch *fakeChannel) QueueBind(name, _, exchange string, _ bool, _ amqp.Table) error {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	ch.binds = append(ch.binds, exchange+"->"+name)
	return nil
}

func (ch *fakeChannel) Qos(prefetchCount, _ int, _ bool) error {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	ch.qos = prefetchCount
	return nil
}

func (ch *fakeChannel) Confirm(bool) error {
	return nil
}

func (ch *fakeChannel) NotifyPublish(confirm chan amqp.Confirmation) chan amqp.Confirmation {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	ch.confirmCh = confirm
	return confirm
}

func (ch *fakeChannel) PublishWithContext(_ context.Context, _, key string, _, _ bool, msg amqp.Publishing) error {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	if ch.closed {
		return amqp.ErrClosed
	}
	ch.published = append(ch.published, msg)
	ch.routingKeys = append(ch.routingKeys, key)
	if ch.confirmCh != nil {
		select {
		case ch.confirmCh <- amqp.Confirmation{DeliveryTag: uint64(len(ch.published)), Ack: !ch.nackConfirms}:
		default:
		}
	}
	return nil
}

func (ch *fakeChannel) Consume(queue, _ string, autoAck, _, _, _ bool, _ amqp.Table) (<-chan amqp.Delivery, error) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	if ch.closed {
		return nil, amqp.ErrClosed
	}
	ch.consumeQueue = queue
	ch.autoAck = autoAck
	ch.consuming = true
	return ch.deliveries, nil
}

func (ch *fakeChannel) Close() error {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	if ch.closed {
		return nil
	}
	ch.closed = true
	close(ch.deliveries)
	return nil
}

func (ch *fakeChannel) isClosed() bool {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.closed
}

func (ch *fakeChannel) isConsuming() bool {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.consuming
}

func (ch *fakeChannel) queue(name string) (queueDecl, bool) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	q, ok := ch.queues[name]
	return q, ok
}

// deliver кладёт сообщение в поток доставок канала.
func (ch *fakeChannel) deliver(acker amqp.Acknowledger, messageID string, body []byte) {
	ch.mu.Lock()
	ch.tag++
	d := amqp.Delivery{
		Acknowledger: acker,
		DeliveryTag:  ch.tag,
		MessageId:    messageID,
		Body:         body,
	}
	ch.mu.Unlock()
	ch.deliveries <- d
}

type nackCall struct {
	tag     uint64
	requeue bool
}

// fakeAcker записывает ack/nack.
type fakeAcker struct {
	mu    sync.Mutex
	acks  []uint64
	nacks []nackCall
}

func (a *fakeAcker) Ack(tag uint64, _ bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acks = append(a.acks, tag)
	return nil
}

func (a *fakeAcker) Nack(tag uint64, _ bool, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nacks = append(a.nacks, nackCall{tag: tag, requeue: requeue})
	return nil
}

func (a *fakeAcker) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

func (a *fakeAcker) counts() (acks, nacks int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.acks), len(a.nacks)
}

func (a *fakeAcker) nackList() []nackCall {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]nackCall(nil), a.nacks...)
}

// newTestConnection создаёт Connection поверх fakeDialer с короткими паузами.
func newTestConnection(d *fakeDialer, attempts int, failFast bool) *Connection {
	return NewConnection(Config{
		URL:             "amqp://test",
		Dialer:          d.Dial,
		ConnectAttempts: attempts,
		RetryDelay:      time.Millisecond,
		FailFast:        failFast,
		Logger:          testLogger(),
	})
}
