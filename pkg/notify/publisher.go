// Package notify broadcasts committed routing changes over a mangos
// PUB socket, so plant systems such as MES screens and andon boards
// can react to routing edits without polling the API.
//
// Frames are the event topic, a colon, then the JSON event body.
// Subscribers filter on the shared "routing." topic prefix.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.nanomsg.org/mangos/v3"
	"go.nanomsg.org/mangos/v3/protocol/pub"

	// Register all transports
	_ "go.nanomsg.org/mangos/v3/transport/all"

	"github.com/Aaron-1990/line-routing/pkg/logging"
	"github.com/Aaron-1990/line-routing/pkg/metrics"
	"github.com/Aaron-1990/line-routing/pkg/pubsub"
)

const (
	// TopicPrefix is shared by every frame on the socket. Watchers
	// subscribe to it to receive both replaced and deleted events.
	TopicPrefix = "routing."

	frameSep = ':'

	// DefaultPubAddr is where the publisher listens when the config
	// does not say otherwise.
	DefaultPubAddr = "tcp://127.0.0.1:7780"
)

// PublisherConfig configures the change publisher.
type PublisherConfig struct {
	Addr string
}

// Publisher forwards bus events onto a PUB socket. Subscribers that
// are slow or absent miss messages; the socket carries notifications,
// not state, and consumers re-read the API for truth.
type Publisher struct {
	sock      mangos.Socket
	bus       *pubsub.Bus
	addr      string
	logger    logging.Logger
	reg       *metrics.Registry
	stopCh    chan struct{}
	wg        sync.WaitGroup
	running   bool
	runningMu sync.Mutex
}

// NewPublisher creates a publisher over the given event bus.
func NewPublisher(bus *pubsub.Bus, cfg PublisherConfig, logger logging.Logger, reg *metrics.Registry) (*Publisher, error) {
	sock, err := pub.NewSocket()
	if err != nil {
		return nil, fmt.Errorf("failed to create PUB socket: %w", err)
	}

	addr := cfg.Addr
	if addr == "" {
		addr = DefaultPubAddr
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if reg == nil {
		reg = metrics.DefaultRegistry()
	}

	return &Publisher{
		sock:   sock,
		bus:    bus,
		addr:   addr,
		logger: logger.With(logging.Component("notify")),
		reg:    reg,
		stopCh: make(chan struct{}),
	}, nil
}

// Start binds the socket and begins forwarding bus events.
func (p *Publisher) Start() error {
	p.runningMu.Lock()
	defer p.runningMu.Unlock()

	if p.running {
		return fmt.Errorf("notify publisher already running")
	}

	if err := p.sock.Listen(p.addr); err != nil {
		return fmt.Errorf("failed to bind PUB socket to %s: %w", p.addr, err)
	}

	replaced, err := p.bus.Subscribe(context.Background(), pubsub.TopicRoutingReplaced)
	if err != nil {
		p.sock.Close()
		return err
	}
	deleted, err := p.bus.Subscribe(context.Background(), pubsub.TopicRoutingDeleted)
	if err != nil {
		replaced.Unsubscribe()
		p.sock.Close()
		return err
	}

	p.running = true
	p.wg.Add(1)
	go p.forwardLoop(replaced, deleted)

	p.logger.Info("change publisher started", logging.String("addr", p.addr))
	return nil
}

// Stop stops forwarding and closes the socket.
func (p *Publisher) Stop() error {
	p.runningMu.Lock()
	defer p.runningMu.Unlock()

	if !p.running {
		return nil
	}

	close(p.stopCh)
	p.running = false
	p.wg.Wait()

	if err := p.sock.Close(); err != nil {
		p.logger.Warn("failed to close publisher socket", logging.Error(err))
	}

	p.logger.Info("change publisher stopped")
	return nil
}

// Addr reports the listen address.
func (p *Publisher) Addr() string {
	return p.addr
}

func (p *Publisher) forwardLoop(replaced, deleted *pubsub.Subscription) {
	defer p.wg.Done()
	defer replaced.Unsubscribe()
	defer deleted.Unsubscribe()

	for {
		select {
		case <-p.stopCh:
			return
		case evt, ok := <-replaced.Channel():
			if !ok {
				return
			}
			p.send(evt)
		case evt, ok := <-deleted.Channel():
			if !ok {
				return
			}
			p.send(evt)
		}
	}
}

func (p *Publisher) send(evt pubsub.Event) {
	data, err := json.Marshal(evt)
	if err != nil {
		p.logger.Warn("failed to marshal event", logging.Error(err))
		return
	}

	// Prepend topic for subscriber-side filtering.
	msg := append([]byte(evt.Topic), frameSep)
	msg = append(msg, data...)
	if err := p.sock.Send(msg); err != nil {
		p.logger.Warn("failed to publish event",
			logging.ModelID(evt.ModelID),
			logging.Error(err),
		)
		return
	}

	p.reg.RecordNotifyMessage("sent")
}
