package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.nanomsg.org/mangos/v3"
	"go.nanomsg.org/mangos/v3/protocol/sub"

	"github.com/Aaron-1990/line-routing/pkg/logging"
	"github.com/Aaron-1990/line-routing/pkg/pubsub"
)

// DefaultRecvTimeout bounds how long a watcher blocks per receive, so
// Stop is observed promptly.
const DefaultRecvTimeout = 1 * time.Second

// EventHandler consumes one decoded change event.
type EventHandler func(evt pubsub.Event)

// WatcherConfig configures a change watcher.
type WatcherConfig struct {
	Addr        string
	RecvTimeout time.Duration
}

// Watcher dials a publisher and delivers decoded events to a handler.
type Watcher struct {
	sock      mangos.Socket
	addr      string
	handler   EventHandler
	timeout   time.Duration
	logger    logging.Logger
	stopCh    chan struct{}
	wg        sync.WaitGroup
	running   bool
	runningMu sync.Mutex
}

// NewWatcher creates a watcher that invokes handler for every event.
func NewWatcher(cfg WatcherConfig, handler EventHandler, logger logging.Logger) (*Watcher, error) {
	if handler == nil {
		return nil, fmt.Errorf("event handler is required")
	}

	sock, err := sub.NewSocket()
	if err != nil {
		return nil, fmt.Errorf("failed to create SUB socket: %w", err)
	}

	addr := cfg.Addr
	if addr == "" {
		addr = DefaultPubAddr
	}
	timeout := cfg.RecvTimeout
	if timeout <= 0 {
		timeout = DefaultRecvTimeout
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	return &Watcher{
		sock:    sock,
		addr:    addr,
		handler: handler,
		timeout: timeout,
		logger:  logger.With(logging.Component("notify")),
		stopCh:  make(chan struct{}),
	}, nil
}

// Start dials the publisher and begins delivering events.
func (w *Watcher) Start() error {
	w.runningMu.Lock()
	defer w.runningMu.Unlock()

	if w.running {
		return nil
	}

	if err := w.sock.Dial(w.addr); err != nil {
		return fmt.Errorf("failed to dial %s: %w", w.addr, err)
	}
	if err := w.sock.SetOption(mangos.OptionSubscribe, []byte(TopicPrefix)); err != nil {
		w.sock.Close()
		return err
	}
	if err := w.sock.SetOption(mangos.OptionRecvDeadline, w.timeout); err != nil {
		w.sock.Close()
		return err
	}

	w.running = true
	w.wg.Add(1)
	go w.recvLoop()

	w.logger.Info("change watcher connected", logging.String("addr", w.addr))
	return nil
}

// Stop stops delivery and closes the socket.
func (w *Watcher) Stop() error {
	w.runningMu.Lock()
	defer w.runningMu.Unlock()

	if !w.running {
		return nil
	}

	close(w.stopCh)
	w.running = false
	w.wg.Wait()
	w.sock.Close()

	w.logger.Info("change watcher stopped")
	return nil
}

func (w *Watcher) recvLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.stopCh:
			return
		default:
		}

		msg, err := w.sock.Recv()
		if err != nil {
			// Timeout; loop back to check stopCh.
			continue
		}

		idx := bytes.IndexByte(msg, frameSep)
		if idx < 0 {
			continue
		}
		data := msg[idx+1:]

		var evt pubsub.Event
		if err := json.Unmarshal(data, &evt); err != nil {
			w.logger.Warn("failed to decode change event", logging.Error(err))
			continue
		}

		w.handler(evt)
	}
}
