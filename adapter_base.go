package climabus

import (
	"sync"
)

// BaseAdapter carries the channels every adapter exposes. Concrete adapters
// embed it and feed frames through deliver.
type BaseAdapter struct {
	name     string
	cfg      *AdapterConfig
	recvChan chan *CANFrame

	errOnce sync.Once
	errChan chan error

	evtChan chan Event

	closeOnce sync.Once
	closeChan chan struct{}

	droppedMu sync.Mutex
	dropped   uint64
}

func NewBaseAdapter(name string, cfg *AdapterConfig) *BaseAdapter {
	if cfg == nil {
		cfg = &AdapterConfig{}
	}
	return &BaseAdapter{
		name:      name,
		cfg:       cfg,
		recvChan:  make(chan *CANFrame, 1024),
		errChan:   make(chan error, 1),
		evtChan:   make(chan Event, 100),
		closeChan: make(chan struct{}),
	}
}

// Name returns the adapter name.
func (base *BaseAdapter) Name() string {
	return base.name
}

// Return the receive channel for the adapter
func (base *BaseAdapter) Recv() <-chan *CANFrame {
	return base.recvChan
}

// Return the error channel for the adapter
func (base *BaseAdapter) Err() <-chan error {
	return base.errChan
}

func (base *BaseAdapter) Event() <-chan Event {
	return base.evtChan
}

// Closed is closed once Close has been called.
func (base *BaseAdapter) Closed() <-chan struct{} {
	return base.closeChan
}

// Dropped returns how many frames were discarded because the receive
// channel was full.
func (base *BaseAdapter) Dropped() uint64 {
	base.droppedMu.Lock()
	defer base.droppedMu.Unlock()
	return base.dropped
}

func (base *BaseAdapter) Close() error {
	base.closeOnce.Do(func() {
		close(base.closeChan)
	})
	return nil
}

// Set a fatal adapter error, meaning communication is broken and cannot continue.
func (base *BaseAdapter) Fatal(err error) {
	base.errOnce.Do(func() {
		select {
		case base.errChan <- err:
		default:
		}
	})
}

// deliver hands a frame to the reader without blocking. Frames outside the
// filter are discarded; a full channel drops the frame and raises a warning.
func (base *BaseAdapter) deliver(f *CANFrame) {
	if !base.cfg.Accepts(f.Identifier) {
		return
	}
	select {
	case base.recvChan <- f:
	default:
		base.droppedMu.Lock()
		base.dropped++
		base.droppedMu.Unlock()
		base.Warn(ErrDroppedFrame.Error())
	}
}

// deliverWait hands a frame to the reader, waiting for room. It returns false
// once the adapter is closed.
func (base *BaseAdapter) deliverWait(f *CANFrame) bool {
	if !base.cfg.Accepts(f.Identifier) {
		return true
	}
	select {
	case base.recvChan <- f:
		return true
	case <-base.closeChan:
		return false
	}
}

func (base *BaseAdapter) sendEvent(eventType EventType, details string) {
	select {
	case base.evtChan <- Event{Type: eventType, Details: details}:
	default:
	}
}

// Send an error event
func (base *BaseAdapter) Error(err error) {
	base.sendEvent(EventTypeError, err.Error())
}

// Send a warning event
func (base *BaseAdapter) Warn(warn string) {
	base.sendEvent(EventTypeWarning, warn)
}

// Send an info event
func (base *BaseAdapter) Info(info string) {
	base.sendEvent(EventTypeInfo, info)
}

// Send a debug event, only when the adapter runs with Debug set
func (base *BaseAdapter) Debug(debug string) {
	if base.cfg.Debug {
		base.sendEvent(EventTypeDebug, debug)
	}
}
