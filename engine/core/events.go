package core

import "sync"

// System internal event codes. Application should use codes beyond 255.
type EventCode int

const (
	// Shuts the application down on the next frame.
	EVENT_CODE_APPLICATION_QUIT EventCode = 0x01

	// Keyboard key pressed. Data is *KeyEvent.
	EVENT_CODE_KEY_PRESSED EventCode = 0x02

	// Keyboard key released. Data is *KeyEvent.
	EVENT_CODE_KEY_RELEASED EventCode = 0x03

	// Mouse button pressed. Data is *MouseEvent.
	EVENT_CODE_BUTTON_PRESSED EventCode = 0x04

	// Mouse button released. Data is *MouseEvent.
	EVENT_CODE_BUTTON_RELEASED EventCode = 0x05

	// Mouse moved. Data is *MouseEvent.
	EVENT_CODE_MOUSE_MOVED EventCode = 0x06

	// Mouse wheel scrolled. Data is *MouseEvent.
	EVENT_CODE_MOUSE_WHEEL EventCode = 0x07

	// Resized/resolution changed from the OS. Data is *SystemEvent.
	EVENT_CODE_RESIZED EventCode = 0x08

	// An asset on disk changed and should be reloaded. Data is *AssetEvent.
	EVENT_CODE_ASSET_CHANGED EventCode = 0x09

	MAX_EVENT_CODE EventCode = 0xFF
)

type EventContext struct {
	Type EventCode
	Data interface{}
}

type KeyEvent struct {
	KeyCode KeyCode
}

type MouseEvent struct {
	Button Button
	PosX   uint16
	PosY   uint16
	Scroll int8
}

type SystemEvent struct {
	WindowWidth  uint32
	WindowHeight uint32
}

type AssetEvent struct {
	Path string
}

type FnEventCallback func(context EventContext)

// Queue depth before EventFire starts dropping. Sized generously; input
// bursts never come close.
const maxQueuedEvents = 1024

type eventSystemState struct {
	mutex    sync.RWMutex
	handlers map[EventCode][]FnEventCallback
	queue    chan EventContext
	done     chan struct{}
}

var onceEvent sync.Once
var eventState *eventSystemState

func EventSystemInitialize() bool {
	onceEvent.Do(func() {
		eventState = &eventSystemState{
			handlers: make(map[EventCode][]FnEventCallback),
			queue:    make(chan EventContext, maxQueuedEvents),
			done:     make(chan struct{}),
		}
	})
	return eventState != nil
}

func EventSystemShutdown() error {
	if eventState == nil {
		return nil
	}
	close(eventState.done)
	eventState.mutex.Lock()
	eventState.handlers = make(map[EventCode][]FnEventCallback)
	eventState.mutex.Unlock()
	return nil
}

// EventRegister subscribes the callback to the given code. Callbacks run on
// the event-processing goroutine, in registration order.
func EventRegister(code EventCode, callback FnEventCallback) bool {
	if eventState == nil {
		return false
	}
	eventState.mutex.Lock()
	defer eventState.mutex.Unlock()
	eventState.handlers[code] = append(eventState.handlers[code], callback)
	return true
}

// EventFire queues the event for processing. Never blocks the caller; if the
// queue is saturated the event is dropped with a warning.
func EventFire(context EventContext) bool {
	if eventState == nil {
		return false
	}
	select {
	case eventState.queue <- context:
		return true
	default:
		LogWarn("event queue full, dropping event type %d", context.Type)
		return false
	}
}

// ProcessEvents drains the queue until shutdown. Run it on its own goroutine.
func ProcessEvents() {
	if eventState == nil {
		return
	}
	for {
		select {
		case context := <-eventState.queue:
			dispatch(context)
		case <-eventState.done:
			return
		}
	}
}

func dispatch(context EventContext) {
	eventState.mutex.RLock()
	handlers := eventState.handlers[context.Type]
	eventState.mutex.RUnlock()
	for _, cb := range handlers {
		cb(context)
	}
}
