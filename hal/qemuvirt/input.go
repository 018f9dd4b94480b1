package qemuvirt

import "sync"

// Input drives a pair of virtio-input devices (keyboard + absolute-position
// mouse). A real guest drains these from the virtqueue's used ring; this
// collaborator exposes the same queued-event shape via Push/PushMouse so a
// test harness can feed it without a virtio backend.
type Input struct {
	mu      sync.Mutex
	keys    []int
	x, y    int
	buttons int
}

func NewInput() *Input { return &Input{} }

func (i *Input) Init() error { return nil }

func (i *Input) GetKey() (int, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if len(i.keys) == 0 {
		return 0, false
	}
	k := i.keys[0]
	i.keys = i.keys[1:]
	return k, true
}

func (i *Input) MouseState() (int, int, int) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.x, i.y, i.buttons
}

// PushKey queues a key event as if delivered over the virtio-input queue.
func (i *Input) PushKey(code int) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.keys = append(i.keys, code)
}

// SetMouse updates the absolute pointer state.
func (i *Input) SetMouse(x, y, buttons int) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.x, i.y, i.buttons = x, y, buttons
}
