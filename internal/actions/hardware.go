package actions

import (
	"log"
	"sync"
)

// HardwareController is a mock for door and light control. Real GPIO or
// home-automation integration would replace this behind the same methods;
// until then it just tracks state so repeated commands are observable and
// harmless.
type HardwareController struct {
	mu       sync.Mutex
	doorOpen bool
	lightOn  bool
}

func NewHardwareController() *HardwareController {
	return &HardwareController{}
}

func (h *HardwareController) SetDoor(open bool) Result {
	h.mu.Lock()
	h.doorOpen = open
	h.mu.Unlock()

	state := "closed"
	if open {
		state = "open"
	}
	log.Printf("[hardware] door %s", state)
	return success("door " + state)
}

func (h *HardwareController) SetLight(on bool) Result {
	h.mu.Lock()
	h.lightOn = on
	h.mu.Unlock()

	state := "off"
	if on {
		state = "on"
	}
	log.Printf("[hardware] light %s", state)
	return success("light " + state)
}

func (h *HardwareController) DoorOpen() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.doorOpen
}

func (h *HardwareController) LightOn() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lightOn
}
