package stm32f1xx

import (
	"fmt"

	"omibyte.io/hwinit/hwerr"
	"omibyte.io/hwinit/pins"
)

type timerInfo struct {
	// channels maps a pin to its 1-based output compare channel.
	channels map[pins.Pin]int
	remap    string
	bus      string
}

var timers = map[string]timerInfo{
	"tim1": {
		channels: pinChannels("PA8", "PA9", "PA10", "PA11"),
		remap:    "Tim1NoRemap",
		bus:      "apb2",
	},
	"tim2": {
		channels: pinChannels("PA0", "PA1", "PA2", "PA3"),
		remap:    "Tim2NoRemap",
		bus:      "apb1",
	},
	"tim3": {
		channels: pinChannels("PA6", "PA7", "PB0", "PB1"),
		remap:    "Tim3NoRemap",
		bus:      "apb1",
	},
	"tim4": {
		channels: pinChannels("PB6", "PB7", "PB8", "PB9"),
		remap:    "Tim4NoRemap",
		bus:      "apb1",
	},
}

func pinChannels(names ...string) map[pins.Pin]int {
	m := make(map[pins.Pin]int, len(names))
	for i, n := range names {
		m[pins.MustParse(n)] = i + 1
	}
	return m
}

type serialRoute struct {
	tx, rx pins.Pin
}

type serialInfo struct {
	routes []serialRoute
	bus    string
	irq    string
}

var serials = map[string]serialInfo{
	"usart1": {
		routes: []serialRoute{
			{tx: pins.MustParse("PA9"), rx: pins.MustParse("PA10")},
			{tx: pins.MustParse("PB6"), rx: pins.MustParse("PB7")},
		},
		bus: "apb2",
		irq: "USART1",
	},
	"usart2": {
		routes: []serialRoute{{tx: pins.MustParse("PA2"), rx: pins.MustParse("PA3")}},
		bus:    "apb1",
		irq:    "USART2",
	},
	"usart3": {
		routes: []serialRoute{{tx: pins.MustParse("PB10"), rx: pins.MustParse("PB11")}},
		bus:    "apb1",
		irq:    "USART3",
	},
}

func timerFor(id string) (timerInfo, error) {
	t, ok := timers[id]
	if !ok {
		return timerInfo{}, hwerr.UnknownIdentity(hwerr.ErrUnknownPeripheral, id, "")
	}
	return t, nil
}

// channelOf returns the output compare channel pin drives on timer id.
func channelOf(id string, pin pins.Pin) (int, error) {
	t, err := timerFor(id)
	if err != nil {
		return 0, err
	}
	ch, ok := t.channels[pin]
	if !ok {
		return 0, hwerr.Range(hwerr.ErrPinNotRoutable, pin.TypeName(), "%s has no channel on %s", id, pin.TypeName())
	}
	return ch, nil
}

func serialFor(id string, tx, rx pins.Pin) (serialInfo, error) {
	s, ok := serials[id]
	if !ok {
		return serialInfo{}, hwerr.UnknownIdentity(hwerr.ErrUnknownPeripheral, id, "")
	}
	for _, r := range s.routes {
		if r.tx == tx && r.rx == rx {
			return s, nil
		}
	}
	return serialInfo{}, hwerr.Range(hwerr.ErrPinNotRoutable, fmt.Sprintf("%s/%s", tx.TypeName(), rx.TypeName()), "%s cannot use tx %s with rx %s", id, tx.TypeName(), rx.TypeName())
}

// extiLine names the external interrupt vector serving pin.
func extiLine(pin pins.Pin) string {
	switch {
	case pin.Number <= 4:
		return fmt.Sprintf("EXTI%d", pin.Number)
	case pin.Number <= 9:
		return "EXTI9_5"
	default:
		return "EXTI15_10"
	}
}
