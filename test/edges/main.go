//go:build linux

package main

// Prints the time between rising edges on a GPIO line, after pulling
// it low the way a DHT host does.  Useful for checking wiring and how
// well a backend keeps up with the sensor.

import (
	"log"
	"os"
	"sync"
	"time"

	"hive13/dht/edge"
)

func main() {
	chip, err := edge.NewChip("gpiochip0", nil)
	if err != nil {
		log.Fatal(err)
	}
	defer chip.Close()

	pin := 17
	var mu sync.Mutex
	var ticks []uint32
	reg, err := chip.OnRisingEdge(pin, func(t uint32) {
		mu.Lock()
		ticks = append(ticks, t)
		mu.Unlock()
	})
	if err != nil {
		log.Fatal(err)
	}
	defer reg.Cancel()

	log.Printf("Pulling GPIO%d low for 18ms...", pin)
	if err := chip.Configure(pin, edge.Output); err != nil {
		log.Fatal(err)
	}
	if err := chip.Write(pin, edge.Low); err != nil {
		log.Fatal(err)
	}
	time.Sleep(18 * time.Millisecond)
	if err := chip.Configure(pin, edge.Input); err != nil {
		log.Fatal(err)
	}
	time.Sleep(250 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	log.Printf("%d rising edges", len(ticks))
	for i := 1; i < len(ticks); i++ {
		log.Printf("%2d: %5dus", i, edge.Delta(ticks[i-1], ticks[i]))
	}
	if len(ticks) != 43 {
		os.Exit(1)
	}
}
