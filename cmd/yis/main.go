// yis loads an assembled Y86-64 object image and runs it to completion
// against the ISA reference simulator (the ground truth every hardware
// description is checked against), printing the final architectural
// state.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/y86sim/archlab/isa"
	"github.com/y86sim/archlab/mem"
)

var maxCycle = flag.Uint64("max-cpu-cycle", 100000, "Maximum number of instructions to execute before giving up")

func main() {
	flag.Parse()
	if len(flag.Args()) != 1 {
		log.Fatalf("Invalid command: %s [-max-cpu-cycle N] <in.yo>", os.Args[0])
	}
	in := flag.Args()[0]

	b, err := os.ReadFile(in)
	if err != nil {
		log.Fatalf("Can't open %s - %v", in, err)
	}
	img := mem.FromBytes(b)

	result, err := isa.Simulate(img, *maxCycle)
	fmt.Printf("Stat = %s\n", result.Stat)
	for r := uint8(0); r < isa.R14+1; r++ {
		fmt.Printf("%-4s = %s\n", isa.RegName(r), isa.FormatHex(result.Regs.Get(r)))
	}
	if err != nil {
		log.Fatalf("Simulation error: %v", err)
	}
}
