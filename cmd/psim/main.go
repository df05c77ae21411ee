// psim assembles a Y86-64 source file and runs it on a chosen
// microarchitecture description, cycle by cycle, to termination. -I
// prints the architecture's stage names and critical-path length
// instead of running it.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/y86sim/archlab/arch"
	"github.com/y86sim/archlab/isa"
	"github.com/y86sim/archlab/yasm"
)

var (
	archName = flag.String("A", "pipe_std", "Architecture to simulate: one of "+fmt.Sprint(arch.Names()))
	info     = flag.Bool("I", false, "Print architecture information and the critical-path length, then exit")
	maxCycle = flag.Uint64("max-cpu-cycle", 100000, "Maximum number of cycles to run before giving up")
)

func main() {
	flag.Parse()

	if *info {
		desc, err := arch.Describe(*archName)
		if err != nil {
			log.Fatalf("%v", err)
		}
		fmt.Printf("arch = %s\n", desc.Name)
		fmt.Printf("critical path = %d\n", desc.CriticalPath)
		for _, s := range desc.Stages {
			fmt.Printf("stage %s\n", s)
		}
		return
	}

	if len(flag.Args()) != 1 {
		log.Fatalf("Invalid command: %s [-A arch] [-I] [-max-cpu-cycle N] <in.ys>", os.Args[0])
	}
	in := flag.Args()[0]

	src, err := os.ReadFile(in)
	if err != nil {
		log.Fatalf("Can't open %s - %v", in, err)
	}
	img, _, err := yasm.Assemble(string(src))
	if err != nil {
		log.Fatalf("Assembly failed: %v", err)
	}

	cpu, err := arch.Create(*archName, img)
	if err != nil {
		log.Fatalf("%v", err)
	}

	for cycles := uint64(0); !cpu.Terminated(); cycles++ {
		if cycles >= *maxCycle {
			log.Fatalf("Exceeded max-cpu-cycle (%d) without terminating", *maxCycle)
		}
		cpu.Step()
	}

	fmt.Printf("Terminated after %d cycles (critical path %d)\n", cpu.CycleCount(), cpu.CriticalPath())
	for r := uint8(0); r < isa.R14+1; r++ {
		fmt.Printf("%-4s = %s\n", isa.RegName(r), isa.FormatHex(cpu.Registers().Get(r)))
	}
}
