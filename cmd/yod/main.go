// yod loads a raw Y86-64 object image and disassembles it to stdout
// starting at a given address, continuing until it reaches the first
// halt instruction or the end of the file's live bytes — grounded on
// disassembler.go's "load, then walk Step until the buffer's
// exhausted" loop.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/y86sim/archlab/disasm"
	"github.com/y86sim/archlab/isa"
	"github.com/y86sim/archlab/mem"
)

var startPC = flag.Uint64("start-pc", 0, "Address to start disassembling from")

func main() {
	flag.Parse()
	if len(flag.Args()) != 1 {
		log.Fatalf("Invalid command: %s [-start-pc N] <in.yo>", os.Args[0])
	}
	in := flag.Args()[0]

	b, err := os.ReadFile(in)
	if err != nil {
		log.Fatalf("Can't open %s - %v", in, err)
	}
	img := mem.FromBytes(b)

	fmt.Printf("0x%x bytes at pc: 0x%x\n", len(b), *startPC)
	pc := *startPC
	end := uint64(len(b))
	for pc < end {
		text, n := disasm.Step(pc, img)
		fmt.Println(text)
		header := img.ReadByte(pc)
		if header>>4 == isa.HALT {
			break
		}
		pc += uint64(n)
	}
}
