// yas assembles a Y86-64 source file into a raw 64 KiB memory image,
// the external object format spec.md §6 documents as the core's only
// input: `<in.ys>` in, `<in.yo>` out.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/y86sim/archlab/yasm"
)

var (
	out     = flag.String("o", "", "Output file. Defaults to the input with its extension replaced by .yo")
	verbose = flag.Bool("v", false, "Print the assembled object dump (addr: bytes | source) to stdout")
)

func main() {
	flag.Parse()
	if len(flag.Args()) != 1 {
		log.Fatalf("Invalid command: %s [-o out.yo] [-v] <in.ys>", os.Args[0])
	}
	in := flag.Args()[0]

	src, err := os.ReadFile(in)
	if err != nil {
		log.Fatalf("Can't open %s - %v", in, err)
	}

	img, lines, err := yasm.Assemble(string(src))
	if err != nil {
		log.Fatalf("Assembly failed: %v", err)
	}

	if *verbose {
		fmt.Print(yasm.FormatObject(lines))
	}

	outFile := *out
	if outFile == "" {
		outFile = strings.TrimSuffix(in, filepath.Ext(in)) + ".yo"
	}
	if err := os.WriteFile(outFile, img.Bytes(), 0o644); err != nil {
		log.Fatalf("Can't write %s - %v", outFile, err)
	}
}
