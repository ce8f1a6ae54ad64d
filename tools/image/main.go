// Package image converts an elf executable into the raw storage image a
// boot ROM programs into flash: every loadable segment placed at its load
// (physical) address, gaps filled with the flash erase value. The .data
// initial values end up at their LMA, where the startup code copies them
// from.
package image

import (
	"cmp"
	"debug/elf"
	"flag"
	"fmt"
	"log"
	"os"
	"slices"
	"strings"
)

const usageString = `ELF to flash image converter.

Usage: %s [flags] <elffile>

`

var (
	flags = flag.NewFlagSet("image", flag.ExitOnError)

	infile     string
	outfile    = flags.String("o", "", "output file, defaults to <elffile>.bin")
	base       = flags.Uint64("base", 0, "flash base address, defaults to the lowest load address")
	withHeader = flags.Bool("header", false, "prepend an image header")
	sd         = flags.String("sd", "", "additionally write a bootable FAT32 disk image")
	run        = flags.String("run", "", "run the image with command")
)

// Gaps between segments read back as the erase value of NOR flash.
const erased = 0xff

func usage() {
	fmt.Fprintf(flags.Output(), usageString, "image")
	flags.PrintDefaults()
}

// A segment is one loadable chunk of the program together with the flash
// address it must be stored at.
type segment struct {
	paddr uint64
	data  []byte
}

func loadSegments(f *elf.File) ([]segment, error) {
	var segs []segment
	for _, p := range f.Progs {
		if p.Type != elf.PT_LOAD || p.Filesz == 0 {
			continue
		}
		data := make([]byte, p.Filesz)
		if _, err := p.ReadAt(data, 0); err != nil {
			return nil, fmt.Errorf("read segment at %#x: %w", p.Paddr, err)
		}
		segs = append(segs, segment{p.Paddr, data})
	}
	if len(segs) == 0 {
		return nil, fmt.Errorf("no loadable segments")
	}
	slices.SortFunc(segs, func(a, b segment) int {
		return cmp.Compare(a.paddr, b.paddr)
	})
	return segs, nil
}

// flatten lays out the segments relative to the flash base address. Gaps are
// filled with the erase value so unrelated flash content stays untouched
// when the image is programmed.
func flatten(segs []segment, base uint64) ([]byte, error) {
	var img []byte
	for _, s := range segs {
		if s.paddr < base {
			return nil, fmt.Errorf("segment at %#x below flash base %#x", s.paddr, base)
		}
		off := s.paddr - base
		if off < uint64(len(img)) {
			return nil, fmt.Errorf("segment at %#x overlaps previous segment", s.paddr)
		}
		for uint64(len(img)) < off {
			img = append(img, erased)
		}
		img = append(img, s.data...)
	}
	return img, nil
}

// report prints the spans the startup code will operate on, so they can be
// cross-checked against the linker script symbols.
func report(f *elf.File, base uint64) {
	for _, name := range []string{".data", ".bss"} {
		s := f.Section(name)
		if s == nil {
			continue
		}
		switch s.Type {
		case elf.SHT_PROGBITS:
			lma, ok := loadAddr(f, s.Addr)
			if !ok {
				log.Printf("%-8s %#x-%#x (no load segment)", s.Name, s.Addr, s.Addr+s.Size)
				continue
			}
			log.Printf("%-8s %#x-%#x lma %#x (flash offset %#x)",
				s.Name, s.Addr, s.Addr+s.Size, lma, lma-base)
		case elf.SHT_NOBITS:
			log.Printf("%-8s %#x-%#x", s.Name, s.Addr, s.Addr+s.Size)
		}
	}
}

// loadAddr translates a virtual address into its load (physical) address.
func loadAddr(f *elf.File, vaddr uint64) (uint64, bool) {
	for _, p := range f.Progs {
		if p.Type == elf.PT_LOAD && vaddr >= p.Vaddr && vaddr < p.Vaddr+p.Memsz {
			return p.Paddr + (vaddr - p.Vaddr), true
		}
	}
	return 0, false
}

func Main(args []string) {
	flags.Usage = usage
	flags.Parse(args[1:])

	if flags.NArg() == 1 {
		infile = flags.Arg(0)
	} else {
		flags.Usage()
		os.Exit(1)
	}

	out := *outfile
	if out == "" {
		out, _ = strings.CutSuffix(infile, ".elf")
		out += ".bin"
	}

	f, err := elf.Open(infile)
	if err != nil {
		log.Fatalln(err)
	}
	defer f.Close()

	segs, err := loadSegments(f)
	if err != nil {
		log.Fatalln("objcopy:", err)
	}

	flashBase := *base
	if flashBase == 0 {
		flashBase = segs[0].paddr
	}

	img, err := flatten(segs, flashBase)
	if err != nil {
		log.Fatalln("objcopy:", err)
	}

	if *withHeader {
		h := Header{
			Version: HeaderVersion,
			Length:  uint32(len(img)),
			Load:    flashBase,
			Entry:   f.Entry,
		}
		hdr, err := h.MarshalBinary()
		if err != nil {
			log.Fatalln("header:", err)
		}
		img = append(hdr, img...)
	}

	err = os.WriteFile(out, img, 0o666)
	if err != nil {
		log.Fatalln(err)
	}

	report(f, flashBase)
	log.Printf("%-8s %d bytes -> %s", "image", len(img), out)

	if *sd != "" {
		if err := writeSD(*sd, img); err != nil {
			log.Fatalln("sd image:", err)
		}
	}

	if *run != "" {
		os.Exit(runImage(*run, out))
	}
}
