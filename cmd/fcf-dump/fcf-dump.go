package main

import (
	"encoding/binary"
	"fmt"
	"os"
)

// Debugging tool that walks the raw structure of an FCF container:
// every record with its offsets and lengths, then the index and trailer.
func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: fcf-dump <file.fcf>")
		os.Exit(1)
	}

	raw, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	if len(raw) < 4 || string(raw[:4]) != "FCF1" {
		fmt.Println("not an FCF container (missing FCF1 magic)")
		os.Exit(1)
	}
	fmt.Printf("FCF1 (file size: %d)\n", len(raw))

	off := int64(4)
	frame := 0
	for off+8 <= int64(len(raw)) {
		magic := string(raw[off : off+4])
		if magic == "INDX" {
			dumpIndex(raw, off)
			return
		}
		if magic != "FRME" {
			fmt.Printf("  unexpected magic %q at offset %d, stopping\n", magic, off)
			return
		}

		metaLen := binary.BigEndian.Uint32(raw[off+4 : off+8])
		dataOff := off + 8 + int64(metaLen)
		if dataOff+8 > int64(len(raw)) {
			fmt.Printf("  truncated record at offset %d\n", off)
			return
		}
		dataLen := binary.BigEndian.Uint64(raw[dataOff : dataOff+8])

		fmt.Printf("  FRME %d (offset: %d, meta: %d bytes, data: %d bytes)\n",
			frame, off, metaLen, dataLen)

		off = dataOff + 8 + int64(dataLen)
		frame++
	}
	fmt.Println("no index trailer (stream readable sequentially only)")
}

func dumpIndex(raw []byte, off int64) {
	if off+8 > int64(len(raw)) {
		fmt.Printf("  truncated index at offset %d\n", off)
		return
	}
	count := binary.BigEndian.Uint32(raw[off+4 : off+8])
	fmt.Printf("  INDX (offset: %d, frames: %d)\n", off, count)

	pos := off + 8
	for i := uint32(0); i < count && pos+8 <= int64(len(raw)); i++ {
		fmt.Printf("    [%d] record offset %d\n",
			i, binary.BigEndian.Uint64(raw[pos:pos+8]))
		pos += 8
	}

	if pos+12 <= int64(len(raw)) {
		indexOff := binary.BigEndian.Uint64(raw[pos : pos+8])
		magic := string(raw[pos+8 : pos+12])
		fmt.Printf("  trailer (index offset: %d, magic: %s)\n", indexOff, magic)
	} else {
		fmt.Println("  missing trailer")
	}
}
