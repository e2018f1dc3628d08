// Command jpegtotiff rewraps a baseline JPEG file as a TIFF container
// without re-encoding the image data.
//
// Usage:
//
//	jpegtotiff [-dump] input.jpg [output.tif]
//
// When the output name is omitted it is derived from the input name by
// replacing the extension with ".tif". If the input name has no dot, or the
// derived file already exists, the output falls back to
// JPEG-COMPRESSED-TIFF-FILE.tif in the current directory. With -dump the parsed segment structure of the input (JPEG or
// TIFF) is printed instead of converting.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	jpegtiff "github.com/vidarb/Rewrap-jpeg-as-tiff"
)

const fallbackName = "JPEG-COMPRESSED-TIFF-FILE.tif"

// deriveOutputName strips the last dot-suffix of the input name and appends
// ".tif". A name without a dot yields the fallback name.
func deriveOutputName(inName string) string {
	if pos := strings.LastIndexByte(inName, '.'); pos >= 0 {
		return inName[:pos] + ".tif"
	}

	return fallbackName
}

func fileExists(name string) bool {
	_, err := os.Stat(name)

	return err == nil
}

func run() error {
	dump := flag.Bool("dump", false, "print the segment structure of the input instead of converting")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [-dump] input.jpg [output.tif]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 1 || flag.NArg() > 2 {
		flag.Usage()
		os.Exit(2)
	}
	inName := flag.Arg(0)

	data, err := os.ReadFile(inName)
	if err != nil {
		return err
	}

	opts := &jpegtiff.Options{
		Warn: func(format string, args ...any) {
			fmt.Fprintf(os.Stderr, "Warning: "+format+"\n", args...)
		},
	}

	if *dump {
		list, err := jpegtiff.ReadSegments(data, opts)
		if err != nil {
			return err
		}
		list.Dump(os.Stdout)

		return nil
	}

	outName := flag.Arg(1)
	if outName == "" {
		outName = deriveOutputName(inName)
		if fileExists(outName) {
			fmt.Fprintf(os.Stderr, "Warning: %q exists!\n", outName)
			outName = fallbackName
			fmt.Fprintf(os.Stderr, "Writing to %q instead!\n", outName)
		}
	}

	fmt.Fprintf(os.Stderr, "Infile:  %s\n", inName)
	fmt.Fprintf(os.Stderr, "Outfile: %s\n", outName)

	out, err := jpegtiff.RewrapBytes(data, opts)
	if err != nil {
		return err
	}

	return os.WriteFile(outName, out, 0o644)
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
