// Command ext2cp copies host files into an ext2 image, grounded on
// original_source/src/cp.c's argv contract: IMAGE SRC... DEST, with DEST
// required to be an absolute in-image path. Writing to the image itself is
// out of scope here, so the copy step always reports
// filesystem.ErrReadonlyFilesystem once arguments have been validated —
// this core never pretends to succeed at a mutation it cannot perform.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/go-ext2/ext2fs/backend/file"
	"github.com/go-ext2/ext2fs/filesystem"
	"github.com/go-ext2/ext2fs/filesystem/ext2"
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s IMAGE SOURCE DEST\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "   or: %s IMAGE SOURCE... DIRECTORY\n", os.Args[0])
	flag.PrintDefaults()
}

// parseArgs replaces the source's two-pass argv scan with a single pass that
// counts sources consistently: nsrcs is (non-flag args after IMAGE) - 1, the
// last being the destination, not the off-by-one the original's
// nsrcs/nsrc_files split invited.
func parseArgs(args []string) (image string, srcs []string, dst string, err error) {
	var nonFlag []string
	for _, a := range args {
		if len(a) > 0 && a[0] == '-' {
			continue
		}
		nonFlag = append(nonFlag, a)
	}
	if len(nonFlag) == 0 {
		return "", nil, "", fmt.Errorf("missing image operand")
	}
	image = nonFlag[0]
	rest := nonFlag[1:]
	if len(rest) == 0 {
		return "", nil, "", fmt.Errorf("missing source operand")
	}
	if len(rest) == 1 {
		return "", nil, "", fmt.Errorf("missing destination operand")
	}
	srcs = rest[:len(rest)-1]
	dst = rest[len(rest)-1]
	return image, srcs, dst, nil
}

func copyFiles(imagePath string, srcs []string, dst string) error {
	if dst == "" || dst[0] != '/' {
		return fmt.Errorf("destination must be absolute path")
	}

	for _, src := range srcs {
		f, err := os.Open(src)
		if err != nil {
			return fmt.Errorf("failed to open source file %q: %w", src, err)
		}
		f.Close()
	}

	imgFile, err := os.Open(imagePath)
	if err != nil {
		return fmt.Errorf("failed to open image file %q: %w", imagePath, err)
	}
	defer imgFile.Close()

	b := file.New(imgFile, true)
	if _, err := ext2.Mount(b, 0, 0); err != nil {
		return fmt.Errorf("cannot mount %q as ext2: %w", imagePath, err)
	}

	return fmt.Errorf("copy into %s: %w", dst, filesystem.ErrReadonlyFilesystem)
}

func main() {
	flag.Usage = usage
	flag.Parse()

	image, srcs, dst, err := parseArgs(flag.Args())
	if err != nil {
		usage()
		log.Fatalf("ext2cp: error: %v", err)
	}

	if err := copyFiles(image, srcs, dst); err != nil {
		log.Fatalf("ext2cp: error: %v", err)
	}
}
