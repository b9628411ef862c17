// Command ext2ls lists the contents of a directory inside an ext2 image,
// grounded on original_source/src/ls.c's single-image-operand argv contract
// and the teacher's flag-based CLI style (examples/serve-image/main.go).
// Colored, type-prefixed output reproduces ls.c's formatting using the same
// ESC_BOLD/ESC_RED/ESC_RESET-style ANSI constants original_source/src/cp.c
// defines, since no color library made it into this module's stack.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/go-ext2/ext2fs/backend/file"
	"github.com/go-ext2/ext2fs/filesystem/ext2"
)

const (
	escReset = "\033[0m"
	escBold  = "\033[1m"
	escBlue  = "\033[34m"
	escCyan  = "\033[36m"
)

// typePrefix returns ls.c's single-character type column plus the ANSI
// styling for that type: 'd' directories bold blue, 'l' symlinks cyan,
// 'b'/'c' device nodes, 'p' fifos, 's' sockets, '-' regular files, and a
// numeric fallback for anything this core doesn't recognize.
func typePrefix(mode os.FileMode) (prefix, style string) {
	switch {
	case mode&os.ModeDir != 0:
		return "d", escBold + escBlue
	case mode&os.ModeSymlink != 0:
		return "l", escCyan
	case mode&os.ModeNamedPipe != 0:
		return "p", ""
	case mode&os.ModeSocket != 0:
		return "s", ""
	case mode&os.ModeCharDevice != 0:
		return "c", ""
	case mode&os.ModeDevice != 0:
		return "b", ""
	case mode&os.ModeType == 0:
		return "-", ""
	default:
		return fmt.Sprintf("%d", mode&os.ModeType), ""
	}
}

func list(imagePath, dirPath string) error {
	f, err := os.Open(imagePath)
	if err != nil {
		return fmt.Errorf("cannot open %q: %w", imagePath, err)
	}
	defer f.Close()

	b := file.New(f, true)
	fs, err := ext2.Mount(b, 0, 0)
	if err != nil {
		return fmt.Errorf("cannot mount %q as ext2: %w", imagePath, err)
	}

	entries, err := fs.ReadDir(dirPath)
	if err != nil {
		return fmt.Errorf("cannot read directory %q: %w", dirPath, err)
	}

	for _, e := range entries {
		prefix, style := typePrefix(e.Mode())
		if style != "" {
			fmt.Printf("%s%s%s %10d %s\n", style, prefix, escReset, e.Size(), e.Name())
		} else {
			fmt.Printf("%s %10d %s\n", prefix, e.Size(), e.Name())
		}
	}
	return nil
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s IMAGE [PATH]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		flag.Usage()
		os.Exit(1)
	}

	imagePath := args[0]
	dirPath := "/"
	if len(args) >= 2 {
		dirPath = args[1]
	}

	if err := list(imagePath, dirPath); err != nil {
		log.Fatalf("ext2ls: error: %v", err)
	}
}
