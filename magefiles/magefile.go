// Package main contains Mage build targets for inquiry-engine developer tooling.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// projectDirs lists the working directories the engine expects.
var projectDirs = []string{
	"corpus/documents",
	"index",
	".secrets",
}

// buildTags enables the sqlite FTS5 module used by the passage index.
const buildTags = "sqlite_fts5"

// Init creates the project directory structure for the corpus and index.
func Init() error {
	for _, dir := range projectDirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
		fmt.Println("  ", dir)
	}
	fmt.Println("Project directories initialized.")
	return nil
}

const (
	binDir  = "bin"
	binName = "inquiry-engine"
	cmdPkg  = "./cmd/inquiry-engine"
)

// Build compiles the CLI binary into bin/.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", binDir, err)
	}
	out := filepath.Join(binDir, binName)
	if err := sh.RunV("go", "build", "-tags", buildTags, "-o", out, cmdPkg); err != nil {
		return fmt.Errorf("go build: %w", err)
	}
	fmt.Printf("Built %s\n", out)
	return nil
}

// Test runs every package's tests with the sqlite FTS5 tag.
func Test() error {
	return sh.RunV("go", "test", "-tags", buildTags, "./...")
}

// Ingest builds the CLI and indexes the corpus directory.
func Ingest() error {
	mg.Deps(Init, Build)
	return sh.RunV(filepath.Join(binDir, binName), "corpus", "ingest")
}

// statsAreas are the top-level directories Stats reports on.
var statsAreas = []string{"cmd", "internal", "pkg", "magefiles"}

// Stats prints non-blank Go line counts per area, split into production
// and test code, and the word count of the top-level Markdown documents.
func Stats() error {
	var prodTotal, testTotal int
	for _, area := range statsAreas {
		prod, test, err := countGoLines(area)
		if err != nil {
			return err
		}
		fmt.Printf("%-10s production %6d  tests %6d\n", area, prod, test)
		prodTotal += prod
		testTotal += test
	}
	fmt.Printf("%-10s production %6d  tests %6d\n", "total", prodTotal, testTotal)

	docs, err := filepath.Glob("*.md")
	if err != nil {
		return err
	}
	words := 0
	for _, doc := range docs {
		data, err := os.ReadFile(doc)
		if err != nil {
			return fmt.Errorf("reading %s: %w", doc, err)
		}
		words += len(strings.Fields(string(data)))
	}
	fmt.Printf("Words (documentation): %d\n", words)
	return nil
}

// countGoLines counts non-blank lines of Go files under root. Hidden and
// underscore-prefixed directories are skipped, as the go tool does.
func countGoLines(root string) (prod, test int, err error) {
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			if name := d.Name(); path != root && (strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")) {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".go" {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		n := 0
		for _, line := range strings.Split(string(data), "\n") {
			if strings.TrimSpace(line) != "" {
				n++
			}
		}
		if strings.HasSuffix(path, "_test.go") {
			test += n
		} else {
			prod += n
		}
		return nil
	})
	return prod, test, err
}
