// Package main provides kb-seed, a tool to seed large test boards.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
	"time"
)

var columns = []string{"Todo", "Doing", "Review", "Done"}

func main() {
	counts := []int{1000, 100000}
	baseDir := filepath.Join(os.TempDir(), "kb-bench")

	for _, count := range counts {
		dir := filepath.Join(baseDir, strconv.Itoa(count))
		start := time.Now()

		err := seedBoard(dir, count)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error seeding %d: %v\n", count, err)
			os.Exit(1)
		}

		fmt.Printf("Created %d items in %s -> %s\n", count, time.Since(start), dir)
	}
}

func seedBoard(dir string, count int) error {
	// Remove and recreate the board root with its column directories
	_ = os.RemoveAll(dir)

	for _, col := range columns {
		err := os.MkdirAll(filepath.Join(dir, col), 0o750)
		if err != nil {
			return fmt.Errorf("creating column directory: %w", err)
		}
	}

	// Use number of CPU cores for I/O parallelism
	numWorkers := runtime.NumCPU()
	itemsChan := make(chan int, numWorkers*2)

	var wg sync.WaitGroup

	// Start workers
	for range numWorkers {
		wg.Go(func() {
			for i := range itemsChan {
				writeItem(dir, i)
			}
		})
	}

	// Send work
	for i := 1; i <= count; i++ {
		itemsChan <- i
	}

	close(itemsChan)

	wg.Wait()

	return nil
}

func writeItem(dir string, i int) {
	id := fmt.Sprintf("item%06d", i)
	column := columns[i%len(columns)]
	path := filepath.Join(dir, column, id+".md")

	// Vary completion for realistic distribution
	completedLine := ""
	if i%5 == 0 {
		completedLine = "completed: true\n"
	}

	// Vary tags for realistic distribution
	tags := []string{"bug", "feature", "task", "chore"}
	tag := tags[i%len(tags)]

	content := fmt.Sprintf(`---
id: %s
title: Seed item %d
aliases: []
%sparent_id: null
tags: [seed, %s]
---

# Seed item %d

Description for item %d.
`, id, i, completedLine, tag, i, i)

	_ = os.WriteFile(path, []byte(content), 0o600)
}
