// Package main is the entry point for gcsmock-state, a development tool for
// inspecting and seeding gcsmock snapshot files.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/gcsmock/gcsmock"
	"github.com/gcsmock/gcsmock/internal/logging"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: gcsmock-state <list|cat|seed> [flags]")
		os.Exit(1)
	}

	logging.Setup(os.Getenv("GCSMOCK_LOG_LEVEL"), os.Getenv("GCSMOCK_LOG_FORMAT"), os.Stderr)

	command := os.Args[1]

	switch command {
	case "list":
		os.Exit(runList(os.Args[2:]))
	case "cat":
		os.Exit(runCat(os.Args[2:]))
	case "seed":
		os.Exit(runSeed(os.Args[2:]))
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\nUsage: gcsmock-state <list|cat|seed> [flags]\n", command)
		os.Exit(1)
	}
}

// openSnapshot loads the snapshot at path into a fresh Storage.
func openSnapshot(path string) (*gcsmock.Storage, error) {
	if path == "" {
		return nil, fmt.Errorf("missing required -snapshot flag")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("snapshot file: %w", err)
	}
	s, err := gcsmock.New()
	if err != nil {
		return nil, err
	}
	if err := s.LoadSnapshot(path); err != nil {
		return nil, err
	}
	return s, nil
}

func runList(args []string) int {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	snapshotPath := fs.String("snapshot", "", "Snapshot file path")
	fs.Parse(args)

	s, err := openSnapshot(*snapshotPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	for _, bucketName := range s.BucketNames() {
		bucket := s.Bucket(bucketName)
		fmt.Println(bucket.URI())
		for _, obj := range bucket.Objects("") {
			fmt.Printf("  %s\t%d\t%s\n", obj.URI(), obj.Size(), obj.ETag())
		}
	}
	return 0
}

// splitURI parses a gs://bucket/object URI.
func splitURI(uri string) (bucket, object string, err error) {
	rest, ok := strings.CutPrefix(uri, "gs://")
	if !ok {
		return "", "", fmt.Errorf("URI must start with gs://: %q", uri)
	}
	bucket, object, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || object == "" {
		return "", "", fmt.Errorf("URI must have the form gs://bucket/object: %q", uri)
	}
	return bucket, object, nil
}

func runCat(args []string) int {
	fs := flag.NewFlagSet("cat", flag.ExitOnError)
	snapshotPath := fs.String("snapshot", "", "Snapshot file path")
	uri := fs.String("uri", "", "Object URI (gs://bucket/object)")
	fs.Parse(args)

	bucket, object, err := splitURI(*uri)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	s, err := openSnapshot(*snapshotPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	data, err := s.Bucket(bucket).Object(object).Download(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	os.Stdout.Write(data)
	return 0
}

func runSeed(args []string) int {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	fixturePath := fs.String("fixture", "", "YAML fixture file path")
	snapshotPath := fs.String("snapshot", "", "Snapshot file path to write")
	fs.Parse(args)

	if *fixturePath == "" || *snapshotPath == "" {
		fmt.Fprintln(os.Stderr, "Error: -fixture and -snapshot are required")
		return 1
	}

	s, err := gcsmock.New(gcsmock.WithFixtureFile(*fixturePath))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if err := s.WriteSnapshot(*snapshotPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	fmt.Printf("Wrote snapshot %s from fixture %s\n", *snapshotPath, *fixturePath)
	return 0
}
