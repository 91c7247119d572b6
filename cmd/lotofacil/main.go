// Package main is the entry point for the Lotofácil draw tool.
//
// A run optionally fetches the latest results, reconciles them into the
// configured store, and then prints either generated predictions or the
// per-number occurrence report. "serve" keeps the process alive with an HTTP
// API and a scheduled ingest.
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
