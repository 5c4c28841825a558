package main

import (
	"fmt"
	"runtime"
	"sort"
)

const Version = "0.4.0"

// compiledFeatures tracks build-time feature flags via init() registration.
var compiledFeatures []string

func printFeatures() {
	fmt.Printf("Intuition GPU %s\n", Version)
	fmt.Printf("  Go version: %s\n", runtime.Version())
	fmt.Printf("  OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Println()
	fmt.Println("Compiled features:")

	features := append([]string(nil), compiledFeatures...)
	sort.Strings(features)
	for _, f := range features {
		fmt.Printf("  %s\n", f)
	}
	if len(features) == 0 {
		fmt.Println("  (none)")
	}
}
