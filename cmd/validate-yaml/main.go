package main

import (
	"fmt"
	"os"

	"github.com/blockedby/kandra/internal/config"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("usage: validate-yaml overlay.yaml [more.yaml ...]")
		os.Exit(0)
	}

	failed := false
	for _, path := range os.Args[1:] {
		o, err := config.ReadOverlay(path)
		if err != nil {
			fmt.Printf("❌ %s: %v\n", path, err)
			failed = true
			continue
		}

		// the merged result must still satisfy the runtime invariants
		cfg := &config.Config{
			APIBaseURL:      "http://localhost",
			RequestTimeout:  1,
			PageSize:        12,
			SalaryDomainMin: 10,
			SalaryDomainMax: 100,
			SessionStore:    "memory",
		}
		cfg.ApplyOverlay(o)
		if err := cfg.Validate(); err != nil {
			fmt.Printf("❌ %s: %v\n", path, err)
			failed = true
			continue
		}
		fmt.Printf("✅ %s is valid\n", path)
	}

	if failed {
		os.Exit(1)
	}
}
