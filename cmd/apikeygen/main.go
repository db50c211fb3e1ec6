// Command apikeygen issues an API key for a tenant and prints the argon2id
// hash to store on the tenant row. The key itself is shown once.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/tavolo/reservations/pkg/auth"
)

func main() {
	tenantID := flag.Int64("tenant", 0, "tenant id the key is issued for")
	flag.Parse()

	if *tenantID <= 0 {
		fmt.Fprintln(os.Stderr, "usage: apikeygen -tenant <id>")
		os.Exit(2)
	}

	key, hash, err := auth.NewAPIKey(*tenantID)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to issue key:", err)
		os.Exit(1)
	}

	fmt.Println("api key (show once, not stored):", key)
	fmt.Println()
	fmt.Println("store on the tenant row:")
	fmt.Printf("  UPDATE tenants SET api_key_hash = '%s' WHERE id = %d;\n", hash, *tenantID)
}
