package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/tourbooking/booking-backend/internal/utils"
)

func main() {
	var only string
	var export bool
	flag.StringVar(&only, "only", "", "Comma-separated env keys to generate (default: all)")
	flag.BoolVar(&export, "export", false, "Print shell export lines without comments")
	flag.Parse()

	var keys []string
	if only != "" {
		for _, k := range strings.Split(only, ",") {
			keys = append(keys, strings.TrimSpace(k))
		}
	}

	secrets, err := utils.GenerateServiceSecrets(keys...)
	if err != nil {
		log.Fatalf("Failed to generate secrets: %v", err)
	}

	if export {
		for _, s := range secrets {
			fmt.Printf("export %s=%s\n", s.EnvKey, s.Value)
		}
		return
	}

	// Comments go to stderr so stdout can be appended to .env directly
	fmt.Fprintln(os.Stderr, "# Tour booking backend secrets. Do not commit.")
	for _, s := range secrets {
		fmt.Printf("# %s\n%s=%s\n", s.Usage, s.EnvKey, s.Value)
	}
}
