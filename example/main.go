package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	efaktur "github.com/efakturid/efaktur-validator-go"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run example/main.go <path-to-pdf-or-image>")
		os.Exit(1)
	}

	path := os.Args[1]
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("Failed to read file: %v", err)
	}

	mediaType := efaktur.DetectMediaType(path, "")
	if mediaType == "" {
		log.Fatalf("Unsupported file type: %s", path)
	}

	validator := efaktur.NewValidator(nil, nil)
	validator.SetDebug(true)

	outcome, err := validator.Validate(context.Background(), data, mediaType)
	if err != nil {
		log.Fatalf("Validation failed: %v", err)
	}

	jsonData, err := json.MarshalIndent(outcome, "", "  ")
	if err != nil {
		log.Fatalf("Failed to marshal JSON: %v", err)
	}
	fmt.Println(string(jsonData))

	if outcome.Results != nil && len(outcome.Results.Deviations) > 0 {
		fmt.Println("\n=== Deviations ===")
		for _, d := range outcome.Results.Deviations {
			fmt.Printf("  - %s [%s]: document=%q djp=%q\n",
				d.Field, d.Kind, d.PDFValue.Value(), d.DJPValue.Value())
		}
	}
}
