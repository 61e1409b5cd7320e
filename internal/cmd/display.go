package cmd

import (
	"fmt"

	"github.com/ntnkb/ntnkb/internal/schema"
	"github.com/ntnkb/ntnkb/internal/sync"
)

// displaySyncReport displays the results of a sync run.
//
//nolint:forbidigo // CLI user output function
func displaySyncReport(report *sync.Report) {
	fmt.Printf("\nSync Results:\n")
	fmt.Printf("  Pages processed: %d\n", report.Total)
	fmt.Printf("  Created: %d\n", report.Created)
	fmt.Printf("  Updated: %d\n", report.Updated)
	fmt.Printf("  Failed: %d\n", report.Failed)

	if report.Failed == 0 {
		return
	}

	fmt.Println("\nFailures:")
	for _, result := range report.Results {
		if result.Success {
			continue
		}
		fmt.Printf("  - %s (%s): %s\n", result.Title, result.PageID, result.Error)
	}
}

// displayVerifyResult displays the outcome of database verification or
// provisioning.
//
//nolint:forbidigo // CLI user output function
func displayVerifyResult(result *schema.VerifyResult) {
	if result.Success {
		fmt.Printf("Database OK (id: %s)\n", result.DatabaseID)
		return
	}
	fmt.Printf("Database check failed: %s\n", result.Error)
}
