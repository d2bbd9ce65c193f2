// Package core provides a small, stable facade over foxter's internal scan
// engine for external integrations, so other programs can depend on one
// import path without reaching into internal packages.
//
// Example:
//
//	results, stats, err := core.Scan(ctx, "/home/me/Downloads", core.Config{})
//	if err != nil { /* handle */ }
//	fmt.Println(stats.Suspicious, "suspicious")
//	_ = core.MarshalResults(os.Stdout, results)
package core
