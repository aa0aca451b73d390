package jobclient

import "os"

// ShowHelp prints usage information for the submit-job tool.
func ShowHelp() {
	_, _ = os.Stdout.WriteString(`simuq job submitter
===================

Submits job request files to a running service and waits for their results.

Usage:
  go run ./cmd/submit-job [options] request.json [request.json ...]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -workers int
        Number of concurrent submissions (default 4)
  -timeout duration
        HTTP request timeout (default 30s)
  -poll duration
        Delay between lookups of one job (default 500ms)
  -wait duration
        How long to wait for each job's record (default 5m)
  -out string
        Directory to save fetched records as <jobId>.json
  -verbose
        Log every finished job
  -help
        Show this help message

Example request:
  {
    "model": "cornstover",
    "simulationKind": "uncertainty",
    "samples": 100,
    "params": [
      {"name": "Cornstover price", "distribution": "triangular",
       "values": {"lower": 0.04, "midpoint": 0.05, "upper": 0.06}}
    ]
  }
`)
}
