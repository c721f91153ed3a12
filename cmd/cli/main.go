// authburst - Brute-Force Login Incident Detector
//
// authburst reads sshd auth logs, clusters failed password attempts per
// source address, and reports bursts that cross a configured threshold.
package main

import (
	"os"

	"github.com/ccollicutt/authburst/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
