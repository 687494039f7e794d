// vibewatch scores a stream of vibration sensor chunks for anomalies and
// serves the results to downstream consumers.
package main

import "os"

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
