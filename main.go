// SPDX-License-Identifier: MPL-2.0

// deployctl builds, tests, and launches the web application together
// with its simulated hardware modules.
package main

import cmd "deployctl/cmd/deployctl"

func main() {
	cmd.Execute()
}
