// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/orbpkg/orb/cmd/orb"

func main() {
	cmd.Execute()
}
