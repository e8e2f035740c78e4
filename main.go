// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/invowk/appmodel/cmd/appmodel"

func main() {
	cmd.Execute()
}
