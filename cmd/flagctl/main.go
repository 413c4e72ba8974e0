// Command flagctl runs maintenance tasks against the Vexillum database.
package main

import "vexillum/cmd/flagctl/commands"

func main() {
	commands.Execute()
}
