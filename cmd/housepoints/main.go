// Command housepoints is the command-line front end of the House Points Hub.
package main

import "github.com/housepoints/house-points-hub/cmd/housepoints/commands"

func main() {
	commands.Execute()
}
