// The main package for the newsfeed-curator executable.
package main

import "github.com/JakeFAU/newsfeed-curator/cmd"

func main() {
	cmd.Execute()
}
