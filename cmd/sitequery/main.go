package main

import "github.com/sitequery/sitequery/cmd/sitequery/cmd"

func main() {
	cmd.Execute()
}
