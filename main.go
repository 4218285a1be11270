package main

import "github.com/luchovc/agency-portal/cmd"

func main() {
	cmd.Execute()
}
