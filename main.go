package main

import "github.com/ddlconv/ddlconv/cmd"

func main() {
	cmd.Execute()
}
