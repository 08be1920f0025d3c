package main

import "github.com/wundergraph/graphql-compiler/cmd"

func main() {
	cmd.Execute()
}
