package main

import "github.com/causewayprotocol/causeway/cmd"

// main runs causewayd and is compiled into the causewayd binary
func main() {
	cmd.Execute()
}
