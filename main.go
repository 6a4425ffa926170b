package main

import "github.com/gleber/rebar3-nix-bootstrap/cmd"

func main() {
	cmd.Execute()
}
