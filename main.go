package main

import "github.com/frahmantamala/farm-management/cmd"

func main() {
	cmd.Execute()
}
