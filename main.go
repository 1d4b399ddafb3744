package main

import "linkup-backend/cmd"

func main() {
	cmd.Run()
}
