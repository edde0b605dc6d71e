package main

import "github.com/StinkyLord/deploy-dll/cmd"

func main() {
	cmd.Execute()
}
