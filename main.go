package main

import "gbv_reporter/cmd"

func main() {
	cmd.Execute()
}
