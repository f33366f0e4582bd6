package main

import "camextract/cmd"

func main() {
	cmd.Execute()
}
