package main

import "order-insights/internal/cmd"

func main() {
	cmd.Execute()
}
