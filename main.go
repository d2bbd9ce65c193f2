package main

import "github.com/foxter/foxter/cmd/foxter"

func main() {
	foxter.Execute()
}
