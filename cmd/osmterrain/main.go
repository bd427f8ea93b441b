package main

import "github.com/MeKo-Tech/osmterrain/internal/cmd"

func main() {
	cmd.Execute()
}
