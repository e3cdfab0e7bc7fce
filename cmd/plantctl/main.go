package main

import (
	"os"

	"github.com/talkincode/plantcatalog/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
