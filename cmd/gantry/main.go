package main

import (
	// Registered storage backends.
	_ "github.com/gantrylabs/gantry/internal/storage/jsonfile"
	_ "github.com/gantrylabs/gantry/internal/storage/sqlite"
)

func main() {
	Execute()
}
