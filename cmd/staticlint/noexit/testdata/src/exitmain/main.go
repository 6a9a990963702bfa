package main

import (
	"log"
	"os"
)

func helper() {
	os.Exit(2)
}

func main() {
	logger := log.New(os.Stderr, "", 0)
	logger.Fatal("method is allowed")

	log.Fatalf("boom %d", 1) // want `вызов log.Fatalf в функции main запрещён`
	os.Exit(1)               // want `вызов os.Exit в функции main запрещён`
	helper()

	stop := func() { os.Exit(3) }
	stop()
}
