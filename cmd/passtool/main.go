// passtool hashes the shared admin password for the -admin-password-hash
// flag of the shiftcal server.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"log"
	"os"
	"syscall"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"
)

func do() error {
	fmt.Print("Admin password: ")
	pass, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return fmt.Errorf("while reading password: %w", err)
	}

	fmt.Print("Again: ")
	again, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return fmt.Errorf("while reading password confirmation: %w", err)
	}

	if !bytes.Equal(pass, again) {
		return fmt.Errorf("passwords did not match")
	}

	hash, err := bcrypt.GenerateFromPassword(pass, 0)
	if err != nil {
		return fmt.Errorf("while hashing password: %w", err)
	}

	fmt.Println(string(hash))
	return nil
}

func main() {
	flag.Parse()

	if err := do(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}
