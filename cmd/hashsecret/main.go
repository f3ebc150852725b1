package main // Entry point for the secret hashing tool

import (
	"fmt"
	"log"
	"os"

	"golang.org/x/crypto/bcrypt"

	"github.com/bannnned/sea-cinema-booking/internal/utils"
)

// hashsecret prints the bcrypt hash of a client secret.  Operators run
// it once per client to produce the FRONTEND_SECRET_HASH and
// OPERATOR_SECRET_HASH values the server expects in its environment.
func main() {
	if len(os.Args) != 2 {
		log.Fatalf("usage: %s <secret>", os.Args[0])
	}
	hash, err := utils.HashPassword(os.Args[1], bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("hash secret: %v", err)
	}
	fmt.Println(hash)
}
