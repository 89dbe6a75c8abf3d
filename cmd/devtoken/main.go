// Command devtoken mints a bearer token for local testing of the API. Tokens
// are normally issued by the login service.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ariefcatur/go-poster-orders/internal/auth"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	id := flag.Int64("id", 0, "user id")
	username := flag.String("username", "", "username")
	email := flag.String("email", "", "email")
	role := flag.String("role", "user", "role (user|admin)")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime, 0 for none")
	flag.Parse()

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("JWT_SECRET is required")
	}
	if *id <= 0 {
		log.Fatal("-id is required")
	}

	token, err := auth.NewVerifier(secret).Sign(auth.Identity{
		UserID:   *id,
		Username: *username,
		Email:    *email,
		Role:     *role,
	}, *ttl)
	if err != nil {
		log.Fatalf("sign: %v", err)
	}
	fmt.Println(token)
}
