// Command createadmin bootstraps an ADMIN account.  Registration over the API
// only ever creates CUSTOMER users, so the first admin has to come from here.
//
//	go run ./cmd/createadmin -email ops@example.com -password 'secret' -name 'Ops Admin'
//
// An existing account with the given email is promoted instead of recreated.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"log"
	"time"

	"github.com/joho/godotenv"

	"github.com/iliyamo/bus-ticket-reservation/internal/config"
	"github.com/iliyamo/bus-ticket-reservation/internal/database"
	"github.com/iliyamo/bus-ticket-reservation/internal/model"
	"github.com/iliyamo/bus-ticket-reservation/internal/repository"
)

func main() {
	email := flag.String("email", "", "admin email (required)")
	password := flag.String("password", "", "admin password (required for new accounts)")
	name := flag.String("name", "Administrator", "full name")
	flag.Parse()

	if *email == "" {
		log.Fatal("createadmin: -email is required")
	}

	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	users := repository.NewUserRepo(db)

	// Promote when the account already exists, create otherwise.
	if u, err := users.GetByEmail(ctx, *email); err == nil {
		if u.Role == model.RoleAdmin {
			log.Printf("%s is already an admin", u.Email)
			return
		}
		if err := users.UpdateRole(ctx, *email, model.RoleAdmin); err != nil {
			log.Fatalf("promote: %v", err)
		}
		log.Printf("promoted %s to admin", u.Email)
		return
	} else if !errors.Is(err, sql.ErrNoRows) {
		log.Fatalf("lookup: %v", err)
	}

	if *password == "" {
		log.Fatal("createadmin: -password is required when creating a new account")
	}

	id, err := users.Create(ctx, *email, *password, *name, "", model.RoleAdmin, cfg.BcryptCost)
	if err != nil {
		log.Fatalf("create: %v", err)
	}
	log.Printf("created admin %s (id=%d)", *email, id)
}
