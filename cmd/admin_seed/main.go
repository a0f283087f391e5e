package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log"
	"os"

	"geopickup/internal/config"
	domainerrors "geopickup/internal/errors"
	"geopickup/internal/models"
	"geopickup/internal/repositories"
	"geopickup/internal/services/auth"
	"geopickup/internal/validation"

	"github.com/google/uuid"
)

// seedUser is one account in the seed file. Password is plain text and is
// hashed before insert.
type seedUser struct {
	models.User
	Password string `json:"password"`
}

func main() {
	reset := flag.Bool("reset", false, "drop and recreate every table before seeding")
	file := flag.String("file", "", "JSON array of users to seed (parents, staff, admins)")
	flag.Parse()

	config.LoadEnv()
	cfg := config.Load()

	db, err := repositories.OpenPostgres(cfg)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() {
		sqlDB, err := db.DB()
		if err != nil {
			log.Printf("⚠️ Failed to get SQL DB instance: %v", err)
			return
		}
		if err := sqlDB.Close(); err != nil {
			log.Printf("⚠️ Failed to close PostgreSQL connection: %v", err)
		}
	}()

	if *reset {
		if err := repositories.ResetDatabase(db); err != nil {
			log.Fatalf("Failed to reset database: %v", err)
		}
		log.Println("✅ Database reset")
	}

	accounts, err := loadAccounts(*file)
	if err != nil {
		log.Fatal(err)
	}

	users := repositories.NewUserRepository(db)
	ctx := context.Background()
	created := 0
	for _, a := range accounts {
		if _, err := users.GetByEmail(ctx, a.Email); err == nil {
			log.Printf("User %s already exists", a.Email)
			continue
		} else if !errors.Is(err, domainerrors.ErrUserNotFound) {
			log.Fatalf("Failed to look up %s: %v", a.Email, err)
		}

		if err := validation.CheckPassword(a.Password); err != nil {
			log.Fatalf("Password for %s rejected: %v", a.Email, err)
		}
		hashed, err := auth.HashPassword(a.Password)
		if err != nil {
			log.Fatal("Failed to hash password:", err)
		}

		u := a.User
		u.Password = hashed
		if u.ID == "" {
			u.ID = uuid.NewString()
		}
		if u.Role == "" {
			u.Role = models.RoleParent
		}
		u.TokenVersion = 1
		for i := range u.Students {
			if u.Students[i].ID == "" {
				u.Students[i].ID = uuid.NewString()
			}
		}
		if err := users.Create(ctx, &u); err != nil {
			log.Fatalf("Failed to create %s: %v", u.Email, err)
		}
		created++
		log.Printf("Created %s %s with %d students", u.Role, u.Email, len(u.Students))
	}

	log.Printf("✅ Seeded %d accounts", created)
}

// loadAccounts reads the seed file, or builds a single admin from
// ADMIN_EMAIL / ADMIN_PASSWORD when no file is given.
func loadAccounts(path string) ([]seedUser, error) {
	if path == "" {
		email := os.Getenv("ADMIN_EMAIL")
		password := os.Getenv("ADMIN_PASSWORD")
		if email == "" || password == "" {
			return nil, errors.New("ADMIN_EMAIL and ADMIN_PASSWORD must be set when no -file is given")
		}
		name := os.Getenv("ADMIN_NAME")
		if name == "" {
			name = "Administrator"
		}
		return []seedUser{{
			User:     models.User{Email: email, Name: name, Phone: os.Getenv("ADMIN_PHONE"), Role: models.RoleAdmin},
			Password: password,
		}}, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var accounts []seedUser
	if err := json.Unmarshal(raw, &accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}
