package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/joho/godotenv"

	"github.com/oksasatya/go-book-tracker/config"
	"github.com/oksasatya/go-book-tracker/internal/domain/entity"
	pginfra "github.com/oksasatya/go-book-tracker/internal/infrastructure/postgres"
	"github.com/oksasatya/go-book-tracker/pkg/helpers"
	"github.com/oksasatya/go-book-tracker/pkg/imageproc"
)

const (
	adminUsername  = "admin"
	adminPassword  = "admin_password"
	commonPassword = "password"
	maxUsername    = 20
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx := context.Background()

	seedCfg := config.LoadSeed()
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env, cfg.LogLevel)

	if err := pginfra.Migrate(cfg.PostgresDSN(), logger); err != nil {
		logger.Fatalf("migration failed: %v", err)
	}
	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), pginfra.PoolOptions{
		AppName:     cfg.AppName + "-seed",
		MaxConns:    cfg.DBMaxConns,
		MinConns:    cfg.DBMinConns,
		MaxConnLife: cfg.DBMaxConnLife,
	})
	if err != nil {
		logger.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	var populated bool
	if err := pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users)`).Scan(&populated); err != nil {
		logger.Fatalf("failed to inspect users: %v", err)
	}
	if populated {
		if !seedCfg.Force && !cfg.IsDevelopment() {
			fmt.Println("database already contains data; set SEED_FORCE=true to wipe and re-seed")
			return
		}
		if _, err := pool.Exec(ctx, `TRUNCATE books, users`); err != nil {
			logger.Fatalf("failed to wipe tables: %v", err)
		}
		fmt.Println("existing users and books removed")
	}

	users := pginfra.NewUserRepository(pool)
	books := pginfra.NewBookRepository(pool)
	faker := gofakeit.New(seedCfg.RandomSeed)

	adminHash, err := helpers.HashPassword(adminPassword)
	if err != nil {
		logger.Fatalf("failed to hash password: %v", err)
	}
	commonHash, err := helpers.HashPassword(commonPassword)
	if err != nil {
		logger.Fatalf("failed to hash password: %v", err)
	}

	admin := &entity.User{Username: adminUsername, Email: seedCfg.AdminEmail, PasswordHash: adminHash, Confirmed: true}
	if err := users.Create(ctx, admin); err != nil {
		logger.Fatalf("failed to seed admin: %v", err)
	}
	fmt.Printf("seeded admin: username=%s email=%s password=%s\n", adminUsername, admin.Email, adminPassword)

	seeded := []*entity.User{admin}
	taken := map[string]bool{adminUsername: true}
	for len(seeded) < seedCfg.Users+1 {
		name := strings.ToLower(faker.Username())
		if len(name) > maxUsername {
			name = name[:maxUsername]
		}
		if taken[name] {
			continue
		}
		taken[name] = true
		u := &entity.User{Username: name, Email: name + "@example.com", PasswordHash: commonHash, Confirmed: true}
		if err := users.Create(ctx, u); err != nil {
			logger.Fatalf("failed to seed user %s: %v", name, err)
		}
		seeded = append(seeded, u)
	}
	fmt.Printf("seeded %d users with password=%s\n", len(seeded)-1, commonPassword)

	total := 0
	for _, u := range seeded {
		for i := 0; i < seedCfg.BooksPerUser; i++ {
			b := &entity.Book{
				UserID:    u.ID,
				Title:     clip(faker.BookTitle(), 150),
				Author:    clip(faker.BookAuthor(), 100),
				Genre:     clip(faker.BookGenre(), 50),
				Status:    entity.Statuses[faker.Number(0, len(entity.Statuses)-1)],
				ImageFile: imageproc.DefaultImage,
			}
			if err := books.Create(ctx, b); err != nil {
				logger.Fatalf("failed to seed book for %s: %v", u.Username, err)
			}
			total++
		}
	}
	fmt.Printf("seeded %d books\n", total)
}

func clip(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
