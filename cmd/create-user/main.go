package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"messaging/backend/internal/config"
	"messaging/backend/internal/logger"
	"messaging/backend/internal/service"
	"messaging/backend/internal/storage/hybrid"
)

func main() {
	email := flag.String("email", "", "用户邮箱")
	name := flag.String("name", "", "显示名称")
	flag.Parse()

	if *email == "" || *name == "" {
		fmt.Println("Usage: create-user -email=<email> -name=<name>")
		fmt.Println("需要配置 MESSAGING_DATABASE_TYPE 与 MESSAGING_DATABASE_DSN")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if !cfg.UsesDatabase() {
		fmt.Println("内存存储不会保留数据，请配置数据库后再创建用户")
		os.Exit(1)
	}

	log := logger.NewDevelopmentLogger()
	defer func() { _ = log.Sync() }()

	store, err := hybrid.Open(context.Background(), cfg, log)
	if err != nil {
		fmt.Printf("Failed to open storage: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	user, err := service.NewUserService(store, log).Create(ctx, service.CreateUserInput{
		Email: *email,
		Name:  *name,
	})
	if err != nil {
		fmt.Printf("Failed to create user: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✓ User created successfully!\n")
	fmt.Printf("  ID:    %s\n", user.ID)
	fmt.Printf("  Email: %s\n", user.Email)
	fmt.Printf("  Name:  %s\n", user.Name)
}
