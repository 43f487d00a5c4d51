package main

import (
	"context"
	"net/http"

	"neoshare/internal/config"
	"neoshare/internal/handlers"
	"neoshare/internal/middleware"
	"neoshare/internal/repo"
	"neoshare/internal/service"
	"neoshare/internal/storage"

	"go.uber.org/zap"
)

func main() {
	cfg := config.NewConfig()

	// создаём предустановленный регистратор zap
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}

	// делаем регистратор SugaredLogger
	sugar := logger.Sugar()
	middleware.SetLogger(sugar) // передаём логгер в middleware
	//сброс буфера логгера
	defer func() {
		if err := logger.Sync(); err != nil {
			sugar.Errorw("Failed to sync logger", "error", err)
		}
	}()

	ctx := context.Background()

	gormDB, err := repo.InitDB(cfg.DatabaseDSN)
	if err != nil {
		sugar.Fatalw("failed to initialize database", "error", err)
	}

	userRepo := repo.NewUserRepository(gormDB)
	fileRepo := repo.NewFileRepository(gormDB)

	tree := storage.NewDisk()
	paths := service.NewPathResolver(cfg.UploadDir)

	userService := service.NewUserService(userRepo, paths, tree, sugar)
	reconciler := service.NewReconciler(fileRepo, tree, paths, sugar)
	fileService := service.NewFileService(fileRepo, userRepo, tree, paths, reconciler, sugar)

	// администратор первого запуска
	if err := userService.EnsureAdmin(ctx, cfg.AdminPassword); err != nil {
		sugar.Fatalw("failed to ensure admin user", "error", err)
	}

	// корень хранилища должен существовать до первого запроса
	if err := tree.MkdirAll(cfg.UploadDir); err != nil {
		sugar.Fatalw("failed to create upload dir", "dir", cfg.UploadDir, "error", err)
	}

	h := handlers.NewHandler(userService, fileService, sugar, cfg)

	addr := cfg.BaseURL

	sugar.Infow(
		"Starting server",
		"addr", addr,
	)

	sugar.Infow("Config",
		"BaseURL", cfg.BaseURL,
		"EnableHTTPS", cfg.EnableHTTPS,
		"DatabaseDSN", cfg.DatabaseDSN,
		"UploadDir", cfg.UploadDir,
	)

	if err := http.ListenAndServe(addr, h.Router); err != nil {
		sugar.Fatalw("Server failed", "error", err)
	}
}
