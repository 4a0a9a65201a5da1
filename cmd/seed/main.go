// Command seed creates the initial superAdmin account and the default
// departments. Running it again leaves existing rows untouched.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/mbwalabat/virtual-campus-tour-vcts/config"
	"github.com/mbwalabat/virtual-campus-tour-vcts/internal/model"
	"github.com/mbwalabat/virtual-campus-tour-vcts/internal/repository"
	"github.com/mbwalabat/virtual-campus-tour-vcts/pkg/database"
	applogger "github.com/mbwalabat/virtual-campus-tour-vcts/pkg/logger"
)

var defaultDepartments = []model.Department{
	{Name: "Computer Science", Description: "Department of Computer Science and Information Technology"},
	{Name: "Library", Description: "University Central Library"},
	{Name: "Administration", Description: "University Administration Office"},
	{Name: "Engineering", Description: "Faculty of Engineering"},
	{Name: "Business", Description: "School of Business Administration"},
}

func main() {
	configPath := flag.String("config", "", "path to config file")
	withDepartments := flag.Bool("departments", true, "also seed default departments")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("connect database", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("get sql.DB", zap.Error(err))
	}
	defer sqlDB.Close()

	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("run migrations", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	repo := repository.NewRepository(db)
	if err := seedSuperAdmin(ctx, repo, cfg, logger); err != nil {
		logger.Fatal("seed super admin", zap.Error(err))
	}
	if *withDepartments {
		if err := seedDepartments(ctx, repo, logger); err != nil {
			logger.Fatal("seed departments", zap.Error(err))
		}
	}
}

func seedSuperAdmin(ctx context.Context, repo *repository.Repository, cfg *config.Config, logger *zap.Logger) error {
	email := strings.ToLower(strings.TrimSpace(cfg.Seed.SuperAdminEmail))
	if email == "" || cfg.Seed.SuperAdminPassword == "" {
		return errors.New("seed.super_admin_email and seed.super_admin_password are required")
	}

	existing, err := repo.User.GetByEmail(ctx, email)
	switch {
	case err == nil:
		logger.Info("super admin already exists", zap.String("email", existing.Email), zap.String("role", existing.Role))
		return nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("look up %s: %w", email, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.Seed.SuperAdminPassword), cfg.Auth.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Name:              cfg.Seed.SuperAdminName,
		Email:             email,
		PasswordHash:      string(hash),
		Role:              model.RoleSuperAdmin,
		AssignedLocations: model.StringArray{},
		IsActive:          true,
	}
	if err := repo.User.Create(ctx, user); err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	logger.Info("super admin created", zap.String("id", user.UserID), zap.String("email", email))
	return nil
}

func seedDepartments(ctx context.Context, repo *repository.Repository, logger *zap.Logger) error {
	for _, d := range defaultDepartments {
		exists, err := repo.Department.ExistsByName(ctx, d.Name, "")
		if err != nil {
			return fmt.Errorf("check %s: %w", d.Name, err)
		}
		if exists {
			continue
		}
		dept := d
		dept.IsActive = true
		if err := repo.Department.Create(ctx, &dept); err != nil {
			return fmt.Errorf("create %s: %w", d.Name, err)
		}
		logger.Info("department created", zap.String("name", dept.Name))
	}
	return nil
}
