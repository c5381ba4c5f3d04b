package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"admin-history/internal/config"
	"admin-history/internal/modelmeta"
	"admin-history/internal/models"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

// Registered lists the models managed through the admin. Each gets a content type and
// add/change/delete/view permissions.
var Registered = []modelmeta.AppLabeler{
	&models.Publisher{},
	&models.Tag{},
	&models.Book{},
	&models.Edition{},
	&models.User{},
	&models.Group{},
}

var permissionActions = []string{"add", "change", "delete", "view"}

func Init(cfg *config.Config) {
	var err error

	const maxAttempts = 10
	for i := 1; i <= maxAttempts; i++ {
		zap.L().Info("connecting to database", zap.Int("attempt", i), zap.Int("max_attempts", maxAttempts))

		DB, err = gorm.Open(postgres.Open(cfg.DBDSN), &gorm.Config{})
		if err == nil {
			zap.L().Info("connected to database")
			break
		}

		zap.L().Warn("failed to connect to database", zap.Error(err))
		time.Sleep(2 * time.Second)
	}

	if err != nil {
		zap.L().Fatal("database unavailable", zap.Int("attempts", maxAttempts), zap.Error(err))
	}

	// migrations
	err = DB.AutoMigrate(
		&models.ContentType{},
		&models.Permission{},
		&models.Group{},
		&models.User{},
		&models.LogEntry{},
		&models.Publisher{},
		&models.Tag{},
		&models.Book{},
		&models.Edition{},
	)
	if err != nil {
		zap.L().Fatal("failed to migrate", zap.Error(err))
	}

	ctx := context.Background()
	if err := seedPermissions(ctx, DB); err != nil {
		zap.L().Fatal("failed to seed permissions", zap.Error(err))
	}
	createDefaultAdmin(ctx, cfg.AdminUsername, cfg.AdminPassword)
	seedEditors(ctx)
}

// ContentTypeFor returns the content type of obj, creating it on first use.
func ContentTypeFor(ctx context.Context, db *gorm.DB, obj any) (*models.ContentType, error) {
	model, err := modelmeta.ModelName(obj)
	if err != nil {
		return nil, err
	}
	ct := models.ContentType{AppLabel: modelmeta.AppLabel(obj), Model: model}
	if err := db.WithContext(ctx).
		Where(&models.ContentType{AppLabel: ct.AppLabel, Model: ct.Model}).
		FirstOrCreate(&ct).Error; err != nil {
		return nil, fmt.Errorf("content type %s.%s: %w", ct.AppLabel, ct.Model, err)
	}
	return &ct, nil
}

func seedPermissions(ctx context.Context, db *gorm.DB) error {
	for _, obj := range Registered {
		ct, err := ContentTypeFor(ctx, db, obj)
		if err != nil {
			return err
		}
		for _, action := range permissionActions {
			perm := models.Permission{
				Codename:      action + "_" + ct.Model,
				ContentTypeID: ct.ID,
				Name:          "Can " + action + " " + ct.Model,
			}
			if err := db.WithContext(ctx).
				Where(&models.Permission{Codename: perm.Codename, ContentTypeID: ct.ID}).
				FirstOrCreate(&perm).Error; err != nil {
				return fmt.Errorf("permission %s: %w", perm.Codename, err)
			}
		}
	}
	return nil
}

// superuser only from config
func createDefaultAdmin(ctx context.Context, username, password string) {
	var count int64
	if err := DB.WithContext(ctx).Model(&models.User{}).
		Where("is_superuser = ?", true).
		Count(&count).Error; err != nil {
		zap.L().Error("failed to check superuser", zap.Error(err))
		return
	}
	if count > 0 {
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		zap.L().Error("failed to hash default admin password", zap.Error(err))
		return
	}

	admin := models.User{
		Username:     username,
		PasswordHash: string(hash),
		IsStaff:      true,
		IsSuperuser:  true,
	}
	if err := DB.WithContext(ctx).Create(&admin).Error; err != nil {
		zap.L().Error("failed to create default admin", zap.Error(err))
		return
	}

	zap.L().Info("created default superuser", zap.String("username", username))
}

// editors group with catalog permissions only, plus one demo member
func seedEditors(ctx context.Context) {
	group := models.Group{Name: "editors"}
	if err := DB.WithContext(ctx).Where(&models.Group{Name: group.Name}).FirstOrCreate(&group).Error; err != nil {
		zap.L().Error("failed to seed editors group", zap.Error(err))
		return
	}

	var perms []models.Permission
	if err := DB.WithContext(ctx).
		Joins("ContentType").
		Where(`"ContentType"."app_label" = ?`, "catalog").
		Find(&perms).Error; err != nil {
		zap.L().Error("failed to load catalog permissions", zap.Error(err))
		return
	}
	if err := DB.WithContext(ctx).Model(&group).Association("Permissions").Replace(perms); err != nil {
		zap.L().Error("failed to grant editors permissions", zap.Error(err))
		return
	}

	const username, password = "editor", "Editor123!"
	var user models.User
	err := DB.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err == nil {
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		zap.L().Error("failed to check seed user", zap.String("username", username), zap.Error(err))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		zap.L().Error("failed to hash seed password", zap.Error(err))
		return
	}
	user = models.User{
		Username:     username,
		PasswordHash: string(hash),
		IsStaff:      true,
		Groups:       []models.Group{group},
	}
	if err := DB.WithContext(ctx).Create(&user).Error; err != nil {
		zap.L().Error("failed to create seed user", zap.String("username", username), zap.Error(err))
		return
	}

	zap.L().Info("created seed user", zap.String("username", username), zap.String("group", group.Name))
}
