package main

import (
	"log"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/sekolahku/studentinfo/internal/config"
	"github.com/sekolahku/studentinfo/internal/handler"
	"github.com/sekolahku/studentinfo/internal/live"
	"github.com/sekolahku/studentinfo/internal/middleware"
	"github.com/sekolahku/studentinfo/internal/model"
	"github.com/sekolahku/studentinfo/internal/repository"
	"github.com/sekolahku/studentinfo/internal/service"
	"github.com/sekolahku/studentinfo/pkg/database"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db := database.Connect()
	if err := migrate(db); err != nil {
		log.Fatalf("migration failed: %v", err)
	}
	if err := seedRoles(db); err != nil {
		log.Fatalf("failed to seed roles: %v", err)
	}
	if cfg.AppEnv == "development" {
		if err := seedAdminUser(db); err != nil {
			log.Fatalf("failed to seed admin user: %v", err)
		}
	}

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("invalid REDIS_URL: %v", err)
		}
		rdb = redis.NewClient(opts)
	}

	hub := live.NewHub()

	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)

	authService := service.NewAuthService(userRepo, rdb, cfg)
	authHandler := handler.NewAuthHandler(authService)

	studentService := service.NewStudentService(studentRepo, userRepo, hub)
	studentHandler := handler.NewStudentHandler(studentService)

	liveHandler := handler.NewLiveHandler(hub)
	healthHandler := handler.NewHealthHandler(db, rdb)

	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Split(cfg.AllowedOrigins, ","),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	router.GET("/healthz", healthHandler.Check)

	authMiddleware := middleware.NewAuthMiddleware(userRepo, cfg.JWTSecret)

	api := router.Group("/api")
	{
		auth := api.Group("/auth")
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
	}

	api.Use(authMiddleware.RequireAuth())
	{
		api.GET("/auth/me", authHandler.Me)
		api.PUT("/auth/profile", authHandler.UpdateProfile)

		staff := authMiddleware.RequireRoles(model.RoleKindAdmin, model.RoleKindTeacher)

		students := api.Group("/students")
		{
			students.POST("", staff, studentHandler.Create)
			students.GET("", staff, studentHandler.List)
			students.GET("/:id", studentHandler.Get)
			students.PUT("/:id", staff, studentHandler.Update)
			students.DELETE("/:id", authMiddleware.RequireRoles(model.RoleKindAdmin), studentHandler.Delete)

			students.POST("/:id/attendance", staff, studentHandler.MarkAttendance)
			students.GET("/:id/attendance", studentHandler.ListAttendance)
			students.POST("/class/:class/section/:section/attendance", staff, studentHandler.BatchMarkAttendance)
		}

		api.GET("/live/attendance", staff, liveHandler.AttendanceFeed)
	}

	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server exited with error: %v", err)
	}
}

func migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.Role{},
		&model.User{},
		&model.Student{},
		&model.AttendanceRecord{},
	)
}

func seedRoles(db *gorm.DB) error {
	defaultRoles := []model.Role{
		{Name: model.RoleAdmin, Description: "School administrator"},
		{Name: model.RoleTeacher, Description: "Teacher"},
		{Name: model.RoleStudent, Description: "Student"},
	}

	for _, role := range defaultRoles {
		var count int64
		if err := db.Model(&model.Role{}).
			Where("name = ?", role.Name).
			Count(&count).Error; err != nil {
			return err
		}

		if count == 0 {
			if err := db.Create(&role).Error; err != nil {
				return err
			}
		}
	}

	return nil
}

func seedAdminUser(db *gorm.DB) error {
	var adminRole model.Role
	if err := db.Where("name = ?", model.RoleAdmin).First(&adminRole).Error; err != nil {
		return err
	}

	var count int64
	if err := db.Model(&model.User{}).
		Where("email = ?", "admin@school.local").
		Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		log.Println("Admin user already exists, skipping seed")
		return nil
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	adminUser := model.User{
		Username:     "admin",
		Email:        "admin@school.local",
		PasswordHash: string(hashed),
		RoleID:       &adminRole.ID,
		IsActive:     true,
	}

	if err := db.Create(&adminUser).Error; err != nil {
		return err
	}

	log.Println("Admin user seeded (admin@school.local / admin123)")

	return nil
}
