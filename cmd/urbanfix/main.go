package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/ManuelReschke/UrbanFix/app/controllers"
	"github.com/ManuelReschke/UrbanFix/app/repository"
	apiv1 "github.com/ManuelReschke/UrbanFix/internal/api/v1"
	"github.com/ManuelReschke/UrbanFix/internal/pkg/account"
	"github.com/ManuelReschke/UrbanFix/internal/pkg/assignment"
	"github.com/ManuelReschke/UrbanFix/internal/pkg/authz"
	"github.com/ManuelReschke/UrbanFix/internal/pkg/cache"
	"github.com/ManuelReschke/UrbanFix/internal/pkg/complaint"
	"github.com/ManuelReschke/UrbanFix/internal/pkg/contractor"
	"github.com/ManuelReschke/UrbanFix/internal/pkg/database"
	"github.com/ManuelReschke/UrbanFix/internal/pkg/env"
	"github.com/ManuelReschke/UrbanFix/internal/pkg/hcaptcha"
	"github.com/ManuelReschke/UrbanFix/internal/pkg/jobqueue"
	"github.com/ManuelReschke/UrbanFix/internal/pkg/mail"
	"github.com/ManuelReschke/UrbanFix/internal/pkg/middleware"
	"github.com/ManuelReschke/UrbanFix/internal/pkg/photostore"
	"github.com/ManuelReschke/UrbanFix/internal/pkg/router"
	"github.com/ManuelReschke/UrbanFix/internal/pkg/session"
	"github.com/ManuelReschke/UrbanFix/internal/pkg/statistics"
)

func main() {
	app, manager := NewApplication()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Println("Shutting down...")
		manager.Stop()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Shutdown error: %v", err)
		}
	}()

	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	if err != nil {
		log.Fatal(err)
	}
}

func NewApplication() (*fiber.App, *jobqueue.Manager) {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()
	session.NewSessionStore()

	basePath := findBasePath()

	photoCfg, err := photostore.LoadConfig()
	if err != nil {
		log.Fatalf("Could not load photo store config: %v", err)
	}
	photos, err := photostore.Open(context.Background(), photoCfg)
	if err != nil {
		log.Fatalf("Could not open photo store: %v", err)
	}

	// init fiber app
	app := fiber.New(fiber.Config{
		BodyLimit: int(photoCfg.MaxSize) + 1<<20, // photo plus form fields
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// fiber metrics
	app.Get("/metrics", basicauth.New(basicauth.Config{
		Users: map[string]string{
			env.GetEnv("METRICS_USER", "admin"): env.GetEnv("METRICS_PASSWORD", "change-me"),
		},
	}), monitor.New())

	// static uploads, only used by the local photo backend
	if !photoCfg.S3Enabled {
		app.Static(photoCfg.PublicBaseURL, photoCfg.UploadDir, fiber.Static{
			CacheDuration: 10 * time.Second,
			MaxAge:        604800, // 7 days
		})
	}

	// SWAGGER / OPENAPI
	specFile := basePath + "public/docs/v1/openapi.yml"
	if _, err := apiv1.LoadSpec(context.Background(), specFile); err != nil {
		log.Printf("OpenAPI document is invalid: %v", err)
	}
	app.Use(swagger.New(swagger.Config{
		BasePath: "/docs/api/",
		FilePath: specFile,
		Path:     "v1",
	}))

	// SERVICES
	repository.InitializeFactory(database.GetDB())
	repos := repository.GetGlobalRepositories()

	coordinator := assignment.NewCoordinator(assignment.Policy{
		RequireActiveContractor: env.GetEnvBool("ASSIGNMENT_REQUIRE_ACTIVE_CONTRACTOR", false),
	})
	complaints := complaint.NewService(repos, repos, coordinator, complaint.Policy{
		RequireCoordinates:          env.GetEnvBool("COMPLAINT_REQUIRE_COORDINATES", true),
		StrictContractorTransitions: env.GetEnvBool("CONTRACTOR_STRICT_TRANSITIONS", false),
	}).WithPhotoRemover(photos)
	contractors := contractor.NewService(repos, repos, coordinator)
	accounts := account.NewService(repos, contractors)
	stats := statistics.NewService(repos, cache.NewStore(cache.GetClient()))

	// EVENTS
	manager := jobqueue.GetManager()
	var mailer mail.Mailer
	if mail.Enabled() {
		mailer = mail.SMTPMailer{}
	}
	jobqueue.NewEventProcessor(stats, repos.User, mailer, manager.GetQueue()).Register(manager.GetQueue())
	complaints.WithEvents(jobqueue.NewPublisher(manager.GetQueue()))
	manager.Start()

	var captcha controllers.CaptchaVerifier
	if hcaptcha.Enabled() {
		captcha = hcaptcha.Verify
	}

	// ROUTER
	router.InstallRouter(app, router.Handlers{
		Auth:       controllers.NewAuthController(accounts, captcha),
		Complaints: controllers.NewComplaintController(complaints, stats, photos),
		Admin:      controllers.NewAdminController(complaints, contractors, accounts, stats, manager, photos),
		Contractor: controllers.NewContractorController(complaints, stats, photos),
		ActiveChecks: map[authz.Role]middleware.ActiveCheck{
			authz.RoleCitizen:    accounts.IsUserActive,
			authz.RoleAdmin:      accounts.IsUserActive,
			authz.RoleContractor: contractors.IsActive,
		},
	})

	return app, manager
}

// findBasePath locates the project root from the usual working directories
func findBasePath() string {
	basePaths := []string{
		"./",        // Current directory
		"../../",    // From cmd/urbanfix to project root
		"../../../", // Fallback
	}
	for _, path := range basePaths {
		if _, err := os.Stat(path + "public/docs"); !os.IsNotExist(err) {
			return path
		}
	}
	panic("Could not find project root directory")
}
