package routes

import (
	"context"
	"time"

	"aegis/config"
	"aegis/controllers"
	"aegis/middleware"
	"aegis/repositories"
	"aegis/services"
	"aegis/utils"
	"aegis/websocket"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
)

const apiVersion = "1.0.0"

// SetupRoutes wires repositories, services and controllers and registers
// every route group. The wired dependencies are returned so background
// workers can share them.
func SetupRoutes(db *mongo.Database, redisClient *redis.Client, hub *websocket.Hub, cfg *config.Config) (*gin.Engine, *Services, *Repositories) {
	router := gin.New()

	repos := initializeRepositories(db)
	svcs := initializeServices(repos, hub, cfg)
	ctrls := initializeControllers(svcs)

	authMiddleware := middleware.NewAuthMiddleware(svcs.JWT, repos.User)

	setupGlobalMiddleware(router, redisClient, cfg)
	setupPublicRoutes(router, ctrls, redisClient)
	setupAuthenticatedRoutes(router, ctrls, authMiddleware, redisClient)
	setupWebSocketRoutes(router, hub, authMiddleware)

	return router, svcs, repos
}

// Repositories holds every data access object.
type Repositories struct {
	User      *repositories.UserRepository
	Contact   *repositories.ContactRepository
	Emergency *repositories.EmergencyRepository
}

func initializeRepositories(db *mongo.Database) *Repositories {
	return &Repositories{
		User:      repositories.NewUserRepository(db),
		Contact:   repositories.NewContactRepository(db),
		Emergency: repositories.NewEmergencyRepository(db),
	}
}

// Services holds every business service plus the shared helpers.
type Services struct {
	JWT          *utils.JWTService
	Validation   *utils.ValidationService
	Auth         *services.AuthService
	Contact      *services.ContactService
	Emergency    *services.EmergencyService
	Notification *services.NotificationService
	Classify     *services.ClassificationService
	Guidance     *services.GuidanceService
}

func initializeServices(repos *Repositories, hub *websocket.Hub, cfg *config.Config) *Services {
	jwtService := utils.NewJWTService(cfg.JWTSecret)
	validationService := utils.NewValidationService()

	var classifyGen, guidanceGen services.TextGenerator
	if cfg.GeminiAPIKey != "" {
		gemini, err := services.NewGeminiClient(context.Background(), cfg.GeminiAPIKey)
		if err != nil {
			logrus.Errorf("Gemini client init failed, AI analysis disabled: %v", err)
		} else {
			classifyGen = gemini.ClassificationModel()
			guidanceGen = gemini.GuidanceModel()
		}
	} else {
		logrus.Warn("GEMINI_API_KEY not set, AI analysis disabled")
	}
	if classifyGen == nil {
		classifyGen = services.DisabledGenerator{}
		guidanceGen = services.DisabledGenerator{}
	}

	classificationService := services.NewClassificationService(classifyGen)
	guidanceService := services.NewGuidanceService(guidanceGen, services.NewKnowledgeBase())

	smsService := services.NewSMSService(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioPhoneNumber, cfg.SMSEnabled)
	pushService := services.NewPushService(context.Background(), cfg.FirebaseCredentials, cfg.PushEnabled)

	notificationService := services.NewNotificationService(
		repos.Emergency,
		repos.Contact,
		repos.User,
		smsService,
		pushService,
		cfg.MaxConcurrentSends,
	)

	emergencyService := services.NewEmergencyService(
		repos.Emergency,
		repos.Contact,
		classificationService,
		guidanceService,
		notificationService,
		hub,
	)

	return &Services{
		JWT:          jwtService,
		Validation:   validationService,
		Auth:         services.NewAuthService(repos.User, jwtService),
		Contact:      services.NewContactService(repos.Contact),
		Emergency:    emergencyService,
		Notification: notificationService,
		Classify:     classificationService,
		Guidance:     guidanceService,
	}
}

// Controllers holds every HTTP controller.
type Controllers struct {
	Auth         *controllers.AuthController
	Contact      *controllers.ContactController
	Emergency    *controllers.EmergencyController
	Notification *controllers.NotificationController
	AI           *controllers.AIController
	Health       *controllers.HealthController
}

func initializeControllers(svcs *Services) *Controllers {
	return &Controllers{
		Auth:         controllers.NewAuthController(svcs.Auth, svcs.Validation),
		Contact:      controllers.NewContactController(svcs.Contact, svcs.Validation),
		Emergency:    controllers.NewEmergencyController(svcs.Emergency, svcs.Validation),
		Notification: controllers.NewNotificationController(svcs.Notification, svcs.Validation),
		AI:           controllers.NewAIController(svcs.Emergency, svcs.Classify, svcs.Guidance, svcs.Validation),
		Health:       controllers.NewHealthController(apiVersion),
	}
}

func setupGlobalMiddleware(router *gin.Engine, redisClient *redis.Client, cfg *config.Config) {
	router.Use(gin.Recovery())
	router.Use(middleware.DefaultLoggerMiddleware())
	router.Use(middleware.CORSMiddleware(cfg.Environment))
	router.Use(middleware.DefaultRateLimit(redisClient, cfg.RateLimitRequest, time.Duration(cfg.RateLimitWindow)*time.Minute))
}

func setupPublicRoutes(router *gin.Engine, ctrls *Controllers, redisClient *redis.Client) {
	router.GET("/health", ctrls.Health.Check)

	public := router.Group("/api/v1")
	{
		SetupAuthRoutes(public, ctrls.Auth, redisClient)
	}
}

func setupAuthenticatedRoutes(router *gin.Engine, ctrls *Controllers, authMiddleware *middleware.AuthMiddleware, redisClient *redis.Client) {
	api := router.Group("/api/v1")
	api.Use(authMiddleware.RequireAuth())

	SetupEmergencyRoutes(api, ctrls.Emergency, redisClient)
	SetupNotificationRoutes(api, ctrls.Notification, redisClient)
	SetupAIRoutes(api, ctrls.AI)
	SetupContactRoutes(api, ctrls.Contact)
	api.POST("/auth/device", ctrls.Auth.RegisterDevice)
}

func setupWebSocketRoutes(router *gin.Engine, hub *websocket.Hub, authMiddleware *middleware.AuthMiddleware) {
	router.GET("/ws", websocket.ServeWS(hub, authMiddleware))
}
