package config

import (
	"os"
	"time"

	"foodgram/internal/api/handlers"
	"foodgram/internal/api/routes"
	"foodgram/internal/middleware"
	"foodgram/internal/utils"
	"foodgram/internal/utils/mailing"
	"foodgram/internal/utils/storage"
	"foodgram/pkg/ingredient"
	"foodgram/pkg/jwt"
	"foodgram/pkg/recipe"
	"foodgram/pkg/relation"
	"foodgram/pkg/shoppinglist"
	"foodgram/pkg/user"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"
)

// Dependencies are the outside collaborators of the HTTP app.
type Dependencies struct {
	DB         *gorm.DB
	Images     storage.ImageStore
	Mailer     mailing.Mailer
	JWTService jwt.JWTService
}

func NewApp(db *gorm.DB) (*fiber.App, error) {
	// setting up logging
	err := os.MkdirAll("./logs", os.ModePerm)
	if err != nil {
		log.Fatalf("error creating logs directory: %v", err)
	}
	file, err := os.OpenFile(
		"./logs/app.log",
		os.O_RDWR|os.O_CREATE|os.O_APPEND,
		0666,
	)
	if err != nil {
		log.Fatalf("error opening file: %v", err)
	}

	app := Build(Dependencies{
		DB:         db,
		Images:     storage.NewAwsS3(),
		Mailer:     mailing.NewMailer(mailing.LoadMailConfig()),
		JWTService: jwt.NewJWTService(utils.GetConfig("JWT_SECRET")),
	}, logger.New(logger.Config{
		TimeFormat: "2006-01-02 15:04:05",
		TimeZone:   "UTC",
		Output:     file,
	}), limiter.New(limiter.Config{
		Max:        10,
		Expiration: 1 * time.Second,
	}))
	return app, nil
}

// Build wires repositories, services and handlers onto a new fiber app.
// Extra handlers run after the recover middleware and before the routes.
func Build(deps Dependencies, extra ...fiber.Handler) *fiber.App {
	utils.InitValidator()
	app := fiber.New(fiber.Config{
		EnablePrintRoutes: true,
	})
	middlewares := middleware.NewMiddleware()
	validator := utils.Validate

	app.Use(recover.New())
	for _, h := range extra {
		app.Use(h)
	}

	// Repository
	userRepository := user.NewUserRepository(deps.DB)
	ingredientRepository := ingredient.NewIngredientRepository(deps.DB)
	recipeRepository := recipe.NewRecipeRepository(deps.DB)
	relationRepository := relation.NewRelationRepository(deps.DB)
	shoppingListRepository := shoppinglist.NewShoppingListRepository(deps.DB)

	// Service
	relationService := relation.NewRelationService(relationRepository)
	userService := user.NewUserService(userRepository, relationService, deps.JWTService, deps.Images)
	ingredientService := ingredient.NewIngredientService(ingredientRepository)
	recipeService := recipe.NewRecipeService(recipeRepository, relationService, deps.Images)
	shoppingListService := shoppinglist.NewShoppingListService(shoppingListRepository, userRepository, deps.Mailer)

	// Handler
	userHandler := handlers.NewUserHandler(userService, validator)
	ingredientHandler := handlers.NewIngredientHandler(ingredientService)
	recipeHandler := handlers.NewRecipeHandler(recipeService, shoppingListService, validator)

	// routes
	routesConfig := routes.Config{
		App:               app,
		UserHandler:       userHandler,
		RecipeHandler:     recipeHandler,
		IngredientHandler: ingredientHandler,
		Middleware:        middlewares,
		JWTService:        deps.JWTService,
	}
	routesConfig.Setup()
	return app
}
