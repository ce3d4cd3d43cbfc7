package main

import (
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"github.com/camden-git/mediacatalog/config"
	"github.com/camden-git/mediacatalog/database"
	"github.com/camden-git/mediacatalog/geocode"
	"github.com/camden-git/mediacatalog/handlers"
	"github.com/camden-git/mediacatalog/media"
	"github.com/camden-git/mediacatalog/repository"
	"github.com/camden-git/mediacatalog/scanner"
	"github.com/camden-git/mediacatalog/services"
)

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Printf("Info: No .env file found or error loading: %v", err)
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	if dbDir := filepath.Dir(cfg.DatabasePath); dbDir != "." {
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			log.Fatalf("FATAL: Failed to create database directory %s: %v", dbDir, err)
		}
	}

	db, err := database.InitGormDB(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize database: %v", err)
	}
	if err := database.AutoMigrateModels(db); err != nil {
		log.Fatalf("FATAL: Failed to migrate database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("FATAL: Failed to get underlying sql.DB: %v", err)
	}

	assetRepo := repository.NewAssetRepository(db, cfg.RootDirectory)
	dirRepo := repository.NewDirectoryRepository(db)
	tagRepo := repository.NewTagRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)

	classifier := services.NewClassifierService(tagRepo, assignmentRepo)
	faceMatch := services.NewFaceMatchService(tagRepo, 0.6)

	mediaScanner := &scanner.Scanner{
		Root:            cfg.RootDirectory,
		Assets:          assetRepo,
		Dirs:            dirRepo,
		Extractor:       media.NewExifExtractor(cfg.MetadataTimeout),
		Classifier:      classifier,
		NumWorkers:      cfg.NumScanWorkers,
		QueueSize:       cfg.ScanQueueSize,
		BatchSize:       cfg.WriteBatchSize,
		ProximityWindow: cfg.ProximityWindow,
	}

	// the actual reverse-geocoding provider is an external collaborator;
	// wire a real one here when available
	limiter := geocode.NewLimiter(geocode.ResolverFunc(func(lat, lng float64) (string, error) {
		return geocode.Unknown, nil
	}), cfg.GeocodeInterval)
	defer limiter.Close()

	log.Printf("Scanning files under root: %s", cfg.RootDirectory)
	log.Printf("Using database: %s", cfg.DatabasePath)
	log.Printf("Scan workers: %d, queue size: %d, batch size: %d", cfg.NumScanWorkers, cfg.ScanQueueSize, cfg.WriteBatchSize)

	r := chi.NewRouter()

	corsOptions := cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173"}, //TODO: configurable
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	corsHandler := cors.New(corsOptions)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(corsHandler.Handler)

	scanHandler := &handlers.ScanHandler{Scanner: mediaScanner}
	assetHandler := &handlers.AssetHandler{Assets: assetRepo, SQLDB: sqlDB}
	tagHandler := &handlers.TagHandler{Tags: tagRepo, Assignments: assignmentRepo, FaceMatch: faceMatch}
	geocodeHandler := &handlers.GeocodeHandler{Limiter: limiter}

	r.Route("/api", func(r chi.Router) {
		r.Post("/scan", scanHandler.TriggerScan)

		r.Route("/assets", func(r chi.Router) {
			r.Get("/", assetHandler.ListByTimeRange)
			r.Get("/area", assetHandler.ListByBounds)
			r.Get("/directory", assetHandler.ListByDirectory)
			r.Get("/tags", assetHandler.ListByTags)
			r.Get("/lookup", assetHandler.Lookup)
			r.Route("/{asset_id}", func(r chi.Router) {
				r.Put("/", assetHandler.UpdateAsset)
				r.Get("/tags", tagHandler.ListAssetTags)
				r.Post("/tags/{tag_id}", tagHandler.LinkTag)
				r.Delete("/tags/{tag_id}", tagHandler.UnlinkTag)
			})
		})

		r.Get("/directories", assetHandler.DirectoryTree)

		r.Route("/tags", func(r chi.Router) {
			r.Post("/", tagHandler.CreateTag)
			r.Get("/", tagHandler.ListTags)
			r.Route("/{tag_id}", func(r chi.Router) {
				r.Get("/", tagHandler.GetTag)
				r.Put("/", tagHandler.UpdateTag)
				r.Delete("/", tagHandler.DeleteTag)
				r.Put("/move", tagHandler.MoveTag)
				r.Post("/samples", tagHandler.AddFaceSample)
			})
		})

		r.Post("/faces/match", tagHandler.MatchFace)
		r.Get("/geocode", geocodeHandler.ReverseGeocode)
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	serverAddr := ":" + port
	log.Printf("Server listening on %s", serverAddr)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Minute, // scans run synchronously
		IdleTimeout:  120 * time.Second,
	}
	log.Fatal(server.ListenAndServe())
}
