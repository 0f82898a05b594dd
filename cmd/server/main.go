package main

import (
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"github.com/sbs-helper/certification-backend/internal/assessment"
	"github.com/sbs-helper/certification-backend/internal/database"
	"github.com/sbs-helper/certification-backend/internal/mastery"
	"github.com/sbs-helper/certification-backend/internal/middleware"
	"github.com/sbs-helper/certification-backend/internal/settings"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}

	db, err := database.Connect()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	provider := settings.NewProvider(settings.NewStore(db), 30*time.Second)

	masteryService := mastery.NewService(mastery.NewStore(db), provider)
	masteryHandler := mastery.NewHandler(masteryService)

	assessmentService := assessment.NewService(assessment.NewStore(db), masteryService, provider)
	assessmentHandler := assessment.NewHandler(assessmentService)

	r := mux.NewRouter()
	api := r.PathPrefix("/api/v1").Subrouter()

	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.AuthMiddleware)

	protected.HandleFunc("/tests", assessmentHandler.StartTest).Methods("POST")
	protected.HandleFunc("/tests/history", assessmentHandler.GetHistory).Methods("GET")
	protected.HandleFunc("/tests/{token}/answers", assessmentHandler.SubmitAnswer).Methods("POST")
	protected.HandleFunc("/tests/{token}/complete", assessmentHandler.CompleteTest).Methods("POST")
	protected.HandleFunc("/tests/{token}/cancel", assessmentHandler.CancelTest).Methods("POST")

	protected.HandleFunc("/profile/summary", masteryHandler.GetProfileSummary).Methods("GET")
	protected.HandleFunc("/profile/categories", masteryHandler.GetCategoryStandings).Methods("GET")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	handler := c.Handler(r)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on :%s", port)
	if err := http.ListenAndServe(":"+port, handler); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
