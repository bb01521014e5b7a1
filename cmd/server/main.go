package main

import (
	"flag"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/semla/internal/app"
	"github.com/shrimpsizemoose/semla/internal/handlers"
)

func main() {
	var configPath = flag.String("config", "config.toml", "Path to config file")
	flag.Parse()

	service, err := app.NewService(*configPath)
	if err != nil {
		logger.Error.Fatalf("Failed to init service: %v", err)
	}
	defer service.Close()

	if service.Config.Grading.SeedDefaults {
		created, err := service.Registry.SeedDefaults()
		if err != nil {
			logger.Error.Fatalf("Failed to seed default metrics: %v", err)
		}
		if len(created) > 0 {
			logger.Info.Printf("Seeded %d default grading metrics", len(created))
		}
	}

	gradingHandler := handlers.NewGradingHandler(service)

	http.HandleFunc("GET /api/v1/metrics", gradingHandler.HandleListMetrics)
	http.HandleFunc("POST /api/v1/metrics", gradingHandler.HandleCreateMetric)
	http.HandleFunc("POST /api/v1/metrics/defaults", gradingHandler.HandleSeedDefaultMetrics)
	http.HandleFunc("PUT /api/v1/metrics/{id}", gradingHandler.HandleUpdateMetric)
	http.HandleFunc("DELETE /api/v1/metrics/{id}", gradingHandler.HandleDeleteMetric)

	http.HandleFunc("GET /api/v1/projects/ungraded", gradingHandler.HandleUngradedProjects)
	http.HandleFunc("GET /api/v1/grading/report", gradingHandler.HandleGradingReport)
	http.HandleFunc("POST /api/v1/projects/{project}/grade", gradingHandler.HandleGradeProject)
	http.HandleFunc("GET /api/v1/projects/{project}/grade", gradingHandler.HandleGetGrade)
	http.HandleFunc("DELETE /api/v1/projects/{project}/grade", gradingHandler.HandleDeleteGrade)

	http.HandleFunc("POST /api/v1/evaluators/{evaluator}/token", gradingHandler.HandleIssueEvaluatorToken)

	http.Handle("/metrics", promhttp.Handler())

	logger.Info.Printf("Starting semla grading server on %s", service.Config.Server.Port)
	logger.Debug.Println("Requiring headers:")
	for _, h := range service.Config.API.RequiredHeaders {
		logger.Debug.Printf("  %s: %s", h.Name, h.Value)
	}
	if err := http.ListenAndServe(service.Config.Server.Port, nil); err != nil {
		logger.Error.Fatalf("Semla server failed: %v", err)
	}
}
