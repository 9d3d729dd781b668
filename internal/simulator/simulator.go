// Package simulator hosts the development stand-ins for the systems around
// the monitoring service: a trainer stub that fabricates candidate models and
// a traffic generator that feeds synthetic predictions into the API.
package simulator

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/churnwatch/churnwatch/internal/drift"
	"github.com/churnwatch/churnwatch/internal/logger"
	"github.com/churnwatch/churnwatch/internal/retrain"
	"github.com/churnwatch/churnwatch/pkg/models"
)

type Config struct {
	Port int
	// BaseAccuracy anchors the fabricated candidate metrics.
	BaseAccuracy float64
	// ReferenceSamples is how many draws feed a fabricated reference.
	ReferenceSamples int
	// TrainDelay makes training jobs take a realistic amount of time.
	TrainDelay time.Duration
}

// Simulator is the trainer stub. It speaks the same /train and /health
// contract as the real training service.
type Simulator struct {
	config     Config
	profile    *Profile
	httpServer *http.Server

	mu      sync.Mutex
	trained int
}

func New(cfg Config, profile *Profile) *Simulator {
	if cfg.Port == 0 {
		cfg.Port = 9100
	}
	if cfg.BaseAccuracy <= 0 {
		cfg.BaseAccuracy = 0.80
	}
	if cfg.ReferenceSamples <= 0 {
		cfg.ReferenceSamples = 500
	}
	if profile == nil {
		profile = NewProfile(ProfileConfig{})
	}

	return &Simulator{
		config:  cfg,
		profile: profile,
	}
}

func (s *Simulator) Start() error {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/train", s.trainHandler)
	mux.HandleFunc("/profile", s.profileHandler)

	addr := fmt.Sprintf(":%d", s.config.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	logger.Infof("Trainer stub listening on %s", addr)

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("Trainer stub server error: %v", err)
		}
	}()

	return nil
}

func (s *Simulator) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

func (s *Simulator) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"service": "trainer-stub",
	})
}

func (s *Simulator) trainHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req retrain.TrainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if s.config.TrainDelay > 0 {
		select {
		case <-r.Context().Done():
			return
		case <-time.After(s.config.TrainDelay):
		}
	}

	s.mu.Lock()
	s.trained++
	version := fmt.Sprintf("sim-v%d", s.trained)
	s.mu.Unlock()

	// The fabricated model "learns" the current population, so its
	// reference matches whatever the generator is producing right now.
	training := make([]*models.PredictionRecord, 0, s.config.ReferenceSamples)
	for i := 0; i < s.config.ReferenceSamples; i++ {
		features, probability := s.profile.Sample()
		predicted := 0
		if probability >= 0.5 {
			predicted = 1
		}
		training = append(training, models.NewPredictionRecord(features, predicted, probability, version))
	}

	ref, err := drift.BuildReference(version, training, 10)
	if err != nil {
		logger.Errorf("Failed to build reference for %s: %v", version, err)
		http.Error(w, "failed to build reference", http.StatusInternalServerError)
		return
	}

	result := retrain.TrainResult{
		Version: version,
		Metrics: map[string]float64{
			"accuracy": s.config.BaseAccuracy + float64(s.trained)*0.005,
			"f1":       s.config.BaseAccuracy - 0.05,
		},
		BaseRate:     s.profile.ChurnRate(),
		ArtifactPath: fmt.Sprintf("s3://churnwatch-models/%s.pkl", version),
		Reference:    ref,
	}

	logger.Infof("Fabricated candidate %s for run %s (reason: %s)", version, req.RunID, req.Reason)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

type UpdateProfileRequest struct {
	TenureMean   *float64 `json:"tenure_mean"`
	ChargesMean  *float64 `json:"charges_mean"`
	MonthlyShare *float64 `json:"monthly_share"`
	ChurnRate    *float64 `json:"churn_rate"`
	Variance     *float64 `json:"variance"`
}

// profileHandler shifts the simulated population. Shifting it is how drift
// gets injected during development.
func (s *Simulator) profileHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(s.profile.Snapshot())
	case http.MethodPost:
		var req UpdateProfileRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		if req.TenureMean != nil {
			s.profile.SetTenureMean(*req.TenureMean)
		}
		if req.ChargesMean != nil {
			s.profile.SetChargesMean(*req.ChargesMean)
		}
		if req.MonthlyShare != nil {
			s.profile.SetMonthlyShare(*req.MonthlyShare)
		}
		if req.ChurnRate != nil {
			s.profile.SetChurnRate(*req.ChurnRate)
		}
		if req.Variance != nil {
			s.profile.SetVariance(*req.Variance)
		}

		logger.Info("Population profile updated")

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(s.profile.Snapshot())
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}
