package simulator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/churnwatch/churnwatch/internal/logger"
	"github.com/churnwatch/churnwatch/pkg/models"
)

type GeneratorConfig struct {
	// APIURL is the base URL of the monitoring API, e.g. http://localhost:8080.
	APIURL   string
	Username string
	Password string
	Interval time.Duration
	// BatchSize is how many predictions each tick posts.
	BatchSize int
}

// Generator posts synthetic predictions to the monitoring API at a steady
// rate, drawing from the shared population profile.
type Generator struct {
	config  GeneratorConfig
	profile *Profile
	client  *http.Client
	token   string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewGenerator(cfg GeneratorConfig, profile *Profile) *Generator {
	if cfg.Interval <= 0 {
		cfg.Interval = 2 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 5
	}
	if profile == nil {
		profile = NewProfile(ProfileConfig{})
	}

	return &Generator{
		config:  cfg,
		profile: profile,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (g *Generator) Start() error {
	if err := g.login(); err != nil {
		return fmt.Errorf("generator login failed: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	g.cancel = cancel

	g.wg.Add(1)
	go g.run(ctx)

	logger.Infof("Traffic generator started against %s", g.config.APIURL)
	return nil
}

func (g *Generator) Stop() {
	if g.cancel != nil {
		g.cancel()
	}
	g.wg.Wait()
}

func (g *Generator) login() error {
	payload, err := json.Marshal(map[string]string{
		"username": g.config.Username,
		"password": g.config.Password,
	})
	if err != nil {
		return err
	}

	resp, err := g.client.Post(g.config.APIURL+"/auth/login", "application/json", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("login returned status %d", resp.StatusCode)
	}

	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return err
	}
	g.token = body.Token
	return nil
}

func (g *Generator) run(ctx context.Context) {
	defer g.wg.Done()

	ticker := time.NewTicker(g.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.postBatch(ctx)
		}
	}
}

func (g *Generator) postBatch(ctx context.Context) {
	for i := 0; i < g.config.BatchSize; i++ {
		features, probability := g.profile.Sample()
		predicted := 0
		if probability >= 0.5 {
			predicted = 1
		}
		latency := 5.0 + probability*20.0

		if err := g.postPrediction(ctx, features, predicted, probability, latency); err != nil {
			logger.Warnf("Failed to post prediction: %v", err)
			return
		}
	}
}

type ingestRequest struct {
	Features       models.FeatureVector `json:"features"`
	PredictedClass int                  `json:"predicted_class"`
	Probability    float64              `json:"probability"`
	LatencyMS      float64              `json:"latency_ms"`
}

func (g *Generator) postPrediction(ctx context.Context, features models.FeatureVector, predicted int, probability, latency float64) error {
	payload, err := json.Marshal(ingestRequest{
		Features:       features,
		PredictedClass: predicted,
		Probability:    probability,
		LatencyMS:      latency,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.config.APIURL+"/predictions", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.token)

	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		// Token expired, refresh once and retry on the next tick.
		if err := g.login(); err != nil {
			return fmt.Errorf("token refresh failed: %w", err)
		}
		return fmt.Errorf("token expired, refreshed")
	}
	if resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("ingest returned status %d", resp.StatusCode)
	}
	return nil
}
