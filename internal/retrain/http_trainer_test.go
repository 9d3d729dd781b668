package retrain_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/churnwatch/churnwatch/internal/retrain"
)

func slowTrainerServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(10 * time.Second):
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPTrainer_CancelledContextSurfacesAsCanceled(t *testing.T) {
	srv := slowTrainerServer(t)
	trainer := retrain.NewHTTPTrainer(retrain.HTTPTrainerConfig{Endpoint: srv.URL})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := trainer.Train(ctx, retrain.TrainRequest{RunID: "run-1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHTTPTrainer_DeadlineSurfacesAsTimeout(t *testing.T) {
	srv := slowTrainerServer(t)
	trainer := retrain.NewHTTPTrainer(retrain.HTTPTrainerConfig{Endpoint: srv.URL})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := trainer.Train(ctx, retrain.TrainRequest{RunID: "run-1"})
	assert.ErrorIs(t, err, retrain.ErrTimeout)
}
