package simulator

import (
	"math/rand"
	"sync"

	"github.com/churnwatch/churnwatch/pkg/models"
)

// Profile describes the simulated customer population. The generator samples
// predictions from it and the trainer stub derives references from it, so
// shifting the profile at runtime produces real feature drift.
type Profile struct {
	mu sync.RWMutex

	tenureMean  float64
	chargesMean float64
	// monthlyShare is the fraction of customers on monthly contracts.
	monthlyShare float64
	churnRate    float64
	variance     float64
}

type ProfileConfig struct {
	TenureMean   float64
	ChargesMean  float64
	MonthlyShare float64
	ChurnRate    float64
	Variance     float64
}

func NewProfile(cfg ProfileConfig) *Profile {
	if cfg.TenureMean <= 0 {
		cfg.TenureMean = 32.0
	}
	if cfg.ChargesMean <= 0 {
		cfg.ChargesMean = 65.0
	}
	if cfg.MonthlyShare <= 0 {
		cfg.MonthlyShare = 0.5
	}
	if cfg.ChurnRate <= 0 {
		cfg.ChurnRate = 0.27
	}
	if cfg.Variance <= 0 {
		cfg.Variance = 10.0
	}

	return &Profile{
		tenureMean:   cfg.TenureMean,
		chargesMean:  cfg.ChargesMean,
		monthlyShare: cfg.MonthlyShare,
		churnRate:    cfg.ChurnRate,
		variance:     cfg.Variance,
	}
}

// Sample draws one customer and the probability the model would score them
// with. Short tenure and monthly contracts push the score up.
func (p *Profile) Sample() (models.FeatureVector, float64) {
	p.mu.RLock()
	tenureMean := p.tenureMean
	chargesMean := p.chargesMean
	monthlyShare := p.monthlyShare
	churnRate := p.churnRate
	variance := p.variance
	p.mu.RUnlock()

	tenure := tenureMean + (rand.Float64()-0.5)*2*variance
	if tenure < 0 {
		tenure = 0
	}
	charges := chargesMean + (rand.Float64()-0.5)*2*variance
	if charges < 0 {
		charges = 0
	}

	contract := "yearly"
	if rand.Float64() < monthlyShare {
		contract = "monthly"
	}

	probability := churnRate
	if contract == "monthly" {
		probability += 0.15
	} else {
		probability -= 0.10
	}
	if tenure < 12 {
		probability += 0.10
	}
	probability += (rand.Float64() - 0.5) * 0.2
	if probability < 0.01 {
		probability = 0.01
	}
	if probability > 0.99 {
		probability = 0.99
	}

	features := models.FeatureVector{
		"tenure":          tenure,
		"monthly_charges": charges,
		"contract":        contract,
	}
	return features, probability
}

func (p *Profile) ChurnRate() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.churnRate
}

func (p *Profile) SetTenureMean(v float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tenureMean = v
}

func (p *Profile) SetChargesMean(v float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.chargesMean = v
}

func (p *Profile) SetMonthlyShare(v float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.monthlyShare = v
}

func (p *Profile) SetChurnRate(v float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.churnRate = v
}

func (p *Profile) SetVariance(v float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.variance = v
}

func (p *Profile) Snapshot() ProfileConfig {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return ProfileConfig{
		TenureMean:   p.tenureMean,
		ChargesMean:  p.chargesMean,
		MonthlyShare: p.monthlyShare,
		ChurnRate:    p.churnRate,
		Variance:     p.variance,
	}
}
