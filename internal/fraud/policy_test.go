package fraud

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/richxcame/carbon-ledger/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPolicyRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.FraudConfig)
	}{
		{"weight above one", func(c *config.FraudConfig) { c.WeightInvalidPhone = 1.5 }},
		{"negative weight", func(c *config.FraudConfig) { c.WeightCombinedRisk = -0.1 }},
		{"threshold above 100", func(c *config.FraudConfig) { c.Threshold = 101 }},
		{"negative threshold", func(c *config.FraudConfig) { c.Threshold = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultFraudConfig()
			tt.mutate(&cfg)

			p, err := NewPolicy(cfg)
			assert.Error(t, err)
			assert.Nil(t, p)
		})
	}
}

func TestCustomThresholdChangesVerdictNotBands(t *testing.T) {
	cfg := config.DefaultFraudConfig()
	cfg.Threshold = 50
	p, err := NewPolicy(cfg)
	require.NoError(t, err)

	r := p.Analyze(UserSnapshot{Name: "Test", Surname: "Admin"}, analyzedAt)

	assert.Equal(t, 50.0, r.RiskScore)
	assert.Equal(t, RiskLevelHigh, r.RiskLevel)
	assert.True(t, r.IsFraudulent)
}

func TestCustomWeights(t *testing.T) {
	cfg := config.DefaultFraudConfig()
	cfg.WeightDisposableEmail = 0.8
	p, err := NewPolicy(cfg)
	require.NoError(t, err)

	r := p.Analyze(UserSnapshot{Email: "a@yopmail.com"}, analyzedAt)
	assert.Equal(t, 80.0, r.RiskScore)
	assert.Equal(t, RiskLevelCritical, r.RiskLevel)
	assert.Equal(t, 0.8, p.Weight(IndicatorDisposableEmail))
}

func TestIsDisposableDomain(t *testing.T) {
	p, err := NewPolicy(config.DefaultFraudConfig(), "Burner.Example.", "  ")
	require.NoError(t, err)

	assert.True(t, p.IsDisposableDomain("yopmail.com"))
	assert.True(t, p.IsDisposableDomain("YOPMAIL.COM."))
	assert.True(t, p.IsDisposableDomain("eu.yopmail.com"))
	assert.True(t, p.IsDisposableDomain("burner.example"))
	assert.True(t, p.IsDisposableDomain("x.burner.example"))
	assert.False(t, p.IsDisposableDomain("example"))
	assert.False(t, p.IsDisposableDomain("gmail.com"))
	assert.False(t, p.IsDisposableDomain(""))

	assert.False(t, DefaultPolicy().IsDisposableDomain("burner.example"))
}

func TestLoadDisposableDomains(t *testing.T) {
	input := "# extra providers\n\nMailDrop.cc\n  spambox.xyz  \n# end\n"

	domains, err := LoadDisposableDomains(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []string{"maildrop.cc", "spambox.xyz"}, domains)
}

func TestPolicyFromConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "domains.txt")
	require.NoError(t, os.WriteFile(path, []byte("spambox.xyz\n"), 0o600))

	cfg := config.DefaultFraudConfig()
	cfg.DisposableDomainsFile = path
	p, err := PolicyFromConfig(cfg)
	require.NoError(t, err)
	assert.True(t, p.IsDisposableDomain("spambox.xyz"))

	cfg.DisposableDomainsFile = filepath.Join(t.TempDir(), "missing.txt")
	_, err = PolicyFromConfig(cfg)
	assert.Error(t, err)
}
